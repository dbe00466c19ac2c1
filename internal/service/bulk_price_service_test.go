package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/domain"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/text/encoding/charmap"
)

type BulkPriceServiceTestSuite struct {
	suite.Suite
	repo      *memoryRepository
	publisher *recordingPublisher
	svc       BulkPriceService
	sku1      domain.Product
	sku2      domain.Product
}

func (s *BulkPriceServiceTestSuite) SetupTest() {
	s.repo = newMemoryRepository()
	s.publisher = &recordingPublisher{}
	s.svc = CreateBulkPriceService(s.repo, s.publisher, testConfig())

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.sku1 = s.repo.seed(domain.Product{Name: "Cable Cat6", SKU: strPtr("SKU-1"), BasePrice: decimal.NewFromInt(900), CreatedAt: base})
	s.sku2 = s.repo.seed(domain.Product{Name: "Patch cord", SKU: strPtr("SKU-2"), BasePrice: decimal.NewFromInt(300), CreatedAt: base.Add(time.Hour)})
}

func TestBulkPriceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BulkPriceServiceTestSuite))
}

func csvRequest(content string) dto.BulkPriceRequest {
	return dto.BulkPriceRequest{
		File: dto.UploadedFile{Name: "prices.csv", ContentType: "text/csv", Size: int64(len(content)), Data: []byte(content)},
	}
}

func (s *BulkPriceServiceTestSuite) Test_MixedRows() {
	report, err := s.svc.ReconcilePrices(context.Background(), csvRequest("SKU-1;1000\nSKU-UNKNOWN;500\nSKU-2;abc\n"))
	s.Require().NoError(err)

	s.Equal(3, report.Total)
	s.Equal(1, report.Matched)
	s.Equal(1, report.Unmatched)
	s.Equal(1, report.Invalid)
	s.Equal(1, report.Failed)
	s.Equal(1, report.Applied)
	s.Equal(string(domain.BatchReported), report.State)

	s.Require().Len(report.Rows, 3)
	s.Equal("SKU-1", report.Rows[0].Identifier)
	s.True(report.Rows[0].Matched)
	s.True(report.Rows[0].Applied)
	s.Equal(dto.FoundBySKU, report.Rows[0].FoundBy)

	s.Equal("SKU-UNKNOWN", report.Rows[1].Identifier)
	s.False(report.Rows[1].Matched)
	s.False(report.Rows[1].Applied)
	s.Empty(report.Rows[1].Error)

	s.Equal("SKU-2", report.Rows[2].Identifier)
	s.False(report.Rows[2].Matched)
	s.False(report.Rows[2].Applied)
	s.Equal("invalid row", report.Rows[2].Error)

	s.True(s.repo.get(s.sku1.ID).BasePrice.Equal(decimal.NewFromInt(1000)))
	s.True(s.repo.get(s.sku2.ID).BasePrice.Equal(decimal.NewFromInt(300)))
	s.Equal(1, s.repo.PriceWrites)

	s.Require().Len(s.publisher.Messages, 1)
	event := s.publisher.Messages[0]
	s.Equal(dto.EventProductPricesUpdated, event.EventType)
	s.Equal([]dto.PriceChange{{ProductID: s.sku1.ID, BasePrice: "1000.00"}}, event.Data.(dto.PricesUpdatedEvent).Changes)
}

func (s *BulkPriceServiceTestSuite) Test_UnchangedRowIssuesNoWrite() {
	report, err := s.svc.ReconcilePrices(context.Background(), csvRequest("SKU-1;900,00\nsku-2 ; 300\n"))
	s.Require().NoError(err)

	s.Equal(2, report.Matched)
	s.Equal(2, report.Unchanged)
	for _, row := range report.Rows {
		s.True(row.Applied)
		s.False(row.Changed)
		s.Empty(row.Error)
	}
	s.Equal(0, s.repo.PriceWrites)
	s.Empty(s.publisher.Messages)
}

func (s *BulkPriceServiceTestSuite) Test_Modes() {
	testCases := []struct {
		Name            string
		Mode            string
		SelectedIDs     func() string
		ExpectedWrites  int
		ExpectedApplied int
		ExpectedSkipped int
		ExpectedErr     error
	}{
		{Name: "preview writes nothing", Mode: "preview", ExpectedWrites: 0},
		{Name: "update writes every change", Mode: "update", ExpectedWrites: 2, ExpectedApplied: 2},
		{Name: "empty mode is update", Mode: "", ExpectedWrites: 2, ExpectedApplied: 2},
		{
			Name:            "selection restricts writes",
			Mode:            "update",
			SelectedIDs:     func() string { return fmt.Sprintf(`[%q]`, s.sku2.ID) },
			ExpectedWrites:  1,
			ExpectedApplied: 1,
			ExpectedSkipped: 1,
		},
		{Name: "malformed selection", Mode: "update", SelectedIDs: func() string { return "[oops" }, ExpectedErr: errs.ErrValidation},
		{Name: "unknown mode", Mode: "dry-run", ExpectedErr: errs.ErrValidation},
	}

	for _, tc := range testCases {
		s.Run(tc.Name, func() {
			s.SetupTest()

			req := csvRequest("SKU-1;1000\nSKU-2;350\n")
			req.Mode = tc.Mode
			if tc.SelectedIDs != nil {
				req.SelectedIDs = tc.SelectedIDs()
			}

			report, err := s.svc.ReconcilePrices(context.Background(), req)
			if tc.ExpectedErr != nil {
				s.ErrorIs(err, tc.ExpectedErr)
				s.Equal(0, s.repo.PriceWrites)
				return
			}
			s.Require().NoError(err)

			s.Equal(2, report.Matched)
			s.Equal(tc.ExpectedWrites, s.repo.PriceWrites)
			s.Equal(tc.ExpectedApplied, report.Applied)
			s.Equal(tc.ExpectedSkipped, report.Skipped)
			for _, row := range report.Rows {
				s.True(row.Changed)
				if row.Skipped {
					s.Equal("not selected", row.Error)
					s.Equal(s.sku1.ID, row.ProductID)
				}
			}
		})
	}
}

func (s *BulkPriceServiceTestSuite) Test_AmbiguousSKUPicksNewest() {
	older := s.repo.seed(domain.Product{Name: "Old", SKU: strPtr("DUP"), BasePrice: decimal.NewFromInt(10), CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	newer := s.repo.seed(domain.Product{Name: "New", SKU: strPtr(" dup "), BasePrice: decimal.NewFromInt(10), CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)})

	report, err := s.svc.ReconcilePrices(context.Background(), csvRequest("DUP;20\n"))
	s.Require().NoError(err)

	s.Require().Len(report.Rows, 1)
	row := report.Rows[0]
	s.True(row.Applied)
	s.Equal(newer.ID, row.ProductID)
	s.NotEmpty(row.Warning)
	s.True(s.repo.get(newer.ID).BasePrice.Equal(decimal.NewFromInt(20)))
	s.True(s.repo.get(older.ID).BasePrice.Equal(decimal.NewFromInt(10)))
}

func (s *BulkPriceServiceTestSuite) Test_MatchFallbacks() {
	content := fmt.Sprintf("id;name;price\n%s;;310\n;cable cat6;910\n", s.sku2.ID)

	report, err := s.svc.ReconcilePrices(context.Background(), csvRequest(content))
	s.Require().NoError(err)

	s.Require().Len(report.Rows, 2)
	s.Equal(dto.FoundByID, report.Rows[0].FoundBy)
	s.Equal(s.sku2.ID, report.Rows[0].ProductID)
	s.Equal(dto.FoundByName, report.Rows[1].FoundBy)
	s.Equal(s.sku1.ID, report.Rows[1].ProductID)
	s.Equal(2, report.Applied)
}

func (s *BulkPriceServiceTestSuite) Test_SalePriceAboveBaseIsRowError() {
	report, err := s.svc.ReconcilePrices(context.Background(), csvRequest("SKU-1;1000;2000\nSKU-2;400;350\n"))
	s.Require().NoError(err)

	s.Require().Len(report.Rows, 2)
	s.False(report.Rows[0].Applied)
	s.Contains(report.Rows[0].Error, "sale_price")
	s.True(report.Rows[1].Applied)
	s.Equal(1, report.Failed)
	s.Equal(1, report.Applied)
	s.Equal(string(domain.BatchFailed), report.State)
	s.Equal(1, s.repo.PriceWrites)

	sale := s.repo.get(s.sku2.ID).SalePrice
	s.True(sale.Valid)
	s.True(sale.Decimal.Equal(decimal.NewFromInt(350)))
}

func (s *BulkPriceServiceTestSuite) Test_WriteFailureDoesNotAbortBatch() {
	s.repo.PriceErrs[s.sku1.ID] = fmt.Errorf("%w: connection reset", errs.ErrPersistence)

	report, err := s.svc.ReconcilePrices(context.Background(), csvRequest("SKU-1;1000\nSKU-2;400\n"))
	s.Require().NoError(err)

	s.False(report.Rows[0].Applied)
	s.Contains(report.Rows[0].Error, "connection reset")
	s.True(report.Rows[1].Applied)
	s.Equal(1, report.Failed)
	s.Equal(string(domain.BatchFailed), report.State)
}

func (s *BulkPriceServiceTestSuite) Test_CancelledBatchAccountsForEveryRow() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := s.svc.ReconcilePrices(ctx, csvRequest("SKU-1;1000\nSKU-X;1\nSKU-2;abc\n"))
	s.Require().NoError(err)

	s.Require().Len(report.Rows, 3)
	s.Equal("cancelled", report.Rows[0].Error)
	s.False(report.Rows[0].Applied)
	s.Equal(report.Total, report.Matched+report.Unmatched+report.Invalid)
	s.Equal(0, s.repo.PriceWrites)
}

func (s *BulkPriceServiceTestSuite) Test_RejectedFiles() {
	testCases := []struct {
		Name     string
		Request  dto.BulkPriceRequest
		Expected error
		State    string
	}{
		{Name: "empty upload", Request: csvRequest(""), Expected: errs.ErrValidation},
		{
			Name:     "unsupported type",
			Request:  dto.BulkPriceRequest{File: dto.UploadedFile{Name: "prices.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}},
			Expected: errs.ErrUnsupportedMediaType,
		},
		{Name: "no data rows", Request: csvRequest("\n \n"), Expected: errs.ErrMalformedFile, State: string(domain.BatchFailed)},
		{
			Name:     "too large",
			Request:  csvRequest(strings.Repeat("SKU-1;1\n", (10<<20)/8+1)),
			Expected: errs.ErrPayloadTooLarge,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.Name, func() {
			report, err := s.svc.ReconcilePrices(context.Background(), tc.Request)
			s.ErrorIs(err, tc.Expected)
			s.Equal(tc.State, report.State)
			s.Equal(0, s.repo.PriceWrites)
		})
	}
}

func (s *BulkPriceServiceTestSuite) Test_Windows1251File() {
	s.repo.seed(domain.Product{Name: "Коммутатор", SKU: strPtr("АРТ-7"), BasePrice: decimal.NewFromInt(5)})

	content, err := charmap.Windows1251.NewEncoder().String("Артикул;Цена\nарт-7;7 500,50 руб\n")
	s.Require().NoError(err)

	report, err := s.svc.ReconcilePrices(context.Background(), csvRequest(content))
	s.Require().NoError(err)

	s.Equal("windows-1251", report.Encoding)
	s.Require().Len(report.Rows, 1)
	s.True(report.Rows[0].Applied)
	s.Equal("7500.5", report.Rows[0].NewPrice.String())
}

// Every parsed row is reported once, in file order, and lands in exactly one
// of matched, unmatched or invalid.
func (s *BulkPriceServiceTestSuite) Test_ReportAccountsForEveryRow() {
	rng := rand.New(rand.NewSource(7))
	identifiers := []string{"SKU-1", "SKU-2", "SKU-3", "", "sku-1", s.sku2.ID}
	prices := []string{"100", "abc", "1 200,50", "-5", "300", ""}

	for i := 0; i < 25; i++ {
		s.SetupTest()

		var b strings.Builder
		n := 1 + rng.Intn(12)
		for j := 0; j < n; j++ {
			fmt.Fprintf(&b, "%s;%s\n", identifiers[rng.Intn(len(identifiers))], prices[rng.Intn(len(prices))])
		}
		// A blank identifier with a blank price is a blank line and is not a row.
		b.WriteString("SKU-2;1\n")

		report, err := s.svc.ReconcilePrices(context.Background(), csvRequest(b.String()))
		if errors.Is(err, errs.ErrMalformedFile) {
			continue
		}
		s.Require().NoError(err)

		s.Len(report.Rows, report.Total)
		s.Equal(report.Total, report.Matched+report.Unmatched+report.Invalid)
		for k := 1; k < len(report.Rows); k++ {
			s.Less(report.Rows[k-1].Row, report.Rows[k].Row)
		}
		for _, row := range report.Rows {
			if row.Error == "invalid row" {
				s.False(row.Matched)
				s.False(row.Applied)
			}
		}
	}
}
