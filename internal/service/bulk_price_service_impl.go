package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/config"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/domain"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/infrastructure/metrics"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/pricefile"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/repository"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/formschema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	rowErrorNotSelected = "not selected"
	rowErrorCancelled   = "cancelled"

	pricesEventKey = "bulk-price-update"
)

type BulkPriceServiceImpl struct {
	repo      repository.ProductRepository
	publisher EventPublisher
	config    config.Config
	now       func() time.Time
}

func CreateBulkPriceService(repo repository.ProductRepository, publisher EventPublisher, config config.Config) BulkPriceService {
	return &BulkPriceServiceImpl{
		repo:      repo,
		publisher: publisher,
		config:    config,
		now:       time.Now,
	}
}

// ReconcilePrices parses the uploaded price list, matches each row to a
// product and applies every changed price as its own write. Row level
// problems never fail the request; the report accounts for every row once.
func (s *BulkPriceServiceImpl) ReconcilePrices(ctx context.Context, req dto.BulkPriceRequest) (report dto.BulkPriceReport, err error) {
	format, mode, selected, err := s.validateRequest(req)
	if err != nil {
		return report, err
	}
	report.Mode = mode
	report.Rows = []dto.RowResult{}

	batch := domain.NewBatch()
	doc, parseErr := pricefile.Parse(req.File.Data, format)
	if err = batch.Transition(domain.BatchParsed); err != nil {
		return report, err
	}
	if parseErr != nil {
		return s.fail(batch, report, parseErr)
	}
	report.Encoding = doc.Encoding
	report.Total = len(doc.Rows)

	index, err := s.loadCandidates(ctx, doc.Rows)
	if err != nil {
		return s.fail(batch, report, err)
	}
	if err = batch.Transition(domain.BatchMatched); err != nil {
		return report, err
	}

	var (
		changes     []dto.PriceChange
		applyFailed bool
	)
	report.Rows = make([]dto.RowResult, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		res, change, outcome := s.reconcileRow(ctx, row, index, mode, selected)
		report.Rows = append(report.Rows, res)
		metrics.BulkPriceRows.WithLabelValues(outcome).Inc()

		switch outcome {
		case "invalid":
			report.Invalid++
			report.Failed++
		case "unmatched":
			report.Unmatched++
		case "unchanged":
			report.Matched++
			report.Unchanged++
		case "skipped":
			report.Matched++
			report.Skipped++
		case "preview":
			report.Matched++
		case "applied":
			report.Matched++
			report.Applied++
			changes = append(changes, *change)
		default:
			report.Matched++
			report.Failed++
			applyFailed = true
		}
	}

	if err = batch.Transition(domain.BatchApplied); err != nil {
		return report, err
	}

	if len(changes) > 0 {
		// Writes already committed stay committed even if the caller went away.
		s.publish(context.WithoutCancel(ctx), dto.KafkaMessage{
			EventType: dto.EventProductPricesUpdated,
			Data:      dto.PricesUpdatedEvent{Changes: changes},
		})
	}

	final := domain.BatchReported
	if applyFailed {
		final = domain.BatchFailed
	}
	if err = batch.Transition(final); err != nil {
		return report, err
	}
	report.State = string(batch.State)

	log.Info().Str("component", "ReconcilePrices").Str("mode", mode).Str("state", report.State).
		Int("total", report.Total).Int("matched", report.Matched).Int("applied", report.Applied).
		Int("failed", report.Failed).Msg("bulk price batch finished")

	return report, nil
}

func (s *BulkPriceServiceImpl) fail(batch *domain.Batch, report dto.BulkPriceReport, cause error) (dto.BulkPriceReport, error) {
	if err := batch.Transition(domain.BatchFailed); err != nil {
		log.Error().Err(err).Str("component", "ReconcilePrices").Msg("")
	}
	report.State = string(batch.State)
	return report, cause
}

func (s *BulkPriceServiceImpl) validateRequest(req dto.BulkPriceRequest) (format pricefile.Format, mode string, selected map[string]bool, err error) {
	if len(req.File.Data) == 0 {
		return format, mode, nil, fmt.Errorf("%w: a non-empty price file is required", errs.ErrValidation)
	}

	maxBytes := s.config.UploadConfig.PriceFileMaxBytes
	if maxBytes <= 0 {
		maxBytes = pricefile.DefaultMaxBytes
	}
	if int64(len(req.File.Data)) > maxBytes {
		return format, mode, nil, fmt.Errorf("%w: price file is %d bytes, limit is %d", errs.ErrPayloadTooLarge, len(req.File.Data), maxBytes)
	}

	format, err = pricefile.DetectFormat(req.File.Name, req.File.ContentType)
	if err != nil {
		return format, mode, nil, err
	}

	mode = strings.ToLower(strings.TrimSpace(req.Mode))
	switch mode {
	case "":
		mode = dto.BulkModeUpdate
	case dto.BulkModeUpdate, dto.BulkModePreview:
	default:
		return format, mode, nil, fmt.Errorf("%w: mode must be %s or %s", errs.ErrValidation, dto.BulkModePreview, dto.BulkModeUpdate)
	}

	// A malformed selection is rejected rather than widened to every row.
	if mode == dto.BulkModeUpdate && strings.TrimSpace(req.SelectedIDs) != "" {
		ids, ok := formschema.ParseOrNull[[]string](req.SelectedIDs).Get()
		if !ok {
			return format, mode, nil, fmt.Errorf("%w: selected_ids must be a JSON array of product ids", errs.ErrValidation)
		}
		selected = make(map[string]bool, len(ids))
		for _, id := range ids {
			selected[strings.ToLower(strings.TrimSpace(id))] = true
		}
	}

	return format, mode, selected, nil
}

// candidateIndex resolves row identifiers. Every list is ordered newest
// first, so the head of a list is the tie-break winner.
type candidateIndex struct {
	bySKU  map[string][]*domain.PriceCandidate
	byID   map[string]*domain.PriceCandidate
	byName map[string][]*domain.PriceCandidate
}

func (s *BulkPriceServiceImpl) loadCandidates(ctx context.Context, rows []pricefile.Row) (candidateIndex, error) {
	index := candidateIndex{
		bySKU:  make(map[string][]*domain.PriceCandidate),
		byID:   make(map[string]*domain.PriceCandidate),
		byName: make(map[string][]*domain.PriceCandidate),
	}

	var lookup domain.PriceLookup
	seen := make(map[string]bool)
	add := func(list *[]string, kind, v string) {
		if v == "" || seen[kind+v] {
			return
		}
		seen[kind+v] = true
		*list = append(*list, v)
	}
	for _, row := range rows {
		if row.Invalid {
			continue
		}
		add(&lookup.SKUs, "sku", matchKey(row.Identifier))
		if id, err := uuid.Parse(strings.TrimSpace(row.Identifier)); err == nil {
			add(&lookup.IDs, "id", id.String())
		}
		add(&lookup.Names, "name", matchKey(rowName(row)))
	}

	candidates, err := s.repo.FindPriceCandidates(ctx, lookup)
	if err != nil {
		return index, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	for i := range candidates {
		c := &candidates[i]
		if c.SKU != nil {
			if key := matchKey(*c.SKU); key != "" {
				index.bySKU[key] = append(index.bySKU[key], c)
			}
		}
		index.byID[strings.ToLower(c.ID)] = c
		index.byName[matchKey(c.Name)] = append(index.byName[matchKey(c.Name)], c)
	}

	return index, nil
}

// match tries SKU, then product id, then name. It returns the winning
// candidate, how it was found and how many candidates matched.
func (ix candidateIndex) match(row pricefile.Row) (*domain.PriceCandidate, string, int) {
	if list := ix.bySKU[matchKey(row.Identifier)]; len(list) > 0 {
		return list[0], dto.FoundBySKU, len(list)
	}
	if id, err := uuid.Parse(strings.TrimSpace(row.Identifier)); err == nil {
		if c, ok := ix.byID[id.String()]; ok {
			return c, dto.FoundByID, 1
		}
	}
	if list := ix.byName[matchKey(rowName(row))]; len(list) > 0 {
		return list[0], dto.FoundByName, len(list)
	}
	return nil, "", 0
}

// reconcileRow decides the outcome of one row and performs its write.
// Matched candidates are updated in place so later rows for the same product
// see the new prices.
func (s *BulkPriceServiceImpl) reconcileRow(ctx context.Context, row pricefile.Row, index candidateIndex, mode string, selected map[string]bool) (res dto.RowResult, change *dto.PriceChange, outcome string) {
	res = dto.RowResult{Row: row.Line, Identifier: row.Identifier}

	if row.Invalid {
		res.Error = pricefile.ReasonInvalidRow
		res.Detail = row.Problem
		return res, nil, "invalid"
	}

	c, foundBy, matches := index.match(row)
	if c == nil {
		return res, nil, "unmatched"
	}

	res.Matched = true
	res.FoundBy = foundBy
	res.ProductID = c.ID
	res.ProductName = c.Name
	if matches > 1 {
		res.Warning = fmt.Sprintf("%d products match this %s; using the most recently created", matches, foundBy)
	}

	newBase := row.Price
	newSale := row.SalePrice
	if !newSale.Valid {
		newSale = c.SalePrice
	}
	res.OldPrice = decimalPtr(c.BasePrice)
	res.NewPrice = decimalPtr(newBase)
	res.OldSalePrice = nullDecimalPtr(c.SalePrice)
	res.NewSalePrice = nullDecimalPtr(newSale)

	if err := domain.ValidatePricing(newBase, newSale, decimal.NullDecimal{}); err != nil {
		res.Error = err.Error()
		return res, nil, "rejected"
	}

	if samePrice(c.BasePrice, newBase) && sameNullPrice(c.SalePrice, newSale) {
		res.Applied = mode == dto.BulkModeUpdate
		return res, nil, "unchanged"
	}
	res.Changed = true

	if selected != nil && !selected[strings.ToLower(c.ID)] {
		res.Skipped = true
		res.Error = rowErrorNotSelected
		return res, nil, "skipped"
	}

	if mode == dto.BulkModePreview {
		return res, nil, "preview"
	}

	if ctx.Err() != nil {
		res.Error = rowErrorCancelled
		return res, nil, "cancelled"
	}

	err := s.repo.UpdateProductPrice(ctx, domain.PriceUpdate{
		ID:        c.ID,
		BasePrice: newBase,
		SalePrice: newSale,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("component", "ReconcilePrices").Int("row", row.Line).Str("product_id", c.ID).Msg("")
		res.Error = err.Error()
		return res, nil, "failed"
	}

	c.BasePrice = newBase
	c.SalePrice = newSale
	res.Applied = true

	change = &dto.PriceChange{ProductID: c.ID, BasePrice: newBase.StringFixed(2)}
	if newSale.Valid {
		sale := newSale.Decimal.StringFixed(2)
		change.SalePrice = &sale
	}
	return res, change, "applied"
}

func (s *BulkPriceServiceImpl) publish(ctx context.Context, msg dto.KafkaMessage) {
	if err := s.publisher.Publish(ctx, pricesEventKey, msg); err != nil {
		log.Error().Err(err).Str("component", "ReconcilePrices").Str("event_type", msg.EventType).Msg("")
	}
}

func matchKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rowName(row pricefile.Row) string {
	if row.Name != "" {
		return row.Name
	}
	return row.Identifier
}

// samePrice compares at cent precision, the precision prices are stored at.
func samePrice(a, b decimal.Decimal) bool {
	return a.Round(2).Equal(b.Round(2))
}

func sameNullPrice(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || samePrice(a.Decimal, b.Decimal)
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func nullDecimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	return decimalPtr(d.Decimal)
}
