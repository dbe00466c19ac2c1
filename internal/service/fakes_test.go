package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"maps"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/domain"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/repository"
	pkgdto "github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memoryRepository is an in-memory ProductRepository that counts writes.
type memoryRepository struct {
	mu       sync.Mutex
	products map[string]domain.Product

	Writes      int
	PriceWrites int
	PriceErrs   map[string]error
	AddErr      error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		products:  make(map[string]domain.Product),
		PriceErrs: make(map[string]error),
	}
}

func (r *memoryRepository) seed(p domain.Product) domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.products[p.ID] = p
	return p
}

func (r *memoryRepository) get(id string) domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id]
}

// HandleTrx restores the previous rows when fn fails.
func (r *memoryRepository) HandleTrx(ctx context.Context, fn func(ctx context.Context, repo repository.ProductRepository) error) error {
	r.mu.Lock()
	snapshot := maps.Clone(r.products)
	r.mu.Unlock()

	if err := fn(ctx, r); err != nil {
		r.mu.Lock()
		r.products = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memoryRepository) AddProduct(ctx context.Context, data domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Writes++
	if r.AddErr != nil {
		return domain.Product{}, r.AddErr
	}
	for _, p := range r.products {
		if p.Slug == data.Slug {
			return domain.Product{}, fmt.Errorf("%w: slug %q", errs.ErrConflict, data.Slug)
		}
	}

	data.ID = uuid.NewString()
	data.CreatedAt = time.Now().UTC()
	data.UpdatedAt = data.CreatedAt
	r.products[data.ID] = data
	return data, nil
}

func (r *memoryRepository) UpdateProduct(ctx context.Context, data domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Writes++
	if _, ok := r.products[data.ID]; !ok {
		return domain.Product{}, errs.ErrNotFound
	}
	data.UpdatedAt = time.Now().UTC()
	r.products[data.ID] = data
	return data, nil
}

func (r *memoryRepository) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %q", errs.ErrNotFound, id)
	}
	return p, nil
}

func (r *memoryRepository) GetProductByIDForUpdate(ctx context.Context, id string) (domain.Product, error) {
	return r.GetProductByID(ctx, id)
}

func (r *memoryRepository) sorted() []domain.Product {
	list := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

func (r *memoryRepository) GetProducts(ctx context.Context, filter pkgdto.Filter) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.sorted()
	start := min(filter.Offset(), len(list))
	end := min(start+filter.Limit, len(list))
	return list[start:end], nil
}

func (r *memoryRepository) CountProducts(ctx context.Context, filter pkgdto.Filter) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint64(len(r.products)), nil
}

func (r *memoryRepository) DeleteProduct(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memoryRepository) FindPriceCandidates(ctx context.Context, lookup domain.PriceLookup) ([]domain.PriceCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	in := func(list []string, v string) bool {
		for _, s := range list {
			if s == v {
				return true
			}
		}
		return false
	}

	var out []domain.PriceCandidate
	for _, p := range r.sorted() {
		sku := ""
		if p.SKU != nil {
			sku = strings.ToLower(strings.TrimSpace(*p.SKU))
		}
		if (sku != "" && in(lookup.SKUs, sku)) || in(lookup.IDs, p.ID) || in(lookup.Names, strings.ToLower(strings.TrimSpace(p.Name))) {
			out = append(out, domain.PriceCandidate{
				ID:        p.ID,
				SKU:       p.SKU,
				Name:      p.Name,
				BasePrice: p.BasePrice,
				SalePrice: p.SalePrice,
				CreatedAt: p.CreatedAt,
			})
		}
	}
	return out, nil
}

func (r *memoryRepository) UpdateProductPrice(ctx context.Context, data domain.PriceUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Writes++
	r.PriceWrites++
	if err := r.PriceErrs[data.ID]; err != nil {
		return err
	}
	p, ok := r.products[data.ID]
	if !ok {
		return errs.ErrNotFound
	}
	if data.SalePrice.Valid && data.SalePrice.Decimal.GreaterThan(data.BasePrice) {
		return fmt.Errorf("%w: sale_price must not exceed base_price", errs.ErrValidation)
	}
	p.BasePrice = data.BasePrice
	p.SalePrice = data.SalePrice
	r.products[data.ID] = p
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	Messages []dto.KafkaMessage
	Err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, msg dto.KafkaMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Messages = append(p.Messages, msg)
	return p.Err
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		types = append(types, m.EventType)
	}
	return types
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, x%h, color.RGBA{R: 200, G: 40, B: 40, A: 255})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageFile(t *testing.T, name string, w, h int) dto.UploadedFile {
	data := pngBytes(t, w, h)
	return dto.UploadedFile{Name: name, ContentType: "image/png", Size: int64(len(data)), Data: data}
}

func strPtr(v string) *string { return &v }
