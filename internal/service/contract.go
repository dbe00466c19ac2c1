package service

import (
	"context"
	"time"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/domain"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/imaging"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/infrastructure/storage"
	pkgdto "github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/dto"
)

type ProductService interface {
	SaveProduct(ctx context.Context, form dto.ProductForm) (data domain.Product, err error)
	GetProduct(ctx context.Context, id string) (data domain.Product, err error)
	GetProducts(ctx context.Context, filter pkgdto.Filter) (res pkgdto.PaginationResponse[domain.Product], err error)
	DeleteProduct(ctx context.Context, id string, purgeAssets bool) (err error)
}

type BulkPriceService interface {
	ReconcilePrices(ctx context.Context, req dto.BulkPriceRequest) (report dto.BulkPriceReport, err error)
}

type UploadService interface {
	Upload(ctx context.Context, req dto.UploadRequest) (res dto.UploadResponse, err error)
	Presign(ctx context.Context, req dto.PresignRequest) (res dto.PresignResponse, err error)
	SignedURL(ctx context.Context, key string, ttlSeconds int) (res dto.SignedURLResponse, err error)
	DeleteObject(ctx context.Context, key string) (res dto.DeleteObjectResponse, err error)
}

type ImageOptimizerService interface {
	Optimize(ctx context.Context, req dto.OptimizeImageRequest) (res dto.OptimizedImage, err error)
	SweepExpired() int
}

// ObjectStorage is what the services need from the storage gateway.
type ObjectStorage interface {
	Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) (storage.StoredObject, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignedUploadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Get(ctx context.Context, key string) ([]byte, string, error)
	GenerateKey(originalName, prefix string) string
	PublicURL(key string) string
	KeyFromURL(rawURL string) (string, bool)
}

type ImageProcessor interface {
	Validate(declaredType string, size int64) error
	DefaultOptions(thumbnail bool) imaging.Options
	ProcessAll(ctx context.Context, inputs []imaging.Input) ([]imaging.Result, error)
	Resize(data []byte, declaredType string, opts imaging.ResizeOptions) (imaging.Derivative, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, msg dto.KafkaMessage) error
}
