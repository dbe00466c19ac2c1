package repository

import (
	"context"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/domain"
	pkgdto "github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/dto"
)

type ProductRepository interface {
	HandleTrx(ctx context.Context, fn func(ctx context.Context, repo ProductRepository) error) error

	AddProduct(ctx context.Context, data domain.Product) (res domain.Product, err error)
	UpdateProduct(ctx context.Context, data domain.Product) (res domain.Product, err error)
	GetProductByID(ctx context.Context, id string) (data domain.Product, err error)
	GetProductByIDForUpdate(ctx context.Context, id string) (data domain.Product, err error)
	GetProducts(ctx context.Context, filter pkgdto.Filter) (data []domain.Product, err error)
	CountProducts(ctx context.Context, filter pkgdto.Filter) (count uint64, err error)
	DeleteProduct(ctx context.Context, id string) (err error)

	FindPriceCandidates(ctx context.Context, lookup domain.PriceLookup) (data []domain.PriceCandidate, err error)
	UpdateProductPrice(ctx context.Context, data domain.PriceUpdate) (err error)
}

type UserRepository interface {
	GetUserProfile(ctx context.Context, id string) (data domain.UserProfile, err error)
}
