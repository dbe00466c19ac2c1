package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusDraft      = "draft"
	StatusActive     = "active"
	StatusArchived   = "archived"
	StatusOutOfStock = "out_of_stock"
)

var ProductStatuses = []string{StatusDraft, StatusActive, StatusArchived, StatusOutOfStock}

type Product struct {
	ID                string              `db:"id" json:"id"`
	Name              string              `db:"name" json:"name"`
	Slug              string              `db:"slug" json:"slug"`
	SKU               *string             `db:"sku" json:"sku"`
	ShortDescription  *string             `db:"short_description" json:"short_description"`
	Description       *string             `db:"description" json:"description"`
	BasePrice         decimal.Decimal     `db:"base_price" json:"base_price"`
	SalePrice         decimal.NullDecimal `db:"sale_price" json:"sale_price"`
	CostPrice         decimal.NullDecimal `db:"cost_price" json:"cost_price"`
	Currency          string              `db:"currency" json:"currency"`
	Weight            decimal.NullDecimal `db:"weight" json:"weight"`
	InventoryQuantity int64               `db:"inventory_quantity" json:"inventory_quantity"`
	MinStockLevel     int64               `db:"min_stock_level" json:"min_stock_level"`
	TrackInventory    bool                `db:"track_inventory" json:"track_inventory"`
	AllowBackorder    bool                `db:"allow_backorder" json:"allow_backorder"`
	IsFeatured        bool                `db:"is_featured" json:"is_featured"`
	IsDigital         bool                `db:"is_digital" json:"is_digital"`
	SortOrder         int64               `db:"sort_order" json:"sort_order"`
	CategoryID        *string             `db:"category_id" json:"category_id"`
	BrandID           *string             `db:"brand_id" json:"brand_id"`
	CollectionID      *string             `db:"collection_id" json:"collection_id"`
	Images            StringList          `db:"images" json:"images"`
	Thumbnail         *string             `db:"thumbnail" json:"thumbnail"`
	Documents         AssetList           `db:"documents" json:"documents"`
	Specifications    AssetList           `db:"specifications" json:"specifications"`
	Dimensions        RawJSON             `db:"dimensions" json:"dimensions"`
	Status            string              `db:"status" json:"status"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

// InStock ignores inventory_quantity when inventory is not tracked.
func (p Product) InStock() bool {
	if !p.TrackInventory {
		return true
	}
	return p.InventoryQuantity > 0 || p.AllowBackorder
}

func (p Product) ThumbnailURL() string {
	if p.Thumbnail != nil && *p.Thumbnail != "" {
		return *p.Thumbnail
	}
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return ""
}

// AssetURLs lists every stored object the record points at.
func (p Product) AssetURLs() []string {
	urls := make([]string, 0, len(p.Images)+len(p.Documents)+len(p.Specifications)+1)
	urls = append(urls, p.Images...)
	if p.Thumbnail != nil && *p.Thumbnail != "" {
		urls = append(urls, *p.Thumbnail)
	}
	for _, a := range p.Documents {
		urls = append(urls, a.URL)
	}
	for _, a := range p.Specifications {
		urls = append(urls, a.URL)
	}
	return urls
}
