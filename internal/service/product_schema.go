package service

import (
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/domain"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/formschema"
	"github.com/shopspring/decimal"
)

var referenceNullWords = []string{"null", "no-brand", "no-collection", "no-category"}

// productSchema declares every multipart field a product submission may carry.
func productSchema(defaultCurrency string) formschema.Schema {
	return formschema.New(
		formschema.Field{Name: "name", Kind: formschema.KindString, Required: true},
		formschema.Field{Name: "slug", Kind: formschema.KindString},
		formschema.Field{Name: "sku", Kind: formschema.KindString},
		formschema.Field{Name: "short_description", Kind: formschema.KindString},
		formschema.Field{Name: "description", Kind: formschema.KindString},
		formschema.Field{Name: "base_price", Kind: formschema.KindDecimal, Required: true, NonNegative: true},
		formschema.Field{Name: "sale_price", Kind: formschema.KindDecimal, NonNegative: true},
		formschema.Field{Name: "cost_price", Kind: formschema.KindDecimal, NonNegative: true},
		formschema.Field{Name: "weight", Kind: formschema.KindDecimal, NonNegative: true},
		formschema.Field{Name: "currency", Kind: formschema.KindString, Default: defaultCurrency},
		formschema.Field{Name: "inventory_quantity", Kind: formschema.KindInt, Default: "0", NonNegative: true},
		formschema.Field{Name: "min_stock_level", Kind: formschema.KindInt, Default: "0", NonNegative: true},
		formschema.Field{Name: "sort_order", Kind: formschema.KindInt, Default: "0", NonNegative: true},
		formschema.Field{Name: "track_inventory", Kind: formschema.KindBool},
		formschema.Field{Name: "allow_backorder", Kind: formschema.KindBool},
		formschema.Field{Name: "is_featured", Kind: formschema.KindBool},
		formschema.Field{Name: "is_digital", Kind: formschema.KindBool},
		formschema.Field{Name: "category_id", Kind: formschema.KindReference, NullWords: referenceNullWords},
		formschema.Field{Name: "brand_id", Kind: formschema.KindReference, NullWords: referenceNullWords},
		formschema.Field{Name: "collection_id", Kind: formschema.KindReference, NullWords: referenceNullWords},
		formschema.Field{Name: "status", Kind: formschema.KindEnum, Options: domain.ProductStatuses, Default: domain.StatusDraft},
		formschema.Field{Name: "dimensions", Kind: formschema.KindJSON},
		formschema.Field{Name: "specifications", Kind: formschema.KindJSON},
		formschema.Field{Name: "existing_images", Kind: formschema.KindJSON},
		formschema.Field{Name: "existing_documents", Kind: formschema.KindJSON},
	)
}

// applyProductValues copies every submitted scalar onto p. Absent fields keep
// the value p already has.
func applyProductValues(p *domain.Product, vals formschema.Values) {
	setString := func(name string, dst *string) {
		if v := vals.Get(name); v.Present && !v.Null {
			*dst = v.Str
		}
	}
	setNullable := func(name string, dst **string) {
		if v := vals.Get(name); v.Present {
			*dst = v.NullableString()
		}
	}
	setNullDecimal := func(name string, dst *decimal.NullDecimal) {
		if v := vals.Get(name); v.Present {
			*dst = toNullDecimal(v.NullableDecimal())
		}
	}
	setInt := func(name string, dst *int64) {
		if v := vals.Get(name); v.Present {
			*dst = v.Int
		}
	}
	setBool := func(name string, dst *bool) {
		if v := vals.Get(name); v.Present {
			*dst = v.Bool
		}
	}

	setString("name", &p.Name)
	setString("slug", &p.Slug)
	setString("currency", &p.Currency)
	setString("status", &p.Status)
	setNullable("sku", &p.SKU)
	setNullable("short_description", &p.ShortDescription)
	setNullable("description", &p.Description)
	setNullable("category_id", &p.CategoryID)
	setNullable("brand_id", &p.BrandID)
	setNullable("collection_id", &p.CollectionID)

	if v := vals.Get("base_price"); v.Present && !v.Null {
		p.BasePrice = v.Decimal
	}
	setNullDecimal("sale_price", &p.SalePrice)
	setNullDecimal("cost_price", &p.CostPrice)
	setNullDecimal("weight", &p.Weight)

	setInt("inventory_quantity", &p.InventoryQuantity)
	setInt("min_stock_level", &p.MinStockLevel)
	setInt("sort_order", &p.SortOrder)

	setBool("track_inventory", &p.TrackInventory)
	setBool("allow_backorder", &p.AllowBackorder)
	setBool("is_featured", &p.IsFeatured)
	setBool("is_digital", &p.IsDigital)

	// Malformed dimensions degrade to null instead of failing the request.
	if v := vals.Get("dimensions"); v.Present {
		if raw, ok := v.JSON.Get(); ok {
			p.Dimensions = domain.RawJSON(raw)
		} else {
			p.Dimensions = nil
		}
	}
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
