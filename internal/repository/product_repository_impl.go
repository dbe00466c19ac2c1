package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/domain"
	pkgdto "github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const productColumns = `id, name, slug, sku, short_description, description, base_price, sale_price, cost_price,
	currency, weight, inventory_quantity, min_stock_level, track_inventory, allow_backorder, is_featured,
	is_digital, sort_order, category_id, brand_id, collection_id, images, thumbnail, documents,
	specifications, dimensions, status, created_at, updated_at`

const insertProductQuery = `INSERT INTO products(name, slug, sku, short_description, description, base_price,
	sale_price, cost_price, currency, weight, inventory_quantity, min_stock_level, track_inventory,
	allow_backorder, is_featured, is_digital, sort_order, category_id, brand_id, collection_id, images,
	thumbnail, documents, specifications, dimensions, status, created_at, updated_at)
	VALUES (:name, :slug, :sku, :short_description, :description, :base_price, :sale_price, :cost_price,
	:currency, :weight, :inventory_quantity, :min_stock_level, :track_inventory, :allow_backorder,
	:is_featured, :is_digital, :sort_order, :category_id, :brand_id, :collection_id, :images, :thumbnail,
	:documents, :specifications, :dimensions, :status, :created_at, :updated_at)
	RETURNING ` + productColumns

const updateProductQuery = `UPDATE products SET name = :name, slug = :slug, sku = :sku,
	short_description = :short_description, description = :description, base_price = :base_price,
	sale_price = :sale_price, cost_price = :cost_price, currency = :currency, weight = :weight,
	inventory_quantity = :inventory_quantity, min_stock_level = :min_stock_level,
	track_inventory = :track_inventory, allow_backorder = :allow_backorder, is_featured = :is_featured,
	is_digital = :is_digital, sort_order = :sort_order, category_id = :category_id, brand_id = :brand_id,
	collection_id = :collection_id, images = :images, thumbnail = :thumbnail, documents = :documents,
	specifications = :specifications, dimensions = :dimensions, status = :status, updated_at = :updated_at
	WHERE id = :id
	RETURNING ` + productColumns

// executor is the part of *sqlx.DB and *sqlx.Tx the repository needs.
type executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	PrepareNamedContext(ctx context.Context, query string) (*sqlx.NamedStmt, error)
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

type ProductRepositoryImpl struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

func CreateProductRepository(db *sqlx.DB) ProductRepository {
	return &ProductRepositoryImpl{
		db: db,
	}
}

func (r *ProductRepositoryImpl) exec() executor {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *ProductRepositoryImpl) HandleTrx(ctx context.Context, fn func(ctx context.Context, repo ProductRepository) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		log.Error().Err(err).Str("component", "HandleTrx").Msg("")
		return translateError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else if cerr := tx.Commit(); cerr != nil {
			log.Error().Err(cerr).Str("component", "HandleTrx").Msg("")
			err = translateError(cerr)
		}
	}()

	txRepo := &ProductRepositoryImpl{
		db: r.db,
		tx: tx,
	}

	err = fn(ctx, txRepo)

	return err
}

func (r *ProductRepositoryImpl) AddProduct(ctx context.Context, data domain.Product) (res domain.Product, err error) {
	now := time.Now().UTC()
	data.CreatedAt = now
	data.UpdatedAt = now

	res, err = r.namedGet(ctx, insertProductQuery, data)
	if err != nil {
		log.Error().Err(err).Str("component", "AddProduct").Msg("")
		return res, translateError(err)
	}

	return res, nil
}

func (r *ProductRepositoryImpl) UpdateProduct(ctx context.Context, data domain.Product) (res domain.Product, err error) {
	data.UpdatedAt = time.Now().UTC()

	res, err = r.namedGet(ctx, updateProductQuery, data)
	if err != nil {
		log.Error().Err(err).Str("component", "UpdateProduct").Msg("")
		return res, translateError(err)
	}

	return res, nil
}

func (r *ProductRepositoryImpl) namedGet(ctx context.Context, query string, data domain.Product) (res domain.Product, err error) {
	nstmt, err := r.exec().PrepareNamedContext(ctx, query)
	if err != nil {
		return
	}
	defer nstmt.Close()

	err = nstmt.GetContext(ctx, &res, data)
	return
}

func (r *ProductRepositoryImpl) GetProductByID(ctx context.Context, id string) (data domain.Product, err error) {
	return r.getProduct(ctx, id, false)
}

// GetProductByIDForUpdate locks the row until the surrounding transaction ends.
func (r *ProductRepositoryImpl) GetProductByIDForUpdate(ctx context.Context, id string) (data domain.Product, err error) {
	return r.getProduct(ctx, id, true)
}

func (r *ProductRepositoryImpl) getProduct(ctx context.Context, id string, lock bool) (data domain.Product, err error) {
	if _, err = uuid.Parse(id); err != nil {
		return data, fmt.Errorf("%w: product %q", errs.ErrNotFound, id)
	}

	query := "SELECT " + productColumns + " FROM products WHERE id = $1"
	if lock {
		query += " FOR UPDATE"
	}

	err = r.exec().GetContext(ctx, &data, query, id)
	if err != nil {
		log.Error().Err(err).Str("component", "GetProductByID").Msg("")
		return data, translateError(err)
	}

	return data, nil
}

func productFilterClause(filter pkgdto.Filter) (string, map[string]any) {
	var conds []string
	args := make(map[string]any)

	if filter.Status != "" {
		conds = append(conds, "status = :status")
		args["status"] = filter.Status
	}
	if filter.CategoryID != "" {
		conds = append(conds, "CAST(category_id AS text) = :category_id")
		args["category_id"] = filter.CategoryID
	}
	if filter.BrandID != "" {
		conds = append(conds, "CAST(brand_id AS text) = :brand_id")
		args["brand_id"] = filter.BrandID
	}
	if featured := filter.FeaturedOnly(); featured != nil {
		conds = append(conds, "is_featured = :is_featured")
		args["is_featured"] = *featured
	}
	if q := strings.TrimSpace(filter.Q); q != "" {
		conds = append(conds, "(name ILIKE :q OR sku ILIKE :q OR slug ILIKE :q)")
		args["q"] = "%" + q + "%"
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *ProductRepositoryImpl) GetProducts(ctx context.Context, filter pkgdto.Filter) (data []domain.Product, err error) {
	where, args := productFilterClause(filter)
	query := "SELECT " + productColumns + " FROM products" + where + " ORDER BY sort_order ASC, created_at DESC"

	if filter.Limit != 0 && filter.Page != 0 {
		query += " LIMIT :limit OFFSET :offset"
		args["limit"] = filter.Limit
		args["offset"] = filter.Offset()
	}

	nstmt, err := r.exec().PrepareNamedContext(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("component", "GetProducts").Msg("")
		return nil, translateError(err)
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &data, args)
	if err != nil {
		log.Error().Err(err).Str("component", "GetProducts").Msg("")
		return nil, translateError(err)
	}

	return data, nil
}

func (r *ProductRepositoryImpl) CountProducts(ctx context.Context, filter pkgdto.Filter) (count uint64, err error) {
	where, args := productFilterClause(filter)

	nstmt, err := r.exec().PrepareNamedContext(ctx, "SELECT COUNT(*) FROM products"+where)
	if err != nil {
		log.Error().Err(err).Str("component", "CountProducts").Msg("")
		return 0, translateError(err)
	}
	defer nstmt.Close()

	err = nstmt.GetContext(ctx, &count, args)
	if err != nil {
		log.Error().Err(err).Str("component", "CountProducts").Msg("")
		return 0, translateError(err)
	}

	return count, nil
}

func (r *ProductRepositoryImpl) DeleteProduct(ctx context.Context, id string) (err error) {
	if _, err = uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: product %q", errs.ErrNotFound, id)
	}

	result, err := r.exec().ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		log.Error().Err(err).Str("component", "DeleteProduct").Msg("")
		return translateError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return translateError(err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: product %q", errs.ErrNotFound, id)
	}

	return nil
}

// FindPriceCandidates returns every product whose trimmed lower-cased sku or
// name, or whose id, appears in lookup.
func (r *ProductRepositoryImpl) FindPriceCandidates(ctx context.Context, lookup domain.PriceLookup) (data []domain.PriceCandidate, err error) {
	if len(lookup.SKUs) == 0 && len(lookup.IDs) == 0 && len(lookup.Names) == 0 {
		return nil, nil
	}

	query := `SELECT id, sku, name, base_price, sale_price, created_at FROM products
		WHERE lower(btrim(sku)) = ANY($1) OR id::text = ANY($2) OR lower(btrim(name)) = ANY($3)
		ORDER BY created_at DESC`

	err = r.exec().SelectContext(ctx, &data, query, pq.Array(lookup.SKUs), pq.Array(lookup.IDs), pq.Array(lookup.Names))
	if err != nil {
		log.Error().Err(err).Str("component", "FindPriceCandidates").Msg("")
		return nil, translateError(err)
	}

	return data, nil
}

func (r *ProductRepositoryImpl) UpdateProductPrice(ctx context.Context, data domain.PriceUpdate) (err error) {
	if data.UpdatedAt.IsZero() {
		data.UpdatedAt = time.Now().UTC()
	}

	result, err := r.exec().NamedExecContext(ctx, "UPDATE products SET base_price = :base_price, sale_price = :sale_price, updated_at = :updated_at WHERE id = :id", data)
	if err != nil {
		log.Error().Err(err).Str("component", "UpdateProductPrice").Msg("")
		return translateError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return translateError(err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: product %q", errs.ErrNotFound, data.ID)
	}

	return nil
}
