package adminclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"strconv"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/domain"
	pkgdto "github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/dto"
	"github.com/shopspring/decimal"
)

type ProductList = pkgdto.PaginationResponse[domain.Product]

// FilePart is one file attached to a multipart submission.
type FilePart struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// SaveProductRequest creates a product when ID is empty and updates it
// otherwise.
type SaveProductRequest struct {
	ID     string
	Fields map[string]string
	Files  []FilePart
}

func filterQuery(filter pkgdto.Filter) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	set("q", filter.Q)
	set("status", filter.Status)
	set("category_id", filter.CategoryID)
	set("brand_id", filter.BrandID)
	set("featured", filter.Featured)
	return q
}

func (c *Client) ListProducts(ctx context.Context, filter pkgdto.Filter) (res ProductList, err error) {
	query := filterQuery(filter)
	key := productListKey(query)
	if cached, ok := get[ProductList](c.cache, key); ok {
		return cached, nil
	}

	path := "/admin/products"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	if err = c.read(ctx, request{method: http.MethodGet, path: path}, &res); err != nil {
		return res, err
	}

	c.cache.Set(key, res)
	return res, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (res domain.Product, err error) {
	key := productKey(id)
	if cached, ok := get[domain.Product](c.cache, key); ok {
		return cached, nil
	}

	if err = c.read(ctx, request{method: http.MethodGet, path: "/admin/products/" + url.PathEscape(id)}, &res); err != nil {
		return res, err
	}

	c.cache.Set(key, res)
	return res, nil
}

// SaveProduct patches cached copies of an existing product before the call
// and restores them if the server rejects the change.
func (c *Client) SaveProduct(ctx context.Context, req SaveProductRequest) (res domain.Product, err error) {
	fields := req.Fields
	if req.ID != "" {
		fields = make(map[string]string, len(req.Fields)+1)
		for k, v := range req.Fields {
			fields[k] = v
		}
		fields["id"] = req.ID
	}

	body, contentType, err := multipartBody(fields, req.Files)
	if err != nil {
		return res, err
	}

	snapshot := c.cache.Snapshot(ProductsPrefix)
	if req.ID != "" {
		patch := func(p domain.Product) domain.Product {
			if p.ID != req.ID {
				return p
			}
			return applyFields(p, req.Fields)
		}
		update(c.cache, productKey(req.ID), patch)
		update(c.cache, ProductsPrefix+"list|", func(l ProductList) ProductList {
			l.Records = mapRecords(l.Records, patch)
			return l
		})
	}

	err = c.mutate(ctx, request{method: http.MethodPost, path: "/admin/products", body: body, contentType: contentType}, &res)
	if err != nil {
		c.cache.Restore(snapshot)
		return res, err
	}

	c.cache.InvalidatePrefix(ProductsPrefix)
	c.cache.Set(productKey(res.ID), res)
	return res, nil
}

// DeleteProduct drops the product from cached lists before the call and
// restores them if the server refuses.
func (c *Client) DeleteProduct(ctx context.Context, id string, purgeAssets bool) (err error) {
	snapshot := c.cache.Snapshot(ProductsPrefix)
	c.cache.Invalidate(productKey(id))
	update(c.cache, ProductsPrefix+"list|", func(l ProductList) ProductList {
		kept := slices.DeleteFunc(slices.Clone(l.Records), func(p domain.Product) bool { return p.ID == id })
		if removed := len(l.Records) - len(kept); removed > 0 && l.Metadata.TotalCount >= uint64(removed) {
			l.Metadata.TotalCount -= uint64(removed)
		}
		l.Records = kept
		return l
	})

	path := "/admin/products/" + url.PathEscape(id)
	if purgeAssets {
		path += "?purge_assets=true"
	}

	if err = c.mutate(ctx, request{method: http.MethodDelete, path: path}, nil); err != nil {
		c.cache.Restore(snapshot)
		return err
	}

	c.cache.InvalidatePrefix(ProductsPrefix)
	return nil
}

func mapRecords(records []domain.Product, fn func(domain.Product) domain.Product) []domain.Product {
	out := make([]domain.Product, len(records))
	for i, p := range records {
		out[i] = fn(p)
	}
	return out
}

// applyFields mirrors the scalar edits the server is expected to accept.
// Fields it cannot interpret are left for the server's answer to fill in.
func applyFields(p domain.Product, fields map[string]string) domain.Product {
	if v, ok := fields["name"]; ok && v != "" {
		p.Name = v
	}
	if v, ok := fields["slug"]; ok && v != "" {
		p.Slug = v
	}
	if v, ok := fields["status"]; ok && slices.Contains(domain.ProductStatuses, v) {
		p.Status = v
	}
	if v, ok := fields["base_price"]; ok {
		if d, err := decimal.NewFromString(v); err == nil {
			p.BasePrice = d
		}
	}
	if v, ok := fields["sale_price"]; ok {
		if v == "" || v == "null" {
			p.SalePrice = decimal.NullDecimal{}
		} else if d, err := decimal.NewFromString(v); err == nil {
			p.SalePrice = decimal.NewNullDecimal(d)
		}
	}
	if v, ok := fields["inventory_quantity"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			p.InventoryQuantity = n
		}
	}
	if v, ok := fields["is_featured"]; ok {
		p.IsFeatured = v == "true"
	}
	return p
}

func multipartBody(fields map[string]string, files []FilePart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", err
		}
	}

	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		if f.ContentType != "" {
			h.Set("Content-Type", f.ContentType)
		}
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
