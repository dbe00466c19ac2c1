package adminclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
)

type PriceUpload struct {
	FileName    string
	Data        []byte
	Mode        string
	SelectedIDs []string
}

// UpdatePrices submits a price file. Cached product reads are dropped once
// an update batch is accepted, since any of them may now be stale.
func (c *Client) UpdatePrices(ctx context.Context, upload PriceUpload) (report dto.BulkPriceReport, err error) {
	fields := map[string]string{}
	if upload.Mode != "" {
		fields["mode"] = upload.Mode
	}
	if len(upload.SelectedIDs) > 0 {
		ids, err := json.Marshal(upload.SelectedIDs)
		if err != nil {
			return report, err
		}
		fields["selected_ids"] = string(ids)
	}

	body, contentType, err := multipartBody(fields, []FilePart{{Field: "file", Name: upload.FileName, Data: upload.Data}})
	if err != nil {
		return report, err
	}

	err = c.mutate(ctx, request{method: http.MethodPost, path: "/admin/products/bulk-update-prices", body: body, contentType: contentType}, &report)
	if err != nil {
		return report, err
	}

	if report.Mode != dto.BulkModePreview {
		c.cache.InvalidatePrefix(ProductsPrefix)
	}
	return report, nil
}

func (c *Client) DeleteObject(ctx context.Context, key string) (res dto.DeleteObjectResponse, err error) {
	segments := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	err = c.mutate(ctx, request{method: http.MethodDelete, path: "/admin/uploads/" + strings.Join(segments, "/")}, &res)
	return res, err
}
