package dto

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

type Filter struct {
	Limit      int    `query:"limit"`
	Page       int    `query:"page"`
	Q          string `query:"q"`
	Status     string `query:"status"`
	CategoryID string `query:"category_id"`
	BrandID    string `query:"brand_id"`
	Featured   string `query:"featured"`
}

// Normalize clamps paging to the accepted range.
func (f *Filter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
}

// FeaturedOnly reports the featured filter, nil when absent or unparsable.
func (f Filter) FeaturedOnly() *bool {
	switch f.Featured {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type PaginationMetadata struct {
	TotalCount uint64 `json:"total_count"`
	Page       uint64 `json:"page"`
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"has_more"`
}

type PaginationResponse[T any] struct {
	Metadata PaginationMetadata `json:"_metadata"`
	Records  []T                `json:"records"`
}
