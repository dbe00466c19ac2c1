package dto

import "github.com/shopspring/decimal"

const (
	BulkModePreview = "preview"
	BulkModeUpdate  = "update"

	FoundBySKU  = "sku"
	FoundByID   = "id"
	FoundByName = "name"
)

type BulkPriceRequest struct {
	File        UploadedFile
	Mode        string
	SelectedIDs string
}

type RowResult struct {
	Row          int              `json:"row"`
	Identifier   string           `json:"identifier"`
	Matched      bool             `json:"matched"`
	Applied      bool             `json:"applied"`
	Changed      bool             `json:"changed"`
	Skipped      bool             `json:"skipped,omitempty"`
	Error        string           `json:"error,omitempty"`
	Detail       string           `json:"detail,omitempty"`
	Warning      string           `json:"warning,omitempty"`
	FoundBy      string           `json:"found_by,omitempty"`
	ProductID    string           `json:"product_id,omitempty"`
	ProductName  string           `json:"product_name,omitempty"`
	OldPrice     *decimal.Decimal `json:"old_price,omitempty"`
	NewPrice     *decimal.Decimal `json:"new_price,omitempty"`
	OldSalePrice *decimal.Decimal `json:"old_sale_price,omitempty"`
	NewSalePrice *decimal.Decimal `json:"new_sale_price,omitempty"`
}

type BulkPriceReport struct {
	Mode      string      `json:"mode"`
	State     string      `json:"state"`
	Encoding  string      `json:"encoding,omitempty"`
	Total     int         `json:"total"`
	Matched   int         `json:"matched"`
	Unmatched int         `json:"unmatched"`
	Invalid   int         `json:"invalid"`
	Applied   int         `json:"applied"`
	Failed    int         `json:"failed"`
	Skipped   int         `json:"skipped"`
	Unchanged int         `json:"unchanged"`
	Rows      []RowResult `json:"rows"`
}
