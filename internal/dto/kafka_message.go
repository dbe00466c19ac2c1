package dto

const (
	EventProductSaved         = "product_saved"
	EventProductDeleted       = "product_deleted"
	EventProductPricesUpdated = "product_prices_updated"
	EventObjectDeleted        = "object_deleted"
)

type KafkaMessage struct {
	EventType string      `json:"event_type"`
	Data      interface{} `json:"data"`
}

type ProductEvent struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku,omitempty"`
	Status    string `json:"status,omitempty"`
}

type PriceChange struct {
	ProductID string  `json:"product_id"`
	BasePrice string  `json:"base_price"`
	SalePrice *string `json:"sale_price"`
}

type PricesUpdatedEvent struct {
	Changes []PriceChange `json:"changes"`
}

type ObjectEvent struct {
	Key string `json:"key"`
}
