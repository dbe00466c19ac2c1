package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_storage_operations_total",
		Help: "Object storage operations by operation and result.",
	}, []string{"operation", "result"})

	BulkPriceRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_bulk_price_rows_total",
		Help: "Bulk price rows by outcome.",
	}, []string{"outcome"})

	ImageDerivatives = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_image_derivatives_total",
		Help: "Image derivatives produced by kind.",
	}, []string{"kind"})

	OptimizerCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_image_optimizer_cache_total",
		Help: "Image optimizer cache lookups by result.",
	}, []string{"result"})
)

func ObserveStorage(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StorageOperations.WithLabelValues(operation, result).Inc()
}
