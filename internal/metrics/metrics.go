package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "starose",
		Name:      "sales_completed_total",
		Help:      "Sales committed to the ledger.",
	})

	SalesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starose",
		Name:      "sales_failed_total",
		Help:      "Sale attempts rejected or rolled back, by reason.",
	}, []string{"reason"})

	SaleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "starose",
		Name:      "sale_duration_seconds",
		Help:      "Wall time of the sale transaction including persistence.",
		Buckets:   prometheus.DefBuckets,
	})
)

const (
	ReasonValidation        = "validation"
	ReasonNotFound          = "not_found"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonConflict          = "conflict"
	ReasonUnavailable       = "unavailable"
)
