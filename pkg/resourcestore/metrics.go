package resourcestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resourceOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_resource_operations_total",
			Help: "Resource store operations by outcome",
		},
		[]string{"operation", "result"},
	)

	resourceUploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_resource_upload_bytes_total",
			Help: "Bytes written to the blob store by file uploads",
		},
	)
)

func observeOperation(op string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	resourceOperationsTotal.WithLabelValues(op, result).Inc()
}
