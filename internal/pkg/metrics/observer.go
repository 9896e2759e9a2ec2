package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorageObserver exports object storage operation metrics to Prometheus.
type StorageObserver struct {
	duration      *prometheus.HistogramVec
	errors        *prometheus.CounterVec
	uploadedBytes prometheus.Counter
}

// NewStorageObserver registers upload/delete metrics under namespace.
func NewStorageObserver(namespace string, reg prometheus.Registerer) (*StorageObserver, error) {
	if namespace == "" {
		namespace = "attachments"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	observer := &StorageObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_operation_duration_seconds",
			Help:      "Latency of object storage operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operation_errors_total",
			Help:      "Count of failed object storage operations.",
		}, []string{"operation"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Cumulative size of successfully uploaded files.",
		}),
	}

	collectors := map[prometheus.Collector]func(prometheus.Collector){
		observer.duration:      func(c prometheus.Collector) { observer.duration = c.(*prometheus.HistogramVec) },
		observer.errors:        func(c prometheus.Collector) { observer.errors = c.(*prometheus.CounterVec) },
		observer.uploadedBytes: func(c prometheus.Collector) { observer.uploadedBytes = c.(prometheus.Counter) },
	}
	for collector, reuse := range collectors {
		if err := reg.Register(collector); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				reuse(are.ExistingCollector)
				continue
			}
			return nil, fmt.Errorf("register storage metric: %w", err)
		}
	}

	return observer, nil
}

func (o *StorageObserver) RecordUpload(duration time.Duration, sizeBytes int64, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues("upload").Observe(duration.Seconds())
	if err != nil {
		o.errors.WithLabelValues("upload").Inc()
		return
	}
	o.uploadedBytes.Add(float64(sizeBytes))
}

func (o *StorageObserver) RecordDelete(duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues("delete").Observe(duration.Seconds())
	if err != nil {
		o.errors.WithLabelValues("delete").Inc()
	}
}
