package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videoprocessor",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "videoprocessor",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "videoprocessor",
		Name:      "active_jobs",
		Help:      "Number of conversion jobs currently processing.",
	})

	JobStartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "videoprocessor",
		Name:      "job_starts_total",
		Help:      "Total number of conversion jobs started.",
	})

	JobFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "videoprocessor",
		Name:      "job_failures_total",
		Help:      "Total number of conversion jobs that ended in failure.",
	})

	EncodeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "videoprocessor",
		Name:      "encode_duration_seconds",
		Help:      "Duration of per-quality FFmpeg encodes in seconds.",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"quality"})

	UploadedBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "videoprocessor",
		Name:      "uploaded_bytes_total",
		Help:      "Total bytes uploaded to object storage.",
	})

	UploadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "videoprocessor",
		Name:      "upload_failures_total",
		Help:      "Total number of failed object storage uploads.",
	})

	JobsEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "videoprocessor",
		Name:      "jobs_evicted_total",
		Help:      "Total number of terminal jobs evicted by the sweep.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveJobs,
		JobStartsTotal,
		JobFailuresTotal,
		EncodeDuration,
		UploadedBytesTotal,
		UploadFailuresTotal,
		JobsEvictedTotal,
	)
}
