package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImageUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_image_uploads_total",
			Help: "Listing image uploads to object storage by outcome",
		},
		[]string{"outcome"},
	)

	ImageUploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listing_image_upload_duration_seconds",
			Help:    "Duration of a single listing image upload",
			Buckets: prometheus.DefBuckets,
		},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_submissions_total",
			Help: "Listing create and edit operations by operation and result",
		},
		[]string{"operation", "result"},
	)
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
