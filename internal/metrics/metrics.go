package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

var (
	// UploadDenials counts presigned-upload requests rejected by quota policy.
	UploadDenials = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storacct_upload_denials_total",
		Help: "Presigned upload requests denied by quota policy.",
	})

	// UploadsConfirmed counts successful upload confirmations.
	UploadsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storacct_uploads_confirmed_total",
		Help: "Upload confirmations applied to the ledger.",
	})

	// BytesConfirmed accumulates positive usage deltas applied at confirmation.
	BytesConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storacct_bytes_confirmed_total",
		Help: "Bytes charged to user quotas by upload confirmations.",
	})

	// BytesReleased accumulates usage reversed by deletions.
	BytesReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storacct_bytes_released_total",
		Help: "Bytes returned to user quotas by object deletions.",
	})

	// CleanupFailures counts best-effort cleanup steps that failed and left
	// an orphan for out-of-band reconciliation.
	CleanupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storacct_cleanup_failures_total",
		Help: "Failed best-effort cleanup steps, by stage.",
	}, []string{"stage"})
)
