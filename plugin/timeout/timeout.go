// Package timeout defines centralized timeout constants for extraction operations.
package timeout

import "time"

// Operation timeout constants.
const (
	// OCRTimeout bounds a single tesseract run. Large screenshots at
	// --psm 6 finish well under this on a 2C2G host.
	OCRTimeout = 60 * time.Second

	// HealthProbeTimeout bounds the tesseract --version probe behind /healthz.
	HealthProbeTimeout = 2 * time.Second

	// ShutdownTimeout is how long in-flight requests get to finish.
	ShutdownTimeout = 10 * time.Second

	// CacheCleanupInterval is the expiry sweep period of the OCR text cache.
	CacheCleanupInterval = time.Minute

	// RateLimiterPruneInterval is how often idle per-client limiters are dropped.
	RateLimiterPruneInterval = 5 * time.Minute

	// MaxTruncateLength is the maximum length for truncating OCR text in logs.
	MaxTruncateLength = 200
)
