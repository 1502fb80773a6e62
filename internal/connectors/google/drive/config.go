package drive

import (
	"time"

	"github.com/custodia-labs/foldertalk/internal/connectors/google"
)

// Config holds Google Drive connector configuration.
type Config struct {
	// PageSize is the page size for list requests.
	PageSize int64
	// Recursive descends into sub-folders when listing.
	Recursive bool
	// MaxFileSize is the largest download accepted, in bytes.
	// Larger files fail individually.
	MaxFileSize int64
	// Timeout bounds each Drive call.
	Timeout time.Duration
	// RequestsPerSecond paces Drive calls per token; zero uses the
	// default and a negative value disables pacing.
	RequestsPerSecond float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:    100,
		MaxFileSize: 50 * 1024 * 1024,
		Timeout:     60 * time.Second,

		RequestsPerSecond: google.DriveRequestsPerSecond,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PageSize <= 0 || c.PageSize > 1000 {
		c.PageSize = def.PageSize
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = def.MaxFileSize
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = def.RequestsPerSecond
	}
	return c
}
