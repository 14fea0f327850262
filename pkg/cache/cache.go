// Package cache stores derived analysis results keyed by report content.
//
// Analysing a report is cheap, but rendering its stage graph to SVG is not,
// and the API serves the same report to every console tab polling it. The
// [Cache] interface has three backends:
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for API replicas
//
// Keys come from a [Keyer] so that tenants can be isolated with a
// [ScopedKeyer] without the callers knowing.
package cache

import (
	"context"
	"time"
)

// Entry lifetimes. Keys embed the report hash, so entries never go stale;
// the TTLs only bound storage.
const (
	TTLSummary  = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry TTL.
//
// Get returns hit=false with a nil error on a miss. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys for analysis artifacts.
type Keyer interface {
	// SummaryKey is the key of the analysis summary of a report.
	SummaryKey(reportHash string) string
	// ArtifactKey is the key of one rendered artifact of a report.
	ArtifactKey(reportHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts holds the render options that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
	Progress bool   `json:"progress,omitempty"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SummaryKey returns "summary:<reportHash>".
func (DefaultKeyer) SummaryKey(reportHash string) string {
	return "summary:" + reportHash
}

// ArtifactKey hashes the report hash together with the render options.
func (DefaultKeyer) ArtifactKey(reportHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", reportHash, opts)
}
