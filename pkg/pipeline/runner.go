package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stagetower/pkg/cache"
	reportio "github.com/matzehuels/stagetower/pkg/io"
	"github.com/matzehuels/stagetower/pkg/observability"
	"github.com/matzehuels/stagetower/pkg/stages"
)

// Runner runs Analyze and Render through a cache. The CLI and the API
// server share it.
//
// A Runner holds no per-report state, so one Runner may serve concurrent
// requests.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer uses
// cache.DefaultKeyer and a nil logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// ReportHash is the content hash used in cache keys.
func ReportHash(rep *stages.Report) (string, error) {
	data, err := reportio.MarshalReport(rep)
	if err != nil {
		return "", fmt.Errorf("hash report: %w", err)
	}
	return cache.Hash(data), nil
}

// Analyze returns the summary of rep and whether it came from the cache.
func (r *Runner) Analyze(ctx context.Context, rep *stages.Report) (_ *Summary, hit bool, err error) {
	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnAnalyzeStart(ctx, rep.ID, len(rep.Stages))
	defer func() {
		hooks.OnAnalyzeComplete(ctx, rep.ID, hit, time.Since(start), err)
	}()

	hash, err := ReportHash(rep)
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.SummaryKey(hash)

	if data, ok := r.lookup(ctx, key, "summary"); ok {
		if sum, err := unmarshalSummary(data); err == nil {
			r.Logger.Debug("summary from cache", "report", rep.ID)
			return sum, true, nil
		}
		r.Logger.Warn("discarding unreadable cached summary", "key", key)
	}

	sum, err := Analyze(rep)
	if err != nil {
		return nil, false, err
	}
	if data, err := marshalSummary(sum); err == nil {
		r.store(ctx, key, "summary", data, cache.TTLSummary)
	}

	r.Logger.Debug("analyzed report",
		"report", rep.ID,
		"stages", sum.StageCount,
		"progress", fmt.Sprintf("%.1f%%", sum.OverallProgress*100),
		"duration", time.Since(start))
	return sum, false, nil
}

// RenderGraph returns the requested artifacts for rep. hit is true only when
// every format came from the cache.
func (r *Runner) RenderGraph(ctx context.Context, rep *stages.Report, opts RenderOptions) (_ map[string][]byte, hit bool, err error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, rep.ID, opts.Formats)
	defer func() {
		hooks.OnRenderComplete(ctx, rep.ID, opts.Formats, time.Since(start), err)
	}()

	hash, err := ReportHash(rep)
	if err != nil {
		return nil, false, err
	}
	keyOf := func(format string) string {
		return r.Keyer.ArtifactKey(hash, cache.ArtifactKeyOpts{
			Format:   format,
			Detailed: opts.Detailed,
			Progress: opts.ShowProgress,
		})
	}

	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			data, ok := r.lookup(ctx, keyOf(format), "artifact")
			if !ok {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	artifacts, err := Render(ctx, rep, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range artifacts {
		r.store(ctx, keyOf(format), "artifact", data, cache.TTLArtifact)
	}

	r.Logger.Debug("rendered graph",
		"report", rep.ID,
		"formats", opts.Formats,
		"duration", time.Since(start))
	return artifacts, false, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// lookup reads key from the cache. Cache errors are logged and treated as
// misses.
func (r *Runner) lookup(ctx context.Context, key, keyType string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return data, true
}

func (r *Runner) store(ctx context.Context, key, keyType string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}
