// Package observability lets the binary attach metrics or tracing to
// stagetower without the libraries importing a backend.
//
// Libraries emit events through the registered hooks; main registers
// implementations once at startup:
//
//	observability.SetPipelineHooks(promHooks{})
//	observability.SetHTTPHooks(promHooks{})
//
// Every hook defaults to a no-op, so nothing needs to be registered for the
// CLI.
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from report analysis and graph rendering.
type PipelineHooks interface {
	OnAnalyzeStart(ctx context.Context, reportID string, stageCount int)
	OnAnalyzeComplete(ctx context.Context, reportID string, cached bool, duration time.Duration, err error)

	OnRenderStart(ctx context.Context, reportID string, formats []string)
	OnRenderComplete(ctx context.Context, reportID string, formats []string, duration time.Duration, err error)
}

// CacheHooks receives events from cache lookups. keyType is "summary" or
// "artifact".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the API server. route is the chi route
// pattern, not the raw path, so report IDs do not explode cardinality.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, status int, duration time.Duration)
}

// NoopPipelineHooks ignores every event.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnAnalyzeStart(context.Context, string, int) {}
func (NoopPipelineHooks) OnAnalyzeComplete(context.Context, string, bool, time.Duration, error) {
}
func (NoopPipelineHooks) OnRenderStart(context.Context, string, []string) {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, string, []string, time.Duration, error) {
}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                     {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

var (
	hooksMu       sync.RWMutex
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
)

// SetPipelineHooks registers pipeline hooks. nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores the no-op hooks. Tests use it in cleanup.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
