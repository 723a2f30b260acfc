package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// metrics tracks operational counters across the pipeline's stages.
var metrics struct {
	ProviderRequests atomic.Int64
	ProviderErrors   atomic.Int64
	FetchRequests    atomic.Int64
	FetchErrors      atomic.Int64
	BrowserEscalations atomic.Int64
	RefineRequests   atomic.Int64
	LLMCalls         atomic.Int64
	LLMErrors        atomic.Int64
	LoopRounds       atomic.Int64
	GuardBlocks      atomic.Int64
}

// GetMetrics returns a snapshot of all counters, including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"provider_requests":   metrics.ProviderRequests.Load(),
		"provider_errors":     metrics.ProviderErrors.Load(),
		"fetch_requests":      metrics.FetchRequests.Load(),
		"fetch_errors":        metrics.FetchErrors.Load(),
		"browser_escalations": metrics.BrowserEscalations.Load(),
		"refine_requests":     metrics.RefineRequests.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"loop_rounds":         metrics.LoopRounds.Load(),
		"guard_blocks":        metrics.GuardBlocks.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
}

// FormatMetrics renders the counters as a simple text format for the
// HTTP façade's /metrics endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	keys := []string{
		"provider_requests", "provider_errors",
		"fetch_requests", "fetch_errors", "browser_escalations",
		"refine_requests", "llm_calls", "llm_errors",
		"loop_rounds", "guard_blocks",
		"cache_hits", "cache_misses",
	}
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func IncrProviderRequest()   { metrics.ProviderRequests.Add(1) }
func IncrProviderError()     { metrics.ProviderErrors.Add(1) }
func IncrFetchRequest()      { metrics.FetchRequests.Add(1) }
func IncrFetchError()        { metrics.FetchErrors.Add(1) }
func IncrBrowserEscalation() { metrics.BrowserEscalations.Add(1) }
func IncrRefineRequest()     { metrics.RefineRequests.Add(1) }
func IncrLLMCall()           { metrics.LLMCalls.Add(1) }
func IncrLLMError()          { metrics.LLMErrors.Add(1) }
func IncrLoopRound()         { metrics.LoopRounds.Add(1) }
func IncrGuardBlock()        { metrics.GuardBlocks.Add(1) }

// TrackOperation logs a warning if fn runs past threshold, without altering
// its result. Used to surface slow reader/provider calls without failing them.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
