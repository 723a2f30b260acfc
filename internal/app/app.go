// Package app wires every collaborator — providers, guard, readers, refiners,
// planner, crawler, synthesizer — into a runnable Loop, reading its settings
// from the environment the way the teacher's initEngine does. Both cmd
// entrypoints call New once at startup and never construct these
// collaborators directly.
package app

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/driftlynx/answerengine/internal/config"
	"github.com/driftlynx/answerengine/internal/crawler"
	"github.com/driftlynx/answerengine/internal/engine"
	"github.com/driftlynx/answerengine/internal/guard"
	"github.com/driftlynx/answerengine/internal/loop"
	"github.com/driftlynx/answerengine/internal/pipeline"
	"github.com/driftlynx/answerengine/internal/planner"
	"github.com/driftlynx/answerengine/internal/providers"
	"github.com/driftlynx/answerengine/internal/readers"
	"github.com/driftlynx/answerengine/internal/refine"
	"github.com/driftlynx/answerengine/internal/synth"
)

// Env holds every setting EnvFromOS reads from the process environment. It
// exists as a struct (rather than reading os.Getenv inline everywhere) so
// tests can build one without environment mutation.
type Env struct {
	SearXNGURL       string
	DDGEnabled       bool
	StartpageEnabled bool

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	ReaderUserAgent string

	AllowedDomains  []string
	BlockedDomains  []string
	BlockedKeywords []string
	PIIMasking      bool
	NetworkProfile  config.NetworkProfile

	MaxRetries int
	CacheTTL   time.Duration
	RedisURL   string

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
}

// EnvFromOS reads Env from the process environment, using the teacher's
// env()/envInt()/envBool()/envDuration()/envList() defaulting style.
func EnvFromOS() Env {
	return Env{
		SearXNGURL:           env("SEARXNG_URL", ""),
		DDGEnabled:           envBool("DDG_ENABLED", true),
		StartpageEnabled:     envBool("STARTPAGE_ENABLED", true),
		LLMBaseURL:           env("LLM_API_BASE", ""),
		LLMAPIKey:            env("LLM_API_KEY", ""),
		LLMModel:             env("LLM_MODEL", "gpt-3.5-turbo"),
		ReaderUserAgent:      env("READER_USER_AGENT", ""),
		AllowedDomains:       envList("ALLOWED_DOMAINS", ""),
		BlockedDomains:       envList("BLOCKED_DOMAINS", ""),
		BlockedKeywords:      envList("BLOCKED_KEYWORDS", ""),
		PIIMasking:           envBool("PII_MASKING", false),
		NetworkProfile:       config.NetworkProfile(env("NETWORK_PROFILE", string(config.NetworkPublic))),
		MaxRetries:           envInt("MAX_RETRIES", 2),
		CacheTTL:             envDuration("CACHE_TTL", time.Hour),
		RedisURL:             env("REDIS_URL", ""),
		CacheMaxEntries:      envInt("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: envDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
	}
}

// App holds a built Loop plus the pieces needed to rebuild one per request
// (the HTTP façade needs a fresh Config per call; the CLI needs exactly one).
type App struct {
	Env Env
}

// New builds an App from env, initializing the shared reader cache exactly
// once — InitCache is process-global, like the teacher's engine.InitCache.
func New(env Env) *App {
	engine.InitCache(env.RedisURL, env.CacheTTL, env.CacheMaxEntries, env.CacheCleanupInterval)
	return &App{Env: env}
}

// BuildLoop constructs a fresh Loop from cfg, wiring every collaborator in
// priority order: SearXNG (self-hosted, preferred) falls over to the direct
// DDG and Startpage scrapers when it's unreachable or disabled.
//
// Each collaborator gets its own RetryPolicy rather than one shared
// instance: search engines are flaky and worth retrying aggressively, page
// fetches back off faster since a slow page usually means a block rather
// than a blip, and LLM calls use their own budget since a bad prompt or an
// out-of-context completion isn't fixed by retrying at all.
func (a *App) BuildLoop(cfg config.Config) *loop.Loop {
	searchRetry := engine.PolicyFromMaxRetries(cfg.MaxRetries)
	readerRetry := engine.RetryPolicy{
		MaxAttempts: searchRetry.MaxAttempts,
		InitialWait: 250 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
	}
	llmRetry := engine.RetryPolicy{
		MaxAttempts: searchRetry.MaxAttempts,
		InitialWait: 1 * time.Second,
		MaxWait:     20 * time.Second,
		Multiplier:  2.5,
	}
	synthRetry := engine.RetryPolicy{
		MaxAttempts: searchRetry.MaxAttempts,
		InitialWait: 1500 * time.Millisecond,
		MaxWait:     30 * time.Second,
		Multiplier:  2.0,
	}

	impersonator, impErr := engine.NewImpersonatingClient(cfg.ReaderTimeout)
	if impErr != nil {
		// Every search provider (SearXNG's HTML scrape, DDG, Startpage) and
		// readers.HTML now go through the impersonating client rather than a
		// plain *http.Client, so this failure leaves the composite with zero
		// providers — log it as an error, not a warning, since the loop
		// can't search at all until it's fixed.
		slog.Error("app: impersonating client init failed, no search providers or html reader available", slog.Any("error", impErr))
	}

	var members []providers.Provider
	searxngURL := a.Env.SearXNGURL
	if searxngURL == "" {
		searxngURL = providers.AutoDetectSearXNG(context.Background(), cfg.HTTPClient)
	}
	if searxngURL != "" && impersonator != nil {
		members = append(members, providers.NewSearXNG(searxngURL, impersonator, searchRetry))
	}
	if impersonator != nil {
		if a.Env.DDGEnabled {
			members = append(members, providers.NewDDG(impersonator, searchRetry))
		}
		if a.Env.StartpageEnabled {
			members = append(members, providers.NewStartpage(impersonator, searchRetry))
		}
	}
	if len(members) == 0 && impersonator != nil {
		members = append(members, providers.NewSearXNG(cfg.EngineBaseURL, impersonator, searchRetry))
	}
	composite := providers.NewComposite(members...)

	g := guard.New(cfg.Security)

	htmlReader := readers.NewHTML(impersonator, 0, cfg.ReaderUserAgent, readerRetry)
	pdfReader := readers.NewPDF(cfg.HTTPClient, 0)
	browserReader := readers.NewBrowser(cfg.ReaderTimeout, 0)

	encoder := refine.NewEncoder()
	crossEncoder := refine.NewCrossEncoder()

	c := crawler.New(browserReader, encoder)

	p := &pipeline.Pipeline{
		Cfg:     cfg,
		Planner: planner.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, llmRetry),
		Search:  composite,
		Guard:   g,
		HTML:    htmlReader,
		PDF:     pdfReader,
		Browser: browserReader,
		Crawler: c,
		Keyword: refine.NewKeyword(cfg.MinRelevance),
		Hybrid:  refine.NewHybrid(cfg.MinRelevance, encoder),
		Flash:   refine.NewFlash(crossEncoder),
	}

	s := synth.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.MaxContextTokens, cfg.MaxEvidence, synthRetry)

	return loop.New(p, s, cfg.MaxDepth)
}

// BuildConfig resolves a Config from mode and the Env's security/LLM/search
// settings, matching config.Build's override-only-what's-set contract.
func (a *App) BuildConfig(mode config.Mode) config.Config {
	o := config.Overrides{
		LLMBaseURL: a.Env.LLMBaseURL,
		LLMAPIKey:  a.Env.LLMAPIKey,
		LLMModel:   a.Env.LLMModel,
		MaxRetries: a.Env.MaxRetries,
		CacheTTL:   a.Env.CacheTTL,
		Security: config.SecurityConfig{
			AllowedDomains:  a.Env.AllowedDomains,
			BlockedDomains:  a.Env.BlockedDomains,
			BlockedKeywords: a.Env.BlockedKeywords,
			PIIMasking:      a.Env.PIIMasking,
			NetworkProfile:  a.Env.NetworkProfile,
		},
	}
	if a.Env.ReaderUserAgent != "" {
		o.ReaderUserAgent = a.Env.ReaderUserAgent
	}
	return config.Build(mode, o)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envList(key, def string) []string {
	v := env(key, def)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return def
}
