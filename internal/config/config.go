// Package config builds the immutable run configuration for the research
// orchestrator. A Config is never mutated after Build returns; callers that
// need different settings build a new one.
package config

import (
	"net/http"
	"time"
)

// Mode is a closed enumeration of run presets. It is the only thing about a
// Config that behaves like a "choice" — everything else follows from it
// deterministically, plus any explicit Overrides.
type Mode string

const (
	ModeTurbo    Mode = "turbo"
	ModeFast     Mode = "fast"
	ModeBalanced Mode = "balanced"
	ModeDeep     Mode = "deep"
)

// RerankerType selects the refiner used by the pipeline.
type RerankerType string

const (
	RerankerFast  RerankerType = "fast"  // hybrid bi-encoder-style refiner
	RerankerFlash RerankerType = "flash" // cross-encoder-style refiner
)

// ReaderType selects the default page reader.
type ReaderType string

const (
	ReaderHTML    ReaderType = "trafilatura"
	ReaderBrowser ReaderType = "browser"
)

// NetworkProfile governs SSRF enforcement in the security guard.
type NetworkProfile string

const (
	NetworkPublic     NetworkProfile = "public"
	NetworkEnterprise NetworkProfile = "enterprise"
)

// SecurityConfig is the security guard's policy input.
type SecurityConfig struct {
	AllowedDomains  []string
	BlockedDomains  []string
	BlockedKeywords []string
	PIIMasking      bool
	SSLVerify       bool
	Proxy           string
	NetworkProfile  NetworkProfile
}

// Config is the immutable, fully-resolved configuration for one run.
type Config struct {
	Mode Mode

	// Search provider
	EngineProvider string
	EngineBaseURL  string
	EngineAPIKey   string

	// LLM endpoint (planner + synthesizer)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Readers
	ReaderType      ReaderType
	ReaderTimeout   time.Duration
	ReaderMaxPages  int
	ReaderUserAgent string

	// Neural crawler
	UseNeuralCrawler bool
	CrawlerMaxDepth  int
	CrawlerMaxPages  int

	// Refiners
	ChunkSize              int
	ChunkOverlap           int
	MaxEvidence            int
	MaxContextTokens       int
	MinRelevance           float64
	EnableSnippetFallback  bool
	EnableStealthEscalation bool
	RerankerType           RerankerType
	RerankerModel          string
	Device                 string

	// HTTP
	CustomHeaders map[string]string
	HTTPClient    *http.Client

	// Runtime
	Concurrency int
	MaxRetries  int
	CacheTTL    time.Duration
	CacheDir    string

	Security SecurityConfig

	// MaxDepth bounds the research loop (spec.md §4.9 default 2).
	MaxDepth int
}

// Overrides carries the subset of fields a caller may set explicitly;
// zero values mean "use the mode preset". Build never mutates Overrides.
type Overrides struct {
	EngineProvider          string
	EngineBaseURL           string
	EngineAPIKey            string
	LLMBaseURL              string
	LLMAPIKey               string
	LLMModel                string
	ReaderType              ReaderType
	ReaderTimeout           time.Duration
	ReaderMaxPages          int
	ReaderUserAgent         string
	UseNeuralCrawler        *bool
	CrawlerMaxDepth         int
	CrawlerMaxPages         int
	ChunkSize               int
	ChunkOverlap            int
	MaxEvidence             int
	MaxContextTokens        int
	MinRelevance            float64
	EnableSnippetFallback   *bool
	EnableStealthEscalation *bool
	RerankerType            RerankerType
	RerankerModel           string
	Device                  string
	CustomHeaders           map[string]string
	Concurrency             int
	MaxRetries              int
	CacheTTL                time.Duration
	CacheDir                string
	Security                SecurityConfig
	MaxDepth                int
}

// Build resolves a Mode preset plus Overrides into an immutable Config.
// This is the only constructor: Config has no setters.
func Build(mode Mode, o Overrides) Config {
	c := preset(mode)

	if o.EngineProvider != "" {
		c.EngineProvider = o.EngineProvider
	}
	if o.EngineBaseURL != "" {
		c.EngineBaseURL = o.EngineBaseURL
	}
	if o.EngineAPIKey != "" {
		c.EngineAPIKey = o.EngineAPIKey
	}
	if o.LLMBaseURL != "" {
		c.LLMBaseURL = o.LLMBaseURL
	}
	if o.LLMAPIKey != "" {
		c.LLMAPIKey = o.LLMAPIKey
	}
	if o.LLMModel != "" {
		c.LLMModel = o.LLMModel
	}
	if o.ReaderType != "" {
		c.ReaderType = o.ReaderType
	}
	if o.ReaderTimeout != 0 {
		c.ReaderTimeout = o.ReaderTimeout
	}
	if o.ReaderMaxPages != 0 {
		c.ReaderMaxPages = o.ReaderMaxPages
	}
	if o.ReaderUserAgent != "" {
		c.ReaderUserAgent = o.ReaderUserAgent
	}
	if o.UseNeuralCrawler != nil {
		c.UseNeuralCrawler = *o.UseNeuralCrawler
	}
	if o.CrawlerMaxDepth != 0 {
		c.CrawlerMaxDepth = o.CrawlerMaxDepth
	}
	if o.CrawlerMaxPages != 0 {
		c.CrawlerMaxPages = o.CrawlerMaxPages
	}
	if o.ChunkSize != 0 {
		c.ChunkSize = o.ChunkSize
	}
	if o.ChunkOverlap != 0 {
		c.ChunkOverlap = o.ChunkOverlap
	}
	if o.MaxEvidence != 0 {
		c.MaxEvidence = o.MaxEvidence
	}
	if o.MaxContextTokens != 0 {
		c.MaxContextTokens = o.MaxContextTokens
	}
	if o.MinRelevance != 0 {
		c.MinRelevance = o.MinRelevance
	}
	if o.EnableSnippetFallback != nil {
		c.EnableSnippetFallback = *o.EnableSnippetFallback
	}
	if o.EnableStealthEscalation != nil {
		c.EnableStealthEscalation = *o.EnableStealthEscalation
	}
	if o.RerankerType != "" {
		c.RerankerType = o.RerankerType
	}
	if o.RerankerModel != "" {
		c.RerankerModel = o.RerankerModel
	}
	if o.Device != "" {
		c.Device = o.Device
	}
	if len(o.CustomHeaders) > 0 {
		c.CustomHeaders = o.CustomHeaders
	}
	if o.Concurrency != 0 {
		c.Concurrency = o.Concurrency
	}
	if o.MaxRetries != 0 {
		c.MaxRetries = o.MaxRetries
	}
	if o.CacheTTL != 0 {
		c.CacheTTL = o.CacheTTL
	}
	if o.CacheDir != "" {
		c.CacheDir = o.CacheDir
	}
	if o.MaxDepth != 0 {
		c.MaxDepth = o.MaxDepth
	}
	if len(o.Security.AllowedDomains) > 0 {
		c.Security.AllowedDomains = o.Security.AllowedDomains
	}
	if len(o.Security.BlockedDomains) > 0 {
		c.Security.BlockedDomains = o.Security.BlockedDomains
	}
	if len(o.Security.BlockedKeywords) > 0 {
		c.Security.BlockedKeywords = o.Security.BlockedKeywords
	}
	if o.Security.PIIMasking {
		c.Security.PIIMasking = true
	}
	if o.Security.Proxy != "" {
		c.Security.Proxy = o.Security.Proxy
	}
	if o.Security.NetworkProfile != "" {
		c.Security.NetworkProfile = o.Security.NetworkProfile
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return c
}

// preset returns the base Config for a Mode. This is a pure function from
// the enumeration, per spec.md §9 ("Dynamic configuration") — never a
// mutable object with setters.
func preset(mode Mode) Config {
	base := Config{
		Mode:                    mode,
		EngineProvider:          "searxng",
		EngineBaseURL:           "http://127.0.0.1:8080",
		LLMModel:                "gpt-3.5-turbo",
		ReaderType:              ReaderHTML,
		ReaderUserAgent:         "answerengine/0.1",
		CrawlerMaxDepth:         1,
		CrawlerMaxPages:         3,
		ChunkOverlap:            100,
		MaxContextTokens:        6000,
		RerankerModel:           "local-cross-encoder",
		Device:                  "cpu",
		CustomHeaders:           map[string]string{},
		MaxRetries:              2,
		CacheTTL:                time.Hour,
		CacheDir:                ".answerengine_cache",
		MaxDepth:                2,
		Security: SecurityConfig{
			SSLVerify:      true,
			NetworkProfile: NetworkPublic,
		},
	}

	switch mode {
	case ModeTurbo:
		base.Concurrency = 10
		base.ReaderTimeout = 1 * time.Second
		base.ReaderMaxPages = 5
		base.EnableStealthEscalation = false
		base.EnableSnippetFallback = true
		base.RerankerType = RerankerFast
		base.MaxEvidence = 3
		base.ChunkSize = 500
	case ModeFast:
		base.Concurrency = 10
		base.ReaderTimeout = 3 * time.Second
		base.ReaderMaxPages = 5
		base.EnableStealthEscalation = false
		base.EnableSnippetFallback = true
		base.RerankerType = RerankerFast
		base.MaxEvidence = 3
		base.ChunkSize = 500
	case ModeBalanced:
		base.Concurrency = 5
		base.ReaderTimeout = 10 * time.Second
		base.ReaderMaxPages = 8
		base.EnableStealthEscalation = true
		base.EnableSnippetFallback = true
		base.RerankerType = RerankerFast
		base.MaxEvidence = 5
		base.ChunkSize = 1000
	case ModeDeep:
		base.Concurrency = 3
		base.ReaderTimeout = 30 * time.Second
		base.ReaderMaxPages = 10
		base.EnableStealthEscalation = true
		base.EnableSnippetFallback = true
		base.RerankerType = RerankerFlash
		base.MaxEvidence = 10
		base.ChunkSize = 2000
		base.CrawlerMaxDepth = 2
	default:
		// Unknown mode: behave like balanced rather than fail construction —
		// the pipeline is still usable, just not policy-tuned.
		b := preset(ModeBalanced)
		b.Mode = mode
		return b
	}
	return base
}
