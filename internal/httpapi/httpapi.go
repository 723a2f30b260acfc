// Package httpapi exposes the research loop over a Tavily-compatible HTTP
// endpoint, so existing agent frameworks built against that API can point
// at this engine without modification.
package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftlynx/answerengine/internal/config"
	"github.com/driftlynx/answerengine/internal/engine"
	"github.com/driftlynx/answerengine/internal/loop"
)

// accessLog is kept distinct from the slog.Logger the core pipeline uses:
// it exists purely to emit one structured line per HTTP request, in the
// request/response/latency shape an access log is conventionally read in.
var accessLog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		accessLog.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

const (
	snippetFallbackChars = 500
	snippetFallbackScore = 0.5
)

// SearchRequest is the recognized Tavily-compatible request body, with a
// handful of mode/reranker/reader extensions this engine adds.
type SearchRequest struct {
	Query              string   `json:"query"`
	SearchDepth        string   `json:"search_depth"`
	Topic              string   `json:"topic"`
	MaxResults         int      `json:"max_results"`
	IncludeImages      bool     `json:"include_images"`
	IncludeAnswer      bool     `json:"include_answer"`
	IncludeRawContent  bool     `json:"include_raw_content"`
	IncludeDomains     []string `json:"include_domains"`
	ExcludeDomains     []string `json:"exclude_domains"`
	Mode               string   `json:"mode"`
	Reranker           string   `json:"reranker"`
	Reader             string   `json:"reader"`
	MaxEvidence        int      `json:"max_evidence"`
	UseNeuralCrawler   bool     `json:"use_neural_crawler"`
}

// SearchResultItem is one entry in the Tavily-compatible results array.
type SearchResultItem struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Content     string  `json:"content"`
	RawContent  string  `json:"raw_content,omitempty"`
	Score       float64 `json:"score"`
}

// SearchResponse is the Tavily-compatible response body.
type SearchResponse struct {
	Query              string              `json:"query"`
	Answer             string              `json:"answer,omitempty"`
	Images             []string            `json:"images"`
	Results            []SearchResultItem  `json:"results"`
	FollowUpQuestions  []string            `json:"follow_up_questions,omitempty"`
	ResponseTimeMS     int64               `json:"response_time"`
}

// Server builds a Loop from each request's config surface and runs it.
// Overrides are derived per-request rather than cached, since mode and
// reranker can legitimately vary between calls to the same server.
type Server struct {
	Build func(cfg config.Config) *loop.Loop
}

func NewServer(build func(cfg config.Config) *loop.Loop) *Server {
	return &Server{Build: build}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /v1/search", s.handleSearch)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	return withAccessLog(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok","service":"answerengine"}`))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(engine.FormatMetrics()))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	cfg, maxResults := s.resolveConfig(req)
	l := s.Build(cfg)
	out := l.Run(r.Context(), req.Query)

	resp := buildResponse(req, out, maxResults)
	w.Header().Set("Content-Type", "application/json")
	if out.RequestID != "" {
		w.Header().Set("X-Request-ID", out.RequestID)
	}
	json.NewEncoder(w).Encode(resp)
}

// resolveConfig maps the Tavily request fields onto a Config via
// config.Build, applying search_depth=advanced -> mode=deep only when mode
// wasn't explicitly set (the default is otherwise mode=fast), and defaulting
// max_evidence to max_results when unset. use_crawler is the OR of the
// explicit use_neural_crawler flag and an advanced+deep search.
func (s *Server) resolveConfig(req SearchRequest) (config.Config, int) {
	mode := config.Mode(req.Mode)
	if mode == "" {
		if req.SearchDepth == "advanced" {
			mode = config.ModeDeep
		} else {
			mode = config.ModeFast
		}
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	maxEvidence := req.MaxEvidence
	if maxEvidence <= 0 {
		maxEvidence = maxResults
	}

	useCrawler := req.UseNeuralCrawler || (req.SearchDepth == "advanced" && mode == config.ModeDeep)

	o := config.Overrides{
		MaxEvidence:      maxEvidence,
		UseNeuralCrawler: boolPtr(useCrawler),
	}
	if req.Reranker != "" {
		o.RerankerType = config.RerankerType(req.Reranker)
	}
	if req.Reader != "" {
		o.ReaderType = config.ReaderType(req.Reader)
	}
	if len(req.IncludeDomains) > 0 {
		o.Security.AllowedDomains = req.IncludeDomains
	}
	if len(req.ExcludeDomains) > 0 {
		o.Security.BlockedDomains = req.ExcludeDomains
	}

	return config.Build(mode, o), maxResults
}

func boolPtr(b bool) *bool { return &b }

// buildResponse draws results from output.Evidence when present, falling
// back to page text truncated to snippetFallbackChars with a fixed score.
func buildResponse(req SearchRequest, out engine.AnswerOutput, maxResults int) SearchResponse {
	resp := SearchResponse{
		Query:  req.Query,
		Images: []string{},
	}
	if req.IncludeAnswer {
		resp.Answer = out.Answer
	}

	if len(out.Sources) > 0 {
		for _, src := range out.Sources {
			if len(resp.Results) >= maxResults {
				break
			}
			item := SearchResultItem{Title: src.Title, URL: src.URL, Content: src.Snippet, Score: src.Score}
			if req.IncludeRawContent {
				item.RawContent = src.Snippet
			}
			resp.Results = append(resp.Results, item)
		}
		return resp
	}

	for _, p := range out.Pages {
		if len(resp.Results) >= maxResults {
			break
		}
		content := p.Content
		if len(content) > snippetFallbackChars {
			content = content[:snippetFallbackChars] + "..."
		}
		item := SearchResultItem{Title: p.Title, URL: p.URL, Content: content, Score: snippetFallbackScore}
		if req.IncludeRawContent {
			item.RawContent = p.Content
		}
		resp.Results = append(resp.Results, item)
	}
	return resp
}
