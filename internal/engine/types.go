// Package engine holds the domain types shared by every stage of the
// research orchestrator: search, fetch, refine, and synthesis all read and
// write these structs rather than stage-private shapes.
package engine

import "time"

// Query is the root unit of work handed to the pipeline.
type Query struct {
	Text           string
	Language       string
	TimeRange      string
	IncludeDomains []string
	ExcludeDomains []string
}

// SubQuery is one of the planner's decompositions of a Query.
type SubQuery struct {
	Text   string
	Origin string // "planner" or "passthrough"
}

// SearchResult is a single hit from a search provider, before fetching.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
	Engine  string
	Score   float64
}

// FetchedPage is the result of reading a URL's content, regardless of which
// reader produced it.
type FetchedPage struct {
	URL         string
	Title       string
	Content     string
	ContentType string // "html", "pdf", "snippet"
	ReaderUsed  string
	FetchedAt   time.Time
	Err         error
}

// EvidenceChunk is a scored passage produced by a refiner.
type EvidenceChunk struct {
	ChunkID        string
	URL            string
	Title          string
	Content        string
	KeywordScore   float64
	SemanticScore  float64
	AuthorityScore float64
	RelevanceScore float64
	IsAnswer       bool
}

// PipelineOutput is the result of one pipeline.Run call (one search round).
type PipelineOutput struct {
	Query     string
	SubQueries []string
	Evidence  []EvidenceChunk
	Pages     []FetchedPage
	BlockedDomains []string
	Trace     map[string]any
}

// SourceItem is a citation-ready reference to a fetched source.
type SourceItem struct {
	Index   int     `json:"index"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
}

// FactItem is a single synthesized claim with explicit source indices.
type FactItem struct {
	Point   string `json:"point"`
	Sources []int  `json:"sources"`
}

// AnswerOutput is the final synthesized response of a research loop run.
type AnswerOutput struct {
	RequestID string         `json:"request_id"`
	Query     string         `json:"query"`
	Answer    string         `json:"answer"`
	Facts     []FactItem     `json:"facts,omitempty"`
	Sources   []SourceItem   `json:"sources"`
	Rounds    int            `json:"rounds"`
	Trace     map[string]any `json:"trace,omitempty"`

	// Pages carries the last round's fetched pages, for callers (like the
	// HTTP façade) that need a content fallback when evidence is empty.
	Pages []FetchedPage `json:"-"`
}
