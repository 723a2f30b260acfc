package refine

// Encoder produces a relevance score between a query and a chunk of text.
// The only implementation shipped is lexicalEncoder — there is no local
// embedding-model runtime in this module (no ranking/embedding model
// training or hosting), so semantic scoring always falls back to the
// token-overlap heuristic the hybrid refiner is specified to use when "the
// model is unavailable".
type Encoder interface {
	Score(query, text string) float64
}

// lexicalEncoder scores token overlap between query and text as
// matched_terms / total_query_terms, the same shape a cosine-similarity
// encoder degrades to once cosine(a, b) has no vectors to call.
type lexicalEncoder struct{}

func NewEncoder() Encoder { return lexicalEncoder{} }

func (lexicalEncoder) Score(query, text string) float64 {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return 0
	}
	textTerms := make(map[string]bool)
	for _, t := range tokenize(text) {
		textTerms[t] = true
	}
	matched := 0
	for _, t := range queryTerms {
		if textTerms[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}

// CrossEncoder scores a query against a chunk the way a cross-encoder
// would — jointly, rather than via separately-embedded vectors. Like
// Encoder, its only implementation is the lexical fallback.
type CrossEncoder interface {
	ScorePair(query, text string) float64
}

type lexicalCrossEncoder struct{ lexicalEncoder }

func NewCrossEncoder() CrossEncoder { return lexicalCrossEncoder{} }

func (l lexicalCrossEncoder) ScorePair(query, text string) float64 {
	return l.Score(query, text)
}
