package refine

import (
	"math"
	"regexp"
	"strings"

	"github.com/driftlynx/answerengine/internal/engine"
)

// BM25 hyperparameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// stopWords is a small English function-word list dropped before scoring so
// BM25 weighs content terms instead of "the", "and", and similar filler
// that would otherwise inflate term frequency without adding relevance.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "this": true, "that": true,
	"these": true, "those": true, "it": true, "its": true, "as": true,
	"from": true, "into": true, "about": true, "than": true, "then": true,
	"so": true, "not": true, "no": true, "do": true, "does": true, "did": true,
}

// tokenize lowercases and splits s into alphanumeric tokens, dropping stop
// words and single-character tokens that carry no discriminating signal.
func tokenize(s string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(s), -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) <= 1 || stopWords[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Keyword scores chunks against a query using BM25 over the candidate set
// itself as the corpus (there is no persistent index — each query's
// candidate chunks form their own one-shot collection).
type Keyword struct {
	MinRelevance float64
}

func NewKeyword(minRelevance float64) *Keyword {
	return &Keyword{MinRelevance: minRelevance}
}

// Score returns chunks annotated with a BM25 keyword score, sorted
// descending, filtered to MinRelevance.
func (k *Keyword) Score(query string, chunks []Chunk) []engine.EvidenceChunk {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 || len(chunks) == 0 {
		return nil
	}

	docs := make([][]string, len(chunks))
	termFreqs := make([]map[string]int, len(chunks))
	docFreq := make(map[string]int)
	var totalLen int

	for i, c := range chunks {
		terms := tokenize(c.Content)
		docs[i] = terms
		totalLen += len(terms)
		freq := make(map[string]int, len(terms))
		for _, t := range terms {
			freq[t]++
		}
		termFreqs[i] = freq
		seen := make(map[string]bool)
		for _, t := range terms {
			if !seen[t] {
				docFreq[t]++
				seen[t] = true
			}
		}
	}

	n := float64(len(chunks))
	avgLen := float64(totalLen) / n

	idf := make(map[string]float64, len(docFreq))
	for term, df := range docFreq {
		idf[term] = math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
	}

	rawScores := make([]float64, len(chunks))
	var maxScore float64
	for i := range chunks {
		docLen := float64(len(docs[i]))
		var score float64
		for _, term := range queryTerms {
			tf := float64(termFreqs[i][term])
			if tf == 0 {
				continue
			}
			numerator := tf * (bm25K1 + 1)
			denominator := tf + bm25K1*(1-bm25B+bm25B*docLen/avgLen)
			score += idf[term] * numerator / denominator
		}
		rawScores[i] = score
		if score > maxScore {
			maxScore = score
		}
	}

	out := make([]engine.EvidenceChunk, 0, len(chunks))
	for i, c := range chunks {
		normalized := normalizeBM25(rawScores[i], maxScore)
		if normalized < k.MinRelevance {
			continue
		}
		out = append(out, engine.EvidenceChunk{
			ChunkID:        c.ID,
			URL:            c.URL,
			Title:          c.Title,
			Content:        c.Content,
			KeywordScore:   normalized,
			RelevanceScore: normalized,
		})
	}

	sortByRelevanceDesc(out)
	return out
}

// normalizeBM25 scales a raw BM25 score into [0, 1] by dividing it against
// the maximum raw score across the corpus (the current candidate chunk
// set), so the top-scoring chunk for any query always lands at 1.0 rather
// than being squashed by a fixed curve. A zero or negative corpus max (all
// chunks scored zero, e.g. an all-stop-word query) yields all zeros instead
// of dividing by zero.
func normalizeBM25(score, maxScore float64) float64 {
	if score <= 0 || maxScore <= 0 {
		return 0
	}
	return score / maxScore
}

func sortByRelevanceDesc(chunks []engine.EvidenceChunk) {
	for i := 1; i < len(chunks); i++ {
		for j := i; j > 0 && chunks[j].RelevanceScore > chunks[j-1].RelevanceScore; j-- {
			chunks[j], chunks[j-1] = chunks[j-1], chunks[j]
		}
	}
}
