package refine

import (
	"net/url"
	"strings"

	"github.com/driftlynx/answerengine/internal/engine"
	"github.com/driftlynx/answerengine/internal/guard"
)

const (
	preFilterLimit  = 20
	safetyNetCount  = 5
	mmrLambda       = 0.7
	maxPerSource    = 3
	targetCount     = 15
	keywordWeight   = 0.3
	semanticWeight  = 0.7
	fallbackKwFloor = 0.1
)

// Hybrid combines BM25 keyword scoring with a semantic encoder (lexical
// fallback absent a real embedding backend), boosts by source authority,
// then diversifies the result with Maximal Marginal Relevance so one
// dominant source can't fill every evidence slot.
type Hybrid struct {
	Keyword *Keyword
	Encoder Encoder
}

func NewHybrid(minRelevance float64, encoder Encoder) *Hybrid {
	if encoder == nil {
		encoder = NewEncoder()
	}
	return &Hybrid{Keyword: NewKeyword(0.0), Encoder: encoder}
}

// Refine scores, pre-filters, combines, authority-weights, and MMR-selects
// evidence chunks from pages for query, returning at most targetCount.
func (h *Hybrid) Refine(query string, pages []engine.FetchedPage, chunkSize, chunkOverlap int) []engine.EvidenceChunk {
	var allChunks []Chunk
	for _, p := range pages {
		allChunks = append(allChunks, ChunkPage(p, chunkSize, chunkOverlap)...)
	}
	if len(allChunks) == 0 {
		return nil
	}

	keywordScored := h.Keyword.Score(query, allChunks)

	candidates := preFilterCandidates(keywordScored, allChunks)
	if len(candidates) == 0 {
		return nil
	}

	combined := make([]engine.EvidenceChunk, 0, len(candidates))
	for _, c := range candidates {
		semantic := h.Encoder.Score(query, c.Content)
		score := keywordWeight*c.KeywordScore + semanticWeight*semantic
		if semantic == 0 && c.KeywordScore < fallbackKwFloor {
			continue
		}

		domain := sourceDomain(c.URL)
		authority := guard.AuthorityScore(domain)
		boosted := guard.ApplyAuthorityBoost(score, authority)

		combined = append(combined, engine.EvidenceChunk{
			ChunkID:        c.ChunkID,
			URL:            c.URL,
			Title:          c.Title,
			Content:        c.Content,
			KeywordScore:   c.KeywordScore,
			SemanticScore:  semantic,
			AuthorityScore: authority,
			RelevanceScore: boosted,
		})
	}

	sortByRelevanceDesc(combined)
	return mmrSelect(combined, mmrLambda, maxPerSource, targetCount)
}

// preFilterCandidates keeps the top preFilterLimit keyword matches, plus a
// safety net of the first safetyNetCount original chunks (by document
// order) that didn't already make the cut — guarding against BM25 missing
// a chunk that a semantic pass would otherwise have surfaced.
func preFilterCandidates(scored []engine.EvidenceChunk, all []Chunk) []engine.EvidenceChunk {
	seen := make(map[string]bool, preFilterLimit+safetyNetCount)
	var out []engine.EvidenceChunk

	limit := preFilterLimit
	if limit > len(scored) {
		limit = len(scored)
	}
	for _, c := range scored[:limit] {
		if !seen[c.ChunkID] {
			seen[c.ChunkID] = true
			out = append(out, c)
		}
	}

	added := 0
	for _, c := range all {
		if added >= safetyNetCount {
			break
		}
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, engine.EvidenceChunk{
			ChunkID: c.ID, URL: c.URL, Title: c.Title, Content: c.Content,
		})
		added++
	}

	return out
}

// mmrSelect greedily picks chunks balancing relevance against redundancy
// with already-selected chunks, capping how many chunks any one source
// domain contributes.
func mmrSelect(ranked []engine.EvidenceChunk, lambda float64, maxPerSrc, target int) []engine.EvidenceChunk {
	var selected []engine.EvidenceChunk
	perSource := make(map[string]int)
	remaining := append([]engine.EvidenceChunk(nil), ranked...)

	for len(selected) < target && len(remaining) > 0 {
		bestIdx := -1
		bestScore := -1.0
		for i, cand := range remaining {
			domain := sourceDomain(cand.URL)
			if perSource[domain] >= maxPerSrc {
				continue
			}
			maxSim := 0.0
			for _, s := range selected {
				if sim := tokenOverlapSimilarity(cand.Content, s.Content); sim > maxSim {
					maxSim = sim
				}
			}
			mmrScore := lambda*cand.RelevanceScore - (1-lambda)*maxSim
			if mmrScore > bestScore {
				bestScore = mmrScore
				bestIdx = i
			}
		}
		if bestIdx == -1 {
			break
		}
		chosen := remaining[bestIdx]
		selected = append(selected, chosen)
		perSource[sourceDomain(chosen.URL)]++
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

func tokenOverlapSimilarity(a, b string) float64 {
	aTerms := tokenize(a)
	if len(aTerms) == 0 {
		return 0
	}
	bSet := make(map[string]bool)
	for _, t := range tokenize(b) {
		bSet[t] = true
	}
	matched := 0
	for _, t := range aTerms {
		if bSet[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(aTerms))
}

func sourceDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}
