// Flash reranks chunks by scoring each (query, chunk) pair jointly through
// a cross-encoder, rather than combining two independently-scored
// encoders the way Hybrid does. It trades Hybrid's pre-filtering breadth
// for a high-confidence threshold on individual pairs.
package refine

import (
	"github.com/driftlynx/answerengine/internal/engine"
)

const flashHighConfidence = 0.85

// Flash is the "deep" mode reranker: score every chunk against the query
// with a cross-encoder (lexical fallback absent a real model), keep the
// top maxEvidence, and flag any above flashHighConfidence as a
// high-confidence answer chunk.
type Flash struct {
	CrossEncoder CrossEncoder
}

func NewFlash(crossEncoder CrossEncoder) *Flash {
	if crossEncoder == nil {
		crossEncoder = NewCrossEncoder()
	}
	return &Flash{CrossEncoder: crossEncoder}
}

func (f *Flash) Refine(query string, pages []engine.FetchedPage, chunkSize, chunkOverlap, maxEvidence int) []engine.EvidenceChunk {
	var allChunks []Chunk
	for _, p := range pages {
		allChunks = append(allChunks, ChunkPage(p, chunkSize, chunkOverlap)...)
	}
	if len(allChunks) == 0 {
		return nil
	}

	scored := make([]engine.EvidenceChunk, 0, len(allChunks))
	for _, c := range allChunks {
		score := f.CrossEncoder.ScorePair(query, c.Content)
		scored = append(scored, engine.EvidenceChunk{
			ChunkID:        c.ID,
			URL:            c.URL,
			Title:          c.Title,
			Content:        c.Content,
			SemanticScore:  score,
			RelevanceScore: score,
			IsAnswer:       score > flashHighConfidence,
		})
	}

	sortByRelevanceDesc(scored)

	if maxEvidence <= 0 || maxEvidence > len(scored) {
		maxEvidence = len(scored)
	}
	return scored[:maxEvidence]
}
