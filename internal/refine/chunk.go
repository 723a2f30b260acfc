// Package refine turns fetched pages into scored, deduplicated evidence
// chunks: chunking, BM25 keyword scoring, a hybrid keyword+semantic
// refiner with authority weighting and MMR diversification, and a
// cross-encoder-style "flash" refiner — both degrading gracefully to a
// lexical scorer when no embedding backend is configured.
package refine

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/driftlynx/answerengine/internal/engine"
)

// Chunk is a raw passage sliced from a fetched page, before scoring.
type Chunk struct {
	ID      string
	URL     string
	Title   string
	Content string
}

var sentenceSplit = regexp.MustCompile(`(?:[.!?])\s+`)

// ChunkPage slices a page's content into paragraph-first passages: it
// splits on blank lines first, then falls back to sentence grouping, then
// to a hard slice for any paragraph still longer than size — so no chunk
// exceeds size+overlap regardless of the source's paragraph structure.
func ChunkPage(page engine.FetchedPage, size, overlap int) []Chunk {
	if size <= 0 {
		size = 1000
	}
	paragraphs := splitParagraphs(page.Content)

	var chunks []Chunk
	idx := 0
	for _, para := range paragraphs {
		for _, piece := range sliceToSize(para, size, overlap) {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				ID:      chunkID(page.URL, idx),
				URL:     page.URL,
				Title:   page.Title,
				Content: piece,
			})
			idx++
		}
	}
	return chunks
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	var out []string
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 && strings.TrimSpace(text) != "" {
		out = []string{strings.TrimSpace(text)}
	}
	return out
}

// sliceToSize breaks a paragraph into pieces no longer than size. It tries
// sentence boundaries first; a single sentence still longer than size gets
// hard-sliced with the given overlap.
func sliceToSize(paragraph string, size, overlap int) []string {
	if len(paragraph) <= size {
		return []string{paragraph}
	}

	sentences := sentenceSplit.Split(paragraph, -1)
	var pieces []string
	var current strings.Builder
	for _, s := range sentences {
		if current.Len()+len(s) > size && current.Len() > 0 {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if len(s) > size {
			pieces = append(pieces, hardSlice(s, size, overlap)...)
			continue
		}
		if current.Len() > 0 {
			current.WriteString(". ")
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

func hardSlice(text string, size, overlap int) []string {
	if overlap >= size {
		overlap = size / 2
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}
	var out []string
	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		out = append(out, text[start:end])
		if end == len(text) {
			break
		}
	}
	return out
}

// chunkID is a stable identifier for a (url, index) pair, used for dedup
// across refiner pre-filtering stages.
func chunkID(url string, idx int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d", url, idx)))
	return fmt.Sprintf("%x", sum[:8])
}
