// Package loop wraps the pipeline in the adaptive research loop: it keeps
// running rounds, feeding each round's blocked domains back into the next
// one's planning, until the accumulated evidence looks sufficient or the
// configured depth runs out, then synthesizes a final answer.
package loop

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/driftlynx/answerengine/internal/engine"
	"github.com/driftlynx/answerengine/internal/pipeline"
	"github.com/driftlynx/answerengine/internal/synth"
)

const (
	sufficientChunkCount = 3
	sufficientScore      = 0.4
)

// Loop drives repeated pipeline rounds and a final synthesis call.
type Loop struct {
	Pipeline *pipeline.Pipeline
	Synth    *synth.Synthesizer
	MaxDepth int
}

func New(p *pipeline.Pipeline, s *synth.Synthesizer, maxDepth int) *Loop {
	if maxDepth <= 0 {
		maxDepth = 2
	}
	return &Loop{Pipeline: p, Synth: s, MaxDepth: maxDepth}
}

// Run executes up to MaxDepth pipeline rounds, accumulating evidence and
// blocked domains across rounds, then synthesizes an answer from whatever
// evidence was collected.
func (l *Loop) Run(ctx context.Context, query string) engine.AnswerOutput {
	requestID := uuid.New().String()

	var accumulatedEvidence []engine.EvidenceChunk
	var lastPages []engine.FetchedPage
	blocked := make(map[string]struct{})
	trace := map[string]any{"request_id": requestID}

	rounds := 0
	for depth := 1; depth <= l.MaxDepth; depth++ {
		if ctx.Err() != nil {
			break
		}
		rounds = depth

		roundCtx := pipeline.Context{BlockedDomains: keys(blocked)}
		out := l.Pipeline.Run(ctx, query, roundCtx)

		accumulatedEvidence = append(accumulatedEvidence, out.Evidence...)
		lastPages = out.Pages
		for _, d := range out.BlockedDomains {
			blocked[d] = struct{}{}
		}
		trace[fmt.Sprintf("round_%d", depth)] = out.Trace

		if sufficient(accumulatedEvidence) {
			break
		}
	}

	answer := l.Synth.Synthesize(ctx, query, accumulatedEvidence)

	return engine.AnswerOutput{
		RequestID: requestID,
		Query:     query,
		Answer:    answer,
		Sources:   sourcesFrom(accumulatedEvidence),
		Rounds:    rounds,
		Trace:     trace,
		Pages:     lastPages,
	}
}

// sufficient reports whether at least sufficientChunkCount chunks clear
// sufficientScore — the signal that another round isn't worth the latency.
func sufficient(evidence []engine.EvidenceChunk) bool {
	count := 0
	for _, e := range evidence {
		if e.RelevanceScore > sufficientScore {
			count++
			if count >= sufficientChunkCount {
				return true
			}
		}
	}
	return false
}

func sourcesFrom(evidence []engine.EvidenceChunk) []engine.SourceItem {
	sources := make([]engine.SourceItem, 0, len(evidence))
	for i, e := range evidence {
		sources = append(sources, engine.SourceItem{
			Index:   i + 1,
			Title:   e.Title,
			URL:     e.URL,
			Snippet: e.Content,
			Score:   e.RelevanceScore,
		})
	}
	return sources
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
