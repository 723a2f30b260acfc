// Package synth turns ranked evidence into a final, cited answer. It is
// evidence-only: the prompt instructs the model to answer strictly from the
// supplied sources and to cite them as [1], [2], matching each source's
// position in the context block.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/driftlynx/answerengine/internal/engine"
)

const (
	promptOverheadChars = 500
	charsPerToken       = 3
	truncationMargin    = 100
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You are a helpful research assistant. " +
	"Your task is to answer the user's query using ONLY the provided context. " +
	"Cite your sources using [1], [2] notation corresponding to the source numbers provided. " +
	"If the context is insufficient, state that clearly."

// Synthesizer calls an OpenAI-compatible chat endpoint to produce the final
// answer. With no BaseURL configured, every call returns a fixed
// "not configured" message rather than an error.
type Synthesizer struct {
	BaseURL          string
	APIKey           string
	Model            string
	MaxContextTokens int
	MaxEvidence      int
	Retry            engine.RetryPolicy
}

func New(baseURL, apiKey, model string, maxContextTokens, maxEvidence int, retry engine.RetryPolicy) *Synthesizer {
	return &Synthesizer{
		BaseURL:          baseURL,
		APIKey:           apiKey,
		Model:            model,
		MaxContextTokens: maxContextTokens,
		MaxEvidence:      maxEvidence,
		Retry:            retry,
	}
}

// Synthesize answers query from evidence, returning a fixed message instead
// of an error when the LLM is unconfigured, there's no evidence, or the
// call itself fails — the research loop never propagates a synthesis
// failure to the caller.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, evidence []engine.EvidenceChunk) string {
	if s.BaseURL == "" {
		return "LLM not configured. Unable to synthesize answer."
	}
	if len(evidence) == 0 {
		return "No evidence found to answer the query."
	}

	contextText := buildContext(evidence, s.MaxContextTokens, s.MaxEvidence)
	userPrompt := fmt.Sprintf("Query: %s\n\nContext:\n%s\n\nAnswer:", query, contextText)

	answer, err := s.callChat(ctx, userPrompt)
	if err != nil {
		return fmt.Sprintf("Error synthesizing answer: %s", err.Error())
	}
	if strings.TrimSpace(answer) == "" {
		return "Error: Empty response from LLM."
	}
	return answer
}

// buildContext packs as many evidence chunks as fit within the character
// budget (max_context_tokens * 3, minus prompt overhead). When the very
// first chunk overflows, a truncated copy of it is included if the budget
// exceeds 2*truncationMargin characters; a smaller budget yields an empty
// context.
func buildContext(evidence []engine.EvidenceChunk, maxContextTokens, maxEvidence int) string {
	if maxContextTokens <= 0 {
		maxContextTokens = 2000
	}
	availableChars := maxContextTokens*charsPerToken - promptOverheadChars

	var sb strings.Builder
	currentChars := 0
	used := 0

	for i, chunk := range evidence {
		formatted := fmt.Sprintf("Source [%d] (%s):\n%s\n\n", i+1, chunk.URL, chunk.Content)
		chunkLen := len(formatted)

		if currentChars+chunkLen > availableChars {
			if used == 0 {
				safeLen := availableChars - truncationMargin
				if safeLen > truncationMargin {
					truncated := chunk.Content
					if len(truncated) > safeLen {
						truncated = truncated[:safeLen]
					}
					sb.WriteString(fmt.Sprintf("Source [%d] (%s):\n%s...(truncated)\n\n", i+1, chunk.URL, truncated))
					used++
				}
			}
			break
		}

		sb.WriteString(formatted)
		currentChars += chunkLen
		used++

		if maxEvidence > 0 && used >= maxEvidence {
			break
		}
	}
	return sb.String()
}

func (s *Synthesizer) callChat(ctx context.Context, userPrompt string) (string, error) {
	body, _ := json.Marshal(chatRequest{
		Model: s.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	})

	apiURL := strings.TrimSuffix(s.BaseURL, "/") + "/chat/completions"
	return engine.RetryDo(ctx, s.Retry, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if s.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.APIKey)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("synth LLM %d: %s", resp.StatusCode, string(respBody))
		}

		var chatResp chatResponse
		if err := json.Unmarshal(respBody, &chatResp); err != nil {
			return "", fmt.Errorf("decode synth LLM response: %w", err)
		}
		if len(chatResp.Choices) == 0 {
			return "", fmt.Errorf("no choices in synth LLM response")
		}
		return chatResp.Choices[0].Message.Content, nil
	})
}
