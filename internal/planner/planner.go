// Package planner turns one user query into the distinct sub-queries the
// research loop fans out to search providers. Without an LLM endpoint
// configured it passes the query through unchanged; with one configured it
// asks the model for a handful of queries that each cover a different
// angle, steering away from domains earlier rounds got blocked on.
package planner

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

const subQueryCount = 3

var httpClient = &http.Client{Timeout: 30 * time.Second}

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

// Planner decomposes a query into sub-queries, optionally via an LLM.
type Planner struct {
	BaseURL string
	APIKey  string
	Model   string
	Retry   engine.RetryPolicy
}

func New(baseURL, apiKey, model string, retry engine.RetryPolicy) *Planner {
	return &Planner{BaseURL: baseURL, APIKey: apiKey, Model: model, Retry: retry}
}

// Plan returns the sub-queries to search for this round. blockedDomains
// accumulates across rounds and, once non-empty, shifts the LLM prompt
// toward queries likely to surface alternative sources.
func (p *Planner) Plan(ctx context.Context, query string, blockedDomains []string) []string {
	if p.BaseURL == "" {
		return []string{query}
	}

	system, user := buildPrompt(query, blockedDomains)
	raw, err := p.callChat(ctx, system, user)
	if err != nil {
		return []string{query}
	}
	return parseQueries(raw, query)
}

func buildPrompt(query string, blockedDomains []string) (system, user string) {
	var sb strings.Builder
	sb.WriteString("You are a research query planner. Generate exactly ")
	fmt.Fprintf(&sb, "%d distinct search queries", subQueryCount)
	sb.WriteString(" that each cover a different aspect of the user's question.\n")

	if len(blockedDomains) > 0 {
		sb.WriteString("\nProxy Queries: some sources have become unreachable. Build queries that route around them: ")
		sb.WriteString("use site: operators against known aggregators, target discussion/forum mirrors, and try the related: operator on the most relevant domain you know of.\n")
	} else {
		sb.WriteString("\nAvoid synonyms. Each query must target a unique angle of the topic, not a rewording of another query.\n")
	}
	sb.WriteString("Return ONLY a JSON list of strings. Example: [\"query A\", \"query B\"]")

	userContent := query
	if len(blockedDomains) > 0 {
		userContent = fmt.Sprintf("%s\n\nConstraints: Avoid %s. Find alternatives.", query, strings.Join(blockedDomains, ", "))
	}
	return sb.String(), userContent
}

func (p *Planner) callChat(ctx context.Context, system, user string) (string, error) {
	body, _ := json.Marshal(chatRequest{
		Model: p.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.5,
		MaxTokens:   250,
	})

	apiURL := strings.TrimSuffix(p.BaseURL, "/") + "/chat/completions"
	raw, err := engine.RetryDo(ctx, p.Retry, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if p.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.APIKey)
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
			return "", fmt.Errorf("planner LLM %d: %s", resp.StatusCode, string(respBody))
		}

		var chatResp chatResponse
		if err := json.Unmarshal(respBody, &chatResp); err != nil {
			return "", fmt.Errorf("decode planner LLM response: %w", err)
		}
		if len(chatResp.Choices) == 0 {
			return "", fmt.Errorf("no choices in planner LLM response")
		}
		return chatResp.Choices[0].Message.Content, nil
	})
	return raw, err
}

// parseQueries tries JSON-list decoding first, falls back to splitting the
// response into lines and stripping list markers/quotes, and finally falls
// back to the original query if nothing usable survives.
func parseQueries(raw, original string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var queries []string
	if err := json.Unmarshal([]byte(raw), &queries); err == nil {
		queries = cleanQueries(queries)
		if len(queries) > 0 {
			return queries
		}
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.Trim(line, `"`)
		if line != "" {
			lines = append(lines, line)
		}
	}
	lines = cleanQueries(lines)
	if len(lines) > 0 {
		return lines
	}

	return []string{original}
}

func cleanQueries(in []string) []string {
	out := make([]string, 0, len(in))
	for _, q := range in {
		q = strings.TrimSpace(q)
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}
