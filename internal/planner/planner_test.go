package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/driftlynx/answerengine/internal/engine"
)

func TestPlanPassthroughWithoutBaseURL(t *testing.T) {
	p := New("", "", "", engine.DefaultRetryPolicy)
	got := p.Plan(context.Background(), "what is go", nil)
	if len(got) != 1 || got[0] != "what is go" {
		t.Errorf("expected passthrough, got %v", got)
	}
}

func TestPlanParsesJSONListFromLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{}
		resp.Choices = []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{{}}
		resp.Choices[0].Message.Content = `["golang concurrency model", "goroutines vs threads", "channel internals"]`
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := New(srv.URL, "", "test-model", engine.DefaultRetryPolicy)
	got := p.Plan(context.Background(), "golang concurrency", nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 sub-queries, got %d: %v", len(got), got)
	}
}

func TestPlanFallsBackOnLLMError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(srv.URL, "", "test-model", engine.RetryPolicy{MaxAttempts: 0, InitialWait: 0, MaxWait: 0, Multiplier: 1})
	got := p.Plan(context.Background(), "original query", nil)
	if len(got) != 1 || got[0] != "original query" {
		t.Errorf("expected fallback to original query, got %v", got)
	}
}

func TestParseQueriesLineSplitFallback(t *testing.T) {
	raw := "- first query\n- \"second query\"\n- third query"
	got := parseQueries(raw, "orig")
	if len(got) != 3 {
		t.Fatalf("expected 3 lines parsed, got %d: %v", len(got), got)
	}
	if got[1] != "second query" {
		t.Errorf("expected quotes stripped, got %q", got[1])
	}
}

func TestParseQueriesFallsBackToOriginal(t *testing.T) {
	got := parseQueries("   ", "orig")
	if len(got) != 1 || got[0] != "orig" {
		t.Errorf("expected fallback, got %v", got)
	}
}

func TestBuildPromptIncludesProxyHintWhenBlocked(t *testing.T) {
	system, user := buildPrompt("go concurrency", []string{"blocked.example"})
	if !strings.Contains(system, "Proxy Queries") {
		t.Error("expected proxy queries hint in system prompt when domains are blocked")
	}
	if !strings.Contains(user, "blocked.example") {
		t.Error("expected blocked domain listed in user content")
	}
}
