package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"procurement-query-pipeline/internal/llm"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{Model: "claude-3-sonnet-20240229"}); err != ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestComplete(t *testing.T) {
	var gotVersion, gotKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": `{"fiscal_year": "2014-2015"}`},
			},
		})
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "test-key", Model: "claude-3-sonnet-20240229", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, err := c.Complete(context.Background(), llm.Request{
		System: "You are a MongoDB query generator.",
		User:   "Show 2014-2015 purchases",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "fiscal_year") {
		t.Errorf("unexpected response text: %s", text)
	}

	if gotVersion != apiVersion {
		t.Errorf("expected version header %s, got %s", apiVersion, gotVersion)
	}
	if gotKey != "test-key" {
		t.Errorf("expected api key header, got %s", gotKey)
	}
	if gotBody["model"] != "claude-3-sonnet-20240229" {
		t.Errorf("expected model in body, got %v", gotBody["model"])
	}
	if gotBody["system"] != "You are a MongoDB query generator." {
		t.Errorf("expected system prompt in body, got %v", gotBody["system"])
	}
}

func TestComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "rate_limit_error", "message": "overloaded"},
		})
	}))
	defer srv.Close()

	c, _ := New(Config{APIKey: "test-key", Model: "m", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), llm.Request{User: "q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "rate_limit_error") {
		t.Errorf("expected rate_limit_error in message, got %v", err)
	}
}

func TestComplete_NoTextBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"content": []map[string]any{}})
	}))
	defer srv.Close()

	c, _ := New(Config{APIKey: "test-key", Model: "m", BaseURL: srv.URL})

	if _, err := c.Complete(context.Background(), llm.Request{User: "q"}); err == nil {
		t.Error("expected error for empty content")
	}
}
