package unit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mcpboard-dev/mcpboard/internal/ai"
)

func TestAIClient_Complete(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("path=%s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Fatalf("auth header=%q", r.Header.Get("Authorization"))
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Fatalf("model=%s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Fatalf("messages=%v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": "all servers healthy"}},
			},
		})
	}))
	defer up.Close()

	c := ai.New(up.URL, "sk-test", "gpt-4o-mini")
	out, err := c.Complete(context.Background(), "you are an ops assistant", "how is the fleet?")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != "all servers healthy" {
		t.Fatalf("reply=%q", out)
	}
}

func TestAIClient_ErrorStatus(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer up.Close()

	c := ai.New(up.URL, "sk-bad", "gpt-4o-mini")
	_, err := c.Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatalf("expected error for status >=400")
	}
	if !strings.Contains(err.Error(), "openai error") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestAIClient_NoChoices(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer up.Close()

	c := ai.New(up.URL, "sk-test", "gpt-4o-mini")
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestAIClient_Enabled(t *testing.T) {
	if ai.New("http://x", "", "m").Enabled() {
		t.Fatalf("client without key should be disabled")
	}
	if !ai.New("http://x", "sk", "m").Enabled() {
		t.Fatalf("client with key should be enabled")
	}
}
