package unit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mcpboard-dev/mcpboard/internal/bridge"
)

func TestBridgeClient_GetServerStatus_URLAndAuth(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/servers/srv-1/status" {
			t.Fatalf("path=%s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Fatalf("auth header=%q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"serverId": "srv-1", "status": "healthy"})
	}))
	defer up.Close()

	c := bridge.New(up.URL, "test-key")
	raw, err := c.GetServerStatus(context.Background(), "srv-1")
	if err != nil {
		t.Fatalf("GetServerStatus error: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["status"] != "healthy" {
		t.Fatalf("status=%v", out["status"])
	}
}

func TestBridgeClient_GetServerStatus_EscapesID(t *testing.T) {
	var captured string
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer up.Close()

	c := bridge.New(up.URL, "k")
	if _, err := c.GetServerStatus(context.Background(), "srv/odd id"); err != nil {
		t.Fatalf("error: %v", err)
	}
	if strings.Contains(captured, " ") || !strings.Contains(captured, "srv%2Fodd") {
		t.Fatalf("id not escaped: %s", captured)
	}
}

// Ensure empty query params are filtered out.
func TestBridgeClient_GetMetrics_QueryComposition(t *testing.T) {
	var captured string
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" {
			t.Fatalf("path=%s", r.URL.Path)
		}
		captured = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(map[string]any{"serverId": "srv-1"})
	}))
	defer up.Close()

	c := bridge.New(up.URL, "k")
	if _, err := c.GetMetrics(context.Background(), "srv-1", ""); err != nil {
		t.Fatalf("GetMetrics error: %v", err)
	}
	if !strings.Contains(captured, "serverId=srv-1") {
		t.Fatalf("serverId missing in query: %s", captured)
	}
	if strings.Contains(captured, "timeRange=") {
		t.Fatalf("empty param appeared: %s", captured)
	}
}

func TestBridgeClient_ErrorStatus(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"bridge down"}`))
	}))
	defer up.Close()

	c := bridge.New(up.URL, "k")
	_, err := c.ListServers(context.Background())
	if err == nil {
		t.Fatalf("expected error for status >=400")
	}
	if !strings.Contains(err.Error(), "bridge error") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestBridgeClient_BadJSON(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not-json"))
	}))
	defer up.Close()

	c := bridge.New(up.URL, "k")
	if err := c.Health(context.Background()); err == nil {
		t.Fatalf("expected error for invalid JSON body")
	}
}

func TestBridgeClient_NoAuthHeaderWithoutKey(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Fatalf("unexpected auth header: %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer up.Close()

	c := bridge.New(up.URL, "")
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health error: %v", err)
	}
}
