package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
)

// NewUpstreamJSON stands in for the bridge (or any JSON upstream): the
// handler's return value is encoded as the response body.
func NewUpstreamJSON(handler func(r *http.Request) any) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handler(r))
	}))
}

// NewUpstreamStatus answers every request with a fixed status code and body,
// for exercising error paths.
func NewUpstreamStatus(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}
