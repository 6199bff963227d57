package bridge

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcpboard-dev/mcpboard/internal/realtime"
)

const reconnectDelay = 5 * time.Second

// Publisher is the slice of the realtime hub the event stream feeds.
type Publisher interface {
	Publish(topic, msgType string, payload any)
	PublishAll(msgType string, payload any)
}

// StatusRecorder persists the latest health reported for a server, so the
// dashboard still shows something sensible after the stream drops.
type StatusRecorder interface {
	UpdateStatus(ctx context.Context, id, status string) error
}

// event is one frame from the bridge's event feed.
type event struct {
	Event    string          `json:"event"`
	ServerID string          `json:"serverId"`
	Payload  json.RawMessage `json:"payload"`
}

// Listen consumes the bridge's websocket event feed and republishes frames
// to dashboard subscribers. It reconnects until the context is cancelled.
func Listen(ctx context.Context, baseURL, apiKey string, pub Publisher, rec StatusRecorder) {
	wsURL := eventStreamURL(baseURL)

	for {
		if err := consume(ctx, wsURL, apiKey, pub, rec); err != nil {
			log.Printf("[bridge] event stream: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func eventStreamURL(baseURL string) string {
	u := baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/events"
}

func consume(ctx context.Context, wsURL, apiKey string, pub Publisher, rec StatusRecorder) error {
	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "Bearer "+apiKey)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[bridge] connected to event stream %s", wsURL)

	// Drop the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var ev event
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Printf("[bridge] skipping malformed event: %v", err)
			continue
		}
		dispatch(ctx, &ev, pub, rec)
	}
}

func dispatch(ctx context.Context, ev *event, pub Publisher, rec StatusRecorder) {
	switch ev.Event {
	case "server_status":
		recordStatus(ctx, ev, rec)
		pub.Publish(ev.ServerID, realtime.TypeServerStatusUpdate, ev.Payload)
	case "metrics":
		pub.Publish(ev.ServerID, realtime.TypeMetricsUpdate, ev.Payload)
	case "alert":
		pub.PublishAll(realtime.TypeAlertTriggered, ev.Payload)
	default:
		// Bridge may add event kinds we don't surface yet.
	}
}

func recordStatus(ctx context.Context, ev *event, rec StatusRecorder) {
	if rec == nil || ev.ServerID == "" {
		return
	}
	var p struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Status == "" {
		return
	}
	if err := rec.UpdateStatus(ctx, ev.ServerID, p.Status); err != nil {
		log.Printf("[bridge] persist status for %s: %v", ev.ServerID, err)
	}
}
