package bridge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mcpboard-dev/mcpboard/internal/realtime"
)

func TestEventStreamURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"http://localhost:3100", "ws://localhost:3100/events"},
		{"https://bridge.example.com", "wss://bridge.example.com/events"},
		{"ws://already-ws:3100", "ws://already-ws:3100/events"},
	}
	for _, c := range cases {
		if got := eventStreamURL(c.in); got != c.want {
			t.Errorf("eventStreamURL(%q)=%q, want %q", c.in, got, c.want)
		}
	}
}

type recordedPublish struct {
	topic   string
	msgType string
}

type recordingPublisher struct {
	targeted  []recordedPublish
	broadcast []string
}

func (r *recordingPublisher) Publish(topic, msgType string, payload any) {
	r.targeted = append(r.targeted, recordedPublish{topic, msgType})
}

func (r *recordingPublisher) PublishAll(msgType string, payload any) {
	r.broadcast = append(r.broadcast, msgType)
}

type recordedStatus struct {
	id     string
	status string
}

type recordingStatusStore struct {
	updates []recordedStatus
}

func (r *recordingStatusStore) UpdateStatus(_ context.Context, id, status string) error {
	r.updates = append(r.updates, recordedStatus{id, status})
	return nil
}

func TestDispatch_RoutesEventKinds(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	store := &recordingStatusStore{}

	dispatch(ctx, &event{Event: "server_status", ServerID: "srv-1", Payload: json.RawMessage(`{"status":"healthy"}`)}, pub, store)
	dispatch(ctx, &event{Event: "metrics", ServerID: "srv-2", Payload: json.RawMessage(`{"cpu":0.5}`)}, pub, store)
	dispatch(ctx, &event{Event: "alert", Payload: json.RawMessage(`{"severity":"critical"}`)}, pub, store)
	dispatch(ctx, &event{Event: "log_line", Payload: json.RawMessage(`{}`)}, pub, store)

	if len(pub.targeted) != 2 {
		t.Fatalf("targeted publishes=%v", pub.targeted)
	}
	if pub.targeted[0] != (recordedPublish{"srv-1", realtime.TypeServerStatusUpdate}) {
		t.Fatalf("first publish=%v", pub.targeted[0])
	}
	if pub.targeted[1] != (recordedPublish{"srv-2", realtime.TypeMetricsUpdate}) {
		t.Fatalf("second publish=%v", pub.targeted[1])
	}
	if len(pub.broadcast) != 1 || pub.broadcast[0] != realtime.TypeAlertTriggered {
		t.Fatalf("broadcasts=%v", pub.broadcast)
	}
	if len(store.updates) != 1 || store.updates[0] != (recordedStatus{"srv-1", "healthy"}) {
		t.Fatalf("status updates=%v", store.updates)
	}
}

func TestDispatch_NilRecorderAndBadPayload(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}

	// No recorder wired: status events still broadcast.
	dispatch(ctx, &event{Event: "server_status", ServerID: "srv-1", Payload: json.RawMessage(`{"status":"healthy"}`)}, pub, nil)
	// Payload without a status field: nothing persisted.
	store := &recordingStatusStore{}
	dispatch(ctx, &event{Event: "server_status", ServerID: "srv-1", Payload: json.RawMessage(`{"uptime":3}`)}, pub, store)

	if len(pub.targeted) != 2 {
		t.Fatalf("targeted publishes=%v", pub.targeted)
	}
	if len(store.updates) != 0 {
		t.Fatalf("unexpected status updates: %v", store.updates)
	}
}
