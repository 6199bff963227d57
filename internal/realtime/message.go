package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownType marks messages whose type tag is not part of the protocol.
var ErrUnknownType = errors.New("unknown message type")

// Inbound message types.
const (
	TypeAuthenticate    = "authenticate"
	TypeSubscribe       = "subscribe"
	TypeUnsubscribe     = "unsubscribe"
	TypeHeartbeat       = "heartbeat"
	TypeGetServerStatus = "get_server_status"
	TypeGetMetrics      = "get_metrics"
)

// Outbound message types.
const (
	TypeConnectionEstablished = "connection_established"
	TypeAuthenticated         = "authenticated"
	TypeSubscribed            = "subscribed"
	TypeUnsubscribed          = "unsubscribed"
	TypeServerStatusResponse  = "server_status_response"
	TypeMetricsResponse       = "metrics_response"
	TypeServerStatusUpdate    = "server_status_update"
	TypeMetricsUpdate         = "metrics_update"
	TypeAlertTriggered        = "alert_triggered"
	TypeError                 = "error"
)

// Error codes carried in error payloads. Clients use these to decide
// between retrying and giving up.
const (
	CodeBadMessage    = "BAD_MESSAGE"
	CodeUnknownType   = "UNKNOWN_TYPE"
	CodeTokenMissing  = "TOKEN_MISSING"
	CodeTokenInvalid  = "TOKEN_INVALID"
	CodeTokenExpired  = "TOKEN_EXPIRED"
	CodeAuthRequired  = "AUTH_REQUIRED"
	CodeUpstreamError = "UPSTREAM_ERROR"
)

type envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type AuthenticatePayload struct {
	Token string `json:"token"`
}

type SubscribePayload struct {
	ServerIDs []string `json:"serverIds"`
}

type UnsubscribePayload struct {
	ServerIDs []string `json:"serverIds"`
}

type MetricsQueryPayload struct {
	ServerID  string `json:"serverId"`
	TimeRange string `json:"timeRange"`
}

// Inbound is the parsed form of a client message: the type tag plus exactly
// one populated payload field matching it.
type Inbound struct {
	Type         string
	Authenticate *AuthenticatePayload
	Subscribe    *SubscribePayload
	Unsubscribe  *UnsubscribePayload
	MetricsQuery *MetricsQueryPayload
}

// ParseInbound decodes a raw client frame into a typed message. Unrecognized
// types and malformed payloads are rejected here so handlers never see them.
func ParseInbound(raw []byte) (*Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	in := &Inbound{Type: env.Type}
	payload := env.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	switch env.Type {
	case TypeAuthenticate:
		in.Authenticate = &AuthenticatePayload{}
		if err := json.Unmarshal(payload, in.Authenticate); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
	case TypeSubscribe:
		in.Subscribe = &SubscribePayload{}
		if err := json.Unmarshal(payload, in.Subscribe); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
	case TypeUnsubscribe:
		in.Unsubscribe = &UnsubscribePayload{}
		if err := json.Unmarshal(payload, in.Unsubscribe); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
	case TypeHeartbeat:
		// no payload
	case TypeGetServerStatus:
		// no payload
	case TypeGetMetrics:
		in.MetricsQuery = &MetricsQueryPayload{}
		if err := json.Unmarshal(payload, in.MetricsQuery); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, env.Type)
	}

	return in, nil
}

// Encode serializes an outbound message once; the same bytes are handed to
// every recipient on fan-out.
func Encode(msgType string, payload any) ([]byte, error) {
	return json.Marshal(envelope{
		Type:      msgType,
		Payload:   mustRaw(payload),
		Timestamp: time.Now().UTC(),
	})
}

func mustRaw(payload any) json.RawMessage {
	if payload == nil {
		return json.RawMessage("{}")
	}
	if raw, ok := payload.(json.RawMessage); ok {
		return raw
	}
	b, err := json.Marshal(payload)
	if err != nil {
		// Payloads are built from our own structs and maps; a marshal
		// failure here is a programming error.
		return json.RawMessage(`{}`)
	}
	return b
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func encodeError(code, message string) []byte {
	b, _ := Encode(TypeError, errorPayload{Code: code, Message: message})
	return b
}
