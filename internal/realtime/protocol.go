package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Client-to-server frame types.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePresence    = "presence"
	FrameSend        = "send"
)

// Server-to-client frame types.
const (
	FrameEvent        = "event"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FramePong         = "pong"
	FrameError        = "error"
	FrameSystem       = "system"
)

// Error codes surfaced to clients in error frames.
const (
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeInvalidChannel = "INVALID_CHANNEL"
	CodeForbidden      = "FORBIDDEN"
	CodeNotSubscribed  = "NOT_SUBSCRIBED"
)

var (
	ErrUnknownFrameType = errors.New("unknown frame type")
	ErrMissingChannel   = errors.New("missing channel")
)

// ClientFrame is one decoded client-to-server message. The Type field is the
// discriminant; the remaining fields are populated depending on the type.
type ClientFrame struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Status  string          `json:"status,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeClientFrame parses raw bytes into exactly one known client frame
// variant. Anything else fails; a frame is never partially accepted.
func DecodeClientFrame(data []byte) (*ClientFrame, error) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch frame.Type {
	case FramePing:
	case FrameSubscribe, FrameUnsubscribe, FramePresence, FrameSend:
		if frame.Channel == "" {
			return nil, fmt.Errorf("%w for %q frame", ErrMissingChannel, frame.Type)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, frame.Type)
	}

	return &frame, nil
}

// ServerFrame is one server-to-client message. Frames are built through the
// constructors below and never mutated after construction.
type ServerFrame struct {
	Type        string          `json:"type"`
	Channel     string          `json:"channel,omitempty"`
	Event       string          `json:"event,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
	EventID     string          `json:"event_id,omitempty"`
	MemberCount int             `json:"member_count,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	DisplayName string          `json:"display_name,omitempty"`
	Message     string          `json:"message,omitempty"`
	Code        string          `json:"code,omitempty"`
}

// Encode serializes the frame. Server frames are built from already-validated
// in-process data, so a marshal failure is a bug; it is logged and yields nil.
func (f *ServerFrame) Encode() []byte {
	data, err := json.Marshal(f)
	if err != nil {
		slog.Error("failed to encode server frame", "type", f.Type, "error", err)
		return nil
	}
	return data
}

// NewEventFrame builds an event frame with a fresh event_id. The id is a
// de-duplication aid for clients, not a sequence number.
func NewEventFrame(channel, event string, payload json.RawMessage) *ServerFrame {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return &ServerFrame{
		Type:      FrameEvent,
		Channel:   channel,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		EventID:   uuid.NewString(),
	}
}

func NewSubscribedFrame(channel string, memberCount int) *ServerFrame {
	return &ServerFrame{Type: FrameSubscribed, Channel: channel, MemberCount: memberCount}
}

func NewUnsubscribedFrame(channel string) *ServerFrame {
	return &ServerFrame{Type: FrameUnsubscribed, Channel: channel}
}

func NewPresenceFrame(channel, event string, userID uuid.UUID, displayName string) *ServerFrame {
	return &ServerFrame{
		Type:        FramePresence,
		Channel:     channel,
		Event:       event,
		UserID:      userID.String(),
		DisplayName: displayName,
	}
}

func NewPongFrame() *ServerFrame {
	return &ServerFrame{Type: FramePong}
}

func NewErrorFrame(code, message string) *ServerFrame {
	return &ServerFrame{Type: FrameError, Code: code, Message: message}
}

func NewSystemFrame(message string) *ServerFrame {
	return &ServerFrame{Type: FrameSystem, Message: message}
}
