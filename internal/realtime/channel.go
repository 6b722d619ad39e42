package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidChannel = errors.New("invalid channel")
	ErrForbidden      = errors.New("forbidden")
)

// ChannelKind identifies the closed set of channel variants.
type ChannelKind string

const (
	KindRoomChat          ChannelKind = "room_chat"
	KindRoomAlerts        ChannelKind = "room_alerts"
	KindRoomTracks        ChannelKind = "room_tracks"
	KindRoomPresence      ChannelKind = "room_presence"
	KindRoomPolls         ChannelKind = "room_polls"
	KindUserNotifications ChannelKind = "user_notifications"
	KindDirectThread      ChannelKind = "direct_thread"
)

var roomKindBySuffix = map[string]ChannelKind{
	"chat":     KindRoomChat,
	"alerts":   KindRoomAlerts,
	"tracks":   KindRoomTracks,
	"presence": KindRoomPresence,
	"polls":    KindRoomPolls,
}

var roomSuffixByKind = map[ChannelKind]string{
	KindRoomChat:     "chat",
	KindRoomAlerts:   "alerts",
	KindRoomTracks:   "tracks",
	KindRoomPresence: "presence",
	KindRoomPolls:    "polls",
}

// Channel is a typed channel identifier. Raw channel strings crossing the
// wire are converted into a Channel at the boundary; registry keys and
// authorization dispatch operate on this form only.
type Channel struct {
	Kind ChannelKind
	ID   uuid.UUID
}

// ParseChannel parses a canonical channel string such as
// "room:<uuid>:chat", "user:<uuid>:notifications" or "dm:<uuid>".
// Anything not matching a known shape is rejected.
func ParseChannel(raw string) (Channel, error) {
	parts := strings.Split(raw, ":")

	switch {
	case len(parts) == 3 && parts[0] == "room":
		kind, ok := roomKindBySuffix[parts[2]]
		if !ok {
			break
		}
		id, err := parseCanonicalUUID(parts[1])
		if err != nil {
			break
		}
		return Channel{Kind: kind, ID: id}, nil

	case len(parts) == 3 && parts[0] == "user" && parts[2] == "notifications":
		id, err := parseCanonicalUUID(parts[1])
		if err != nil {
			break
		}
		return Channel{Kind: KindUserNotifications, ID: id}, nil

	case len(parts) == 2 && parts[0] == "dm":
		id, err := parseCanonicalUUID(parts[1])
		if err != nil {
			break
		}
		return Channel{Kind: KindDirectThread, ID: id}, nil
	}

	return Channel{}, fmt.Errorf("%w: %q", ErrInvalidChannel, raw)
}

// parseCanonicalUUID only accepts the 36-character hyphenated form so that
// every channel has exactly one string representation.
func parseCanonicalUUID(raw string) (uuid.UUID, error) {
	if len(raw) != 36 {
		return uuid.UUID{}, fmt.Errorf("non-canonical uuid %q", raw)
	}
	return uuid.Parse(raw)
}

// String returns the canonical wire form; ParseChannel(c.String()) == c.
func (c Channel) String() string {
	switch c.Kind {
	case KindUserNotifications:
		return "user:" + c.ID.String() + ":notifications"
	case KindDirectThread:
		return "dm:" + c.ID.String()
	default:
		return "room:" + c.ID.String() + ":" + roomSuffixByKind[c.Kind]
	}
}

// RoomID returns the room scope for room-bound channels, which require an
// active membership lookup to subscribe.
func (c Channel) RoomID() (uuid.UUID, bool) {
	if _, ok := roomSuffixByKind[c.Kind]; ok {
		return c.ID, true
	}
	return uuid.UUID{}, false
}

// UserID returns the owning principal for notification channels, which only
// that principal may subscribe to.
func (c Channel) UserID() (uuid.UUID, bool) {
	if c.Kind == KindUserNotifications {
		return c.ID, true
	}
	return uuid.UUID{}, false
}

// ThreadID returns the conversation scope for direct-message channels, which
// require the principal to be a thread participant.
func (c Channel) ThreadID() (uuid.UUID, bool) {
	if c.Kind == KindDirectThread {
		return c.ID, true
	}
	return uuid.UUID{}, false
}

// Authorizer decides whether a principal may subscribe to a channel. A denial
// is reported as ErrForbidden (possibly wrapped); any other error is treated
// as a denial by callers.
type Authorizer interface {
	Authorize(ctx context.Context, principal uuid.UUID, ch Channel) error
}
