package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"wilbur-realtime/internal/realtime"
)

const (
	accessCacheSize = 4096
	accessCacheTTL  = 60 * time.Second
)

// MembershipStore is the lookup surface backed by the platform's membership
// tables.
type MembershipStore interface {
	IsActiveMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	IsThreadParticipant(ctx context.Context, threadID, userID uuid.UUID) (bool, error)
}

// ChannelAccessService implements realtime.Authorizer on top of the
// membership store, with a short-lived positive cache so a burst of
// subscribes from the same user does not hammer Postgres. Only grants are
// cached; denials always re-check.
type ChannelAccessService struct {
	store MembershipStore
	cache *expirable.LRU[string, struct{}]
}

func NewChannelAccessService(store MembershipStore) *ChannelAccessService {
	return &ChannelAccessService{
		store: store,
		cache: expirable.NewLRU[string, struct{}](accessCacheSize, nil, accessCacheTTL),
	}
}

func (s *ChannelAccessService) Authorize(ctx context.Context, principal uuid.UUID, ch realtime.Channel) error {
	if uid, ok := ch.UserID(); ok {
		if uid == principal {
			return nil
		}
		return realtime.ErrForbidden
	}

	// Room channels share one membership rule per room, so the key is the
	// scope id, not the channel kind.
	key := cacheKey(ch, principal)
	if _, ok := s.cache.Get(key); ok {
		return nil
	}

	allowed, err := s.lookup(ctx, principal, ch)
	if err != nil {
		// A failed lookup denies access rather than failing open.
		slog.Error("channel access lookup failed", "channel", ch.String(), "userID", principal, "error", err)
		return fmt.Errorf("%w: access lookup failed", realtime.ErrForbidden)
	}
	if !allowed {
		return realtime.ErrForbidden
	}

	s.cache.Add(key, struct{}{})
	return nil
}

func cacheKey(ch realtime.Channel, principal uuid.UUID) string {
	if roomID, ok := ch.RoomID(); ok {
		return "room:" + roomID.String() + ":" + principal.String()
	}
	if threadID, ok := ch.ThreadID(); ok {
		return "dm:" + threadID.String() + ":" + principal.String()
	}
	return ch.String() + ":" + principal.String()
}

func (s *ChannelAccessService) lookup(ctx context.Context, principal uuid.UUID, ch realtime.Channel) (bool, error) {
	if roomID, ok := ch.RoomID(); ok {
		return s.store.IsActiveMember(ctx, roomID, principal)
	}
	if threadID, ok := ch.ThreadID(); ok {
		return s.store.IsThreadParticipant(ctx, threadID, principal)
	}
	return false, fmt.Errorf("no access rule for channel kind %q", ch.Kind)
}
