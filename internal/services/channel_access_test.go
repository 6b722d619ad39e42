package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wilbur-realtime/internal/realtime"
)

type fakeMembershipStore struct {
	mu          sync.Mutex
	member      bool
	participant bool
	err         error

	memberCalls int
	threadCalls int
}

func (s *fakeMembershipStore) IsActiveMember(_ context.Context, _, _ uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberCalls++
	return s.member, s.err
}

func (s *fakeMembershipStore) IsThreadParticipant(_ context.Context, _, _ uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadCalls++
	return s.participant, s.err
}

func (s *fakeMembershipStore) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberCalls, s.threadCalls
}

func roomChannel(t *testing.T, kind realtime.ChannelKind) realtime.Channel {
	t.Helper()
	return realtime.Channel{Kind: kind, ID: uuid.New()}
}

func TestAuthorizeRoomMember(t *testing.T) {
	store := &fakeMembershipStore{member: true}
	svc := NewChannelAccessService(store)

	err := svc.Authorize(context.Background(), uuid.New(), roomChannel(t, realtime.KindRoomChat))
	assert.NoError(t, err)
}

func TestAuthorizeRoomNonMember(t *testing.T) {
	store := &fakeMembershipStore{member: false}
	svc := NewChannelAccessService(store)

	err := svc.Authorize(context.Background(), uuid.New(), roomChannel(t, realtime.KindRoomChat))
	assert.ErrorIs(t, err, realtime.ErrForbidden)
}

func TestAuthorizeThreadParticipant(t *testing.T) {
	svc := NewChannelAccessService(&fakeMembershipStore{participant: true})
	err := svc.Authorize(context.Background(), uuid.New(), roomChannel(t, realtime.KindDirectThread))
	assert.NoError(t, err)

	svc = NewChannelAccessService(&fakeMembershipStore{participant: false})
	err = svc.Authorize(context.Background(), uuid.New(), roomChannel(t, realtime.KindDirectThread))
	assert.ErrorIs(t, err, realtime.ErrForbidden)
}

func TestAuthorizeNotificationsWithoutStore(t *testing.T) {
	store := &fakeMembershipStore{}
	svc := NewChannelAccessService(store)
	user := uuid.New()

	err := svc.Authorize(context.Background(), user, realtime.Channel{Kind: realtime.KindUserNotifications, ID: user})
	assert.NoError(t, err)

	err = svc.Authorize(context.Background(), user, realtime.Channel{Kind: realtime.KindUserNotifications, ID: uuid.New()})
	assert.ErrorIs(t, err, realtime.ErrForbidden)

	memberCalls, threadCalls := store.calls()
	assert.Zero(t, memberCalls, "ownership is decided without a store lookup")
	assert.Zero(t, threadCalls)
}

func TestAuthorizeCachesGrants(t *testing.T) {
	store := &fakeMembershipStore{member: true}
	svc := NewChannelAccessService(store)
	user := uuid.New()
	ch := roomChannel(t, realtime.KindRoomChat)

	require.NoError(t, svc.Authorize(context.Background(), user, ch))
	require.NoError(t, svc.Authorize(context.Background(), user, ch))

	memberCalls, _ := store.calls()
	assert.Equal(t, 1, memberCalls, "a repeated grant is served from cache")
}

func TestAuthorizeCacheSpansRoomChannelKinds(t *testing.T) {
	store := &fakeMembershipStore{member: true}
	svc := NewChannelAccessService(store)
	user := uuid.New()
	roomID := uuid.New()

	require.NoError(t, svc.Authorize(context.Background(), user, realtime.Channel{Kind: realtime.KindRoomChat, ID: roomID}))
	require.NoError(t, svc.Authorize(context.Background(), user, realtime.Channel{Kind: realtime.KindRoomAlerts, ID: roomID}))

	memberCalls, _ := store.calls()
	assert.Equal(t, 1, memberCalls, "room channels share one membership rule per room")
}

func TestAuthorizeDoesNotCacheDenials(t *testing.T) {
	store := &fakeMembershipStore{member: false}
	svc := NewChannelAccessService(store)
	user := uuid.New()
	ch := roomChannel(t, realtime.KindRoomChat)

	assert.Error(t, svc.Authorize(context.Background(), user, ch))
	assert.Error(t, svc.Authorize(context.Background(), user, ch))

	memberCalls, _ := store.calls()
	assert.Equal(t, 2, memberCalls, "denials always re-check the store")
}

func TestAuthorizeFailsClosedOnStoreError(t *testing.T) {
	store := &fakeMembershipStore{err: errors.New("connection refused")}
	svc := NewChannelAccessService(store)

	err := svc.Authorize(context.Background(), uuid.New(), roomChannel(t, realtime.KindRoomTracks))
	assert.ErrorIs(t, err, realtime.ErrForbidden)
}
