package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannelRoundTrip(t *testing.T) {
	id := uuid.NewString()

	valid := []string{
		"room:" + id + ":chat",
		"room:" + id + ":alerts",
		"room:" + id + ":tracks",
		"room:" + id + ":presence",
		"room:" + id + ":polls",
		"user:" + id + ":notifications",
		"dm:" + id,
	}

	for _, raw := range valid {
		ch, err := ParseChannel(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, raw, ch.String(), "round-trip must yield the identical string")
	}
}

func TestParseChannelRejectsMalformed(t *testing.T) {
	id := uuid.NewString()

	malformed := []string{
		"",
		"room",
		"room:" + id,
		"room:" + id + ":",
		"room:" + id + ":chatter",
		"room:not-a-uuid:chat",
		"user:" + id + ":chat",
		"user:" + id,
		"dm:" + id + ":extra",
		"dm:nope",
		"tenant:" + id + ":chat",
		"room::chat",
		"ROOM:" + id + ":chat",
		"room:" + id + ":chat:extra",
	}

	for _, raw := range malformed {
		ch, err := ParseChannel(raw)
		assert.ErrorIs(t, err, ErrInvalidChannel, raw)
		assert.Equal(t, Channel{}, ch, "a parse failure must not yield a partial identifier")
	}
}

func TestParseChannelRejectsNonCanonicalUUID(t *testing.T) {
	// uuid.Parse would accept these forms; the channel grammar must not.
	compact := "4f5e9b1a2c3d4e5f6a7b8c9d0e1f2a3b"
	_, err := ParseChannel("room:" + compact + ":chat")
	assert.ErrorIs(t, err, ErrInvalidChannel)
}

func TestChannelScopeAccessors(t *testing.T) {
	id := uuid.New()

	roomCh := Channel{Kind: KindRoomPolls, ID: id}
	roomID, ok := roomCh.RoomID()
	require.True(t, ok)
	assert.Equal(t, id, roomID)
	_, ok = roomCh.UserID()
	assert.False(t, ok)
	_, ok = roomCh.ThreadID()
	assert.False(t, ok)

	userCh := Channel{Kind: KindUserNotifications, ID: id}
	userID, ok := userCh.UserID()
	require.True(t, ok)
	assert.Equal(t, id, userID)
	_, ok = userCh.RoomID()
	assert.False(t, ok)

	dmCh := Channel{Kind: KindDirectThread, ID: id}
	threadID, ok := dmCh.ThreadID()
	require.True(t, ok)
	assert.Equal(t, id, threadID)
	_, ok = dmCh.RoomID()
	assert.False(t, ok)
}
