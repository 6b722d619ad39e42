package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership status values.
const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
	MemberStatusBanned   = "banned"
)

// RoomMembership mirrors the platform's room_memberships table. The real-time
// layer only reads it to answer "may this user join room-scoped channels".
type RoomMembership struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_room_memberships_room_user" json:"user_id"`
	RoomID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_room_memberships_room_user" json:"room_id"`
	Role      string    `gorm:"type:varchar(32);default:member" json:"role"`
	Status    string    `gorm:"type:varchar(32);default:active;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RoomMembership) TableName() string {
	return "room_memberships"
}

// PrivateChat mirrors the platform's private_chats table; a direct-message
// thread always has exactly two participants.
type PrivateChat struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantOne uuid.UUID `gorm:"type:uuid;index" json:"participant_one"`
	ParticipantTwo uuid.UUID `gorm:"type:uuid;index" json:"participant_two"`
	CreatedAt      time.Time `json:"created_at"`
}

func (PrivateChat) TableName() string {
	return "private_chats"
}
