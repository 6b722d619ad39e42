package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wilbur-realtime/internal/models"
)

// MembershipRepository answers channel-authorization lookups against the
// platform's membership tables.
type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// IsActiveMember reports whether the user holds an active membership record
// in the room.
func (r *MembershipRepository) IsActiveMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RoomMembership{}).
		Where("room_id = ? AND user_id = ? AND status = ?", roomID, userID, models.MemberStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsThreadParticipant reports whether the user is one of the two participants
// of a direct-message thread.
func (r *MembershipRepository) IsThreadParticipant(ctx context.Context, threadID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PrivateChat{}).
		Where("id = ? AND (participant_one = ? OR participant_two = ?)", threadID, userID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
