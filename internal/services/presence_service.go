package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	onlineUsersKey    = "online_users"
	onlineStatusTTL   = 5 * time.Minute
	offlineStatusTTL  = 24 * time.Hour
	userStatusKeyTmpl = "user:%s:status"
)

// PresenceService keeps advisory online/offline status in Redis. It backs the
// platform's "who is online" surfaces; the fan-out core works without it.
type PresenceService struct {
	client *redis.Client
}

func NewPresenceService(client *redis.Client) *PresenceService {
	return &PresenceService{client: client}
}

func (s *PresenceService) SetOnline(ctx context.Context, userID uuid.UUID) error {
	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, onlineUsersKey, userID.String())
	pipe.HSet(ctx, fmt.Sprintf(userStatusKeyTmpl, userID), map[string]interface{}{
		"status":    "online",
		"last_seen": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf(userStatusKeyTmpl, userID), onlineStatusTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *PresenceService) SetOffline(ctx context.Context, userID uuid.UUID) error {
	pipe := s.client.Pipeline()
	pipe.SRem(ctx, onlineUsersKey, userID.String())
	pipe.HSet(ctx, fmt.Sprintf(userStatusKeyTmpl, userID), map[string]interface{}{
		"status":    "offline",
		"last_seen": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf(userStatusKeyTmpl, userID), offlineStatusTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *PresenceService) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.client.SIsMember(ctx, onlineUsersKey, userID.String()).Result()
}

func (s *PresenceService) OnlineUsers(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, onlineUsersKey).Result()
}
