package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

const sessionKeyPrefix = "session:"

// Store keeps web sessions in Redis with a TTL, so idle sessions expire
// without any cleanup job.
type Store struct {
	client rueidis.Client
}

type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
}

func NewStore(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.Addr},
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() {
	s.client.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, token, userID string, ttl time.Duration) error {
	cmd := s.client.B().Set().Key(sessionKey(token)).Value(userID).Ex(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *Store) ResolveSession(ctx context.Context, token string) (string, error) {
	cmd := s.client.B().Get().Key(sessionKey(token)).Build()
	userID, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", domain.WrapError(domain.ErrNotFound, "resolve session", err)
		}
		return "", fmt.Errorf("get session: %w", err)
	}
	return userID, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	cmd := s.client.B().Del().Key(sessionKey(token)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}
