package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyFmt = "session:%d"

// ErrNoSession is returned when a user has no live session.
var ErrNoSession = errors.New("session not found")

// SessionStore keeps the single active token per user.
type SessionStore interface {
	SetSession(ctx context.Context, userID uint, token string, ttl time.Duration) error
	GetSession(ctx context.Context, userID uint) (string, error)
	DeleteSession(ctx context.Context, userID uint) error
}

// RedisSessions stores tokens under session:<userID> with a TTL.
type RedisSessions struct {
	rdb *redis.Client
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb}
}

func (s *RedisSessions) SetSession(ctx context.Context, userID uint, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, fmt.Sprintf(sessionKeyFmt, userID), token, ttl).Err()
}

func (s *RedisSessions) GetSession(ctx context.Context, userID uint) (string, error) {
	tok, err := s.rdb.Get(ctx, fmt.Sprintf(sessionKeyFmt, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	return tok, err
}

func (s *RedisSessions) DeleteSession(ctx context.Context, userID uint) error {
	return s.rdb.Del(ctx, fmt.Sprintf(sessionKeyFmt, userID)).Err()
}

type memSession struct {
	token   string
	expires time.Time
}

// MemorySessions is the in-process SessionStore used when Redis is disabled.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[uint]memSession
	now      func() time.Time
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[uint]memSession), now: time.Now}
}

func (s *MemorySessions) SetSession(_ context.Context, userID uint, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = memSession{token: token, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemorySessions) GetSession(_ context.Context, userID uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return "", ErrNoSession
	}
	if !s.now().Before(sess.expires) {
		delete(s.sessions, userID)
		return "", ErrNoSession
	}
	return sess.token, nil
}

func (s *MemorySessions) DeleteSession(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}
