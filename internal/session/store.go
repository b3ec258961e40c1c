// Package session holds the latest analysis result per patient so the
// patient view can render without touching the database.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"carelink/internal/goal"
)

// ErrNoResult is returned when nothing has been analysed for a patient yet.
var ErrNoResult = errors.New("no analysis result stored")

// DefaultReminder is shown before any care plan has been analysed.
const DefaultReminder = "Remember to stay active and reach your daily step goal!"

type Store interface {
	SaveLatest(ctx context.Context, patientKey string, res goal.ExtractionResult) error
	Latest(ctx context.Context, patientKey string) (goal.ExtractionResult, error)
	Clear(ctx context.Context, patientKey string) error
}

// LatestOrDefault returns the stored result or the default goal and reminder
// when none is stored.
func LatestOrDefault(ctx context.Context, s Store, patientKey string) (goal.ExtractionResult, bool, error) {
	res, err := s.Latest(ctx, patientKey)
	if errors.Is(err, ErrNoResult) {
		return goal.ExtractionResult{
			Goals:           []goal.Goal{goal.DefaultGoal()},
			PatientReminder: DefaultReminder,
		}, false, nil
	}
	if err != nil {
		return goal.ExtractionResult{}, false, err
	}
	return res, true, nil
}

type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]goal.ExtractionResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]goal.ExtractionResult)}
}

func (m *MemoryStore) SaveLatest(_ context.Context, patientKey string, res goal.ExtractionResult) error {
	res.Goals = append([]goal.Goal(nil), res.Goals...)
	m.mu.Lock()
	m.results[patientKey] = res
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Latest(_ context.Context, patientKey string) (goal.ExtractionResult, error) {
	m.mu.RLock()
	res, ok := m.results[patientKey]
	m.mu.RUnlock()
	if !ok {
		return goal.ExtractionResult{}, ErrNoResult
	}
	res.Goals = append([]goal.Goal(nil), res.Goals...)
	return res, nil
}

func (m *MemoryStore) Clear(_ context.Context, patientKey string) error {
	m.mu.Lock()
	delete(m.results, patientKey)
	m.mu.Unlock()
	return nil
}

const resultKeyFmt = "carelink:latest:%s"

// RedisStore keeps results as JSON values that expire after ttl.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStore) SaveLatest(ctx context.Context, patientKey string, res goal.ExtractionResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return r.rdb.Set(ctx, fmt.Sprintf(resultKeyFmt, patientKey), raw, r.ttl).Err()
}

func (r *RedisStore) Latest(ctx context.Context, patientKey string) (goal.ExtractionResult, error) {
	raw, err := r.rdb.Get(ctx, fmt.Sprintf(resultKeyFmt, patientKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return goal.ExtractionResult{}, ErrNoResult
	}
	if err != nil {
		return goal.ExtractionResult{}, err
	}
	var res goal.ExtractionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return goal.ExtractionResult{}, fmt.Errorf("decode result: %w", err)
	}
	return res, nil
}

func (r *RedisStore) Clear(ctx context.Context, patientKey string) error {
	return r.rdb.Del(ctx, fmt.Sprintf(resultKeyFmt, patientKey)).Err()
}
