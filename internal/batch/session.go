package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Kamar-Folarin/site-sync/internal/models"
)

// SessionStore persists the singleton batch session
type SessionStore interface {
	// Load returns the stored session, or nil when there is none
	Load(ctx context.Context) (*models.BatchSession, error)
	Save(ctx context.Context, session *models.BatchSession) error
	Clear(ctx context.Context) error
}

// MemorySessionStore keeps the session in process memory
type MemorySessionStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemorySessionStore creates an empty in-memory session store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

// Load decodes the stored session
func (s *MemorySessionStore) Load(ctx context.Context) (*models.BatchSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, nil
	}
	var session models.BatchSession
	if err := json.Unmarshal(s.data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode batch session: %w", err)
	}
	return &session, nil
}

// Save stores the session in its exported JSON form
func (s *MemorySessionStore) Save(ctx context.Context, session *models.BatchSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode batch session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

// Clear forgets the session
func (s *MemorySessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}

// SessionKey is the Redis key of the session, before prefixing
const SessionKey = "batch:session"

// RedisSessionStore keeps the session as a JSON string in Redis
type RedisSessionStore struct {
	client *redis.Client
	key    string
}

// NewRedisSessionStore creates a store that writes to key
func NewRedisSessionStore(client *redis.Client, key string) *RedisSessionStore {
	return &RedisSessionStore{client: client, key: key}
}

// Load reads and decodes the session
func (s *RedisSessionStore) Load(ctx context.Context) (*models.BatchSession, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read batch session: %w", err)
	}

	var session models.BatchSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode batch session: %w", err)
	}
	return &session, nil
}

// Save writes the session without expiry
func (s *RedisSessionStore) Save(ctx context.Context, session *models.BatchSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode batch session: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write batch session: %w", err)
	}
	return nil
}

// Clear deletes the session key
func (s *RedisSessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear batch session: %w", err)
	}
	return nil
}
