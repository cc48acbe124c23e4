package oauth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps one-time CSRF state tokens for the authorization flow.
// A state optionally carries the ID of a signed-in user who started the flow,
// so the callback can link the provider account instead of signing in.
type StateStore interface {
	// StoreState saves the state token. linkUserID may be empty.
	StoreState(ctx context.Context, state, linkUserID string, ttl time.Duration) error

	// ConsumeState atomically validates and removes the state token, returning
	// the linkUserID it was stored with. Returns ErrInvalidState when the token
	// is unknown, expired or already consumed.
	ConsumeState(ctx context.Context, state string) (string, error)
}

// RedisStateStore stores state tokens in Redis under "oauthstate:<state>".
type RedisStateStore struct {
	client *redis.Client
}

func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) key(state string) string {
	return "oauthstate:" + state
}

func (s *RedisStateStore) StoreState(ctx context.Context, state, linkUserID string, ttl time.Duration) error {
	// Store a sentinel value so empty linkUserID still produces a present key.
	return s.client.Set(ctx, s.key(state), "u:"+linkUserID, ttl).Err()
}

func (s *RedisStateStore) ConsumeState(ctx context.Context, state string) (string, error) {
	// GETDEL makes consumption one-time even under concurrent callbacks.
	val, err := s.client.GetDel(ctx, s.key(state)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrInvalidState
		}
		return "", err
	}
	return val[len("u:"):], nil
}

// MemoryStateStore is an in-process StateStore for tests and single-node runs.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]memoryState
	now    func() time.Time
}

type memoryState struct {
	linkUserID string
	expiresAt  time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]memoryState), now: time.Now}
}

func (s *MemoryStateStore) StoreState(ctx context.Context, state, linkUserID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = memoryState{linkUserID: linkUserID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStateStore) ConsumeState(ctx context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[state]
	if !ok {
		return "", ErrInvalidState
	}
	delete(s.states, state)
	if s.now().After(st.expiresAt) {
		return "", ErrInvalidState
	}
	return st.linkUserID, nil
}
