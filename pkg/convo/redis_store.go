package convo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the cross-process production backend: sessions keyed by
// conversation_id, serialised as a JSON blob, with TTL enforced by the
// key's own expiry rather than a background sweep, since Redis expiry
// is native.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisStoreConfig configures the backend connection.
type RedisStoreConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore constructs a RedisStore from config. It does not dial
// eagerly; the client connects lazily on first command.
func NewRedisStore(cfg RedisStoreConfig) *RedisStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "convo:"
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: prefix,
	}
}

func (s *RedisStore) key(conversationID string) string {
	return s.prefix + conversationID
}

func (s *RedisStore) Load(ctx context.Context, conversationID string) (*Session, error) {
	raw, err := s.client.Get(ctx, s.key(conversationID)).Bytes()
	if err == redis.Nil {
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("convo: redis load %q: %w", conversationID, err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("convo: decode session %q: %w", conversationID, err)
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, session *Session) error {
	session.UpdatedAt = time.Now()
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("convo: encode session %q: %w", session.ConversationID, err)
	}
	if err := s.client.Set(ctx, s.key(session.ConversationID), raw, TTL).Err(); err != nil {
		return fmt.Errorf("convo: redis save %q: %w", session.ConversationID, err)
	}
	return nil
}

func (s *RedisStore) Touch(ctx context.Context, conversationID string) error {
	ok, err := s.client.Expire(ctx, s.key(conversationID), TTL).Result()
	if err != nil {
		return fmt.Errorf("convo: redis touch %q: %w", conversationID, err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
