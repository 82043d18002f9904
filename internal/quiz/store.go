package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store はクイズを Redis に保存します。キーは quiz:<id> です。
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore は Store を作成します。ttl が 0 の場合は無期限に保存します。
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func quizKey(id string) string {
	return "quiz:" + id
}

// Save はクイズを保存します。
func (s *Store) Save(ctx context.Context, q *Quiz) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to marshal quiz: %w", err)
	}
	if err := s.client.Set(ctx, quizKey(q.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save quiz: %w", err)
	}
	return nil
}

// Get はクイズを取得します。存在しない場合は nil を返します。
func (s *Store) Get(ctx context.Context, id string) (*Quiz, error) {
	payload, err := s.client.Get(ctx, quizKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz: %w", err)
	}

	var q Quiz
	if err := json.Unmarshal(payload, &q); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quiz: %w", err)
	}
	return &q, nil
}
