package document

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	docKeyPrefix   = "document:"
	chunkKeySuffix = ":chunks"
)

// Store はドキュメントとチャンクを Redis に保存します。
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore は Store を作成します。ttl が0の場合は無期限に保存します。
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
	}
}

// Save はドキュメントのメタデータを保存します。
func (s *Store) Save(ctx context.Context, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("document is nil")
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, docKey(doc.ID), payload, s.ttl).Err()
}

// Get はドキュメントを取得します。存在しない場合は nil を返します。
func (s *Store) Get(ctx context.Context, docID string) (*Document, error) {
	if docID == "" {
		return nil, fmt.Errorf("docID is required")
	}
	data, err := s.rdb.Get(ctx, docKey(docID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SaveChunks はドキュメントのチャンク一覧を保存します。
func (s *Store) SaveChunks(ctx context.Context, docID string, chunks []Chunk) error {
	payload, err := json.Marshal(chunks)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, docKey(docID)+chunkKeySuffix, payload, s.ttl).Err()
}

// Chunks はドキュメントのチャンク一覧を取得します。
func (s *Store) Chunks(ctx context.Context, docID string) ([]Chunk, error) {
	data, err := s.rdb.Get(ctx, docKey(docID)+chunkKeySuffix).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

func docKey(id string) string {
	return docKeyPrefix + id
}
