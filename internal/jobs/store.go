package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const jobKeyPrefix = "job:"

// Store はジョブ状態を Redis に保存します。
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get はジョブ情報を取得します。存在しない場合は nil を返します。
func (s *Store) Get(ctx context.Context, jobID string) (*Record, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	data, err := s.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert はジョブ情報を保存します（存在しない場合は作成）。
func (s *Store) Upsert(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.ExpiresAt.IsZero() && s.ttl > 0 {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, jobKey(record.JobID), payload, s.ttl).Err()
}

// MarkProcessing は処理開始を記録し、総ユニット数を確定させます。
func (s *Store) MarkProcessing(ctx context.Context, jobID string, totalUnits int) error {
	return s.updatePartial(ctx, jobID, func(record *Record) {
		record.Status = StatusProcessing
		record.Progress = ProgressInfo{TotalUnits: totalUnits}
	})
}

// UpdateProgress は進捗カウンターと推定残り時間を更新します。
func (s *Store) UpdateProgress(ctx context.Context, jobID string, processed, total, estimatedSeconds int) error {
	return s.updatePartial(ctx, jobID, func(record *Record) {
		record.Progress = ProgressInfo{
			ProcessedUnits: processed,
			TotalUnits:     total,
			Percent:        percentOf(processed, total),
		}
		record.EstimatedTimeSeconds = estimatedSeconds
	})
}

// MarkProcessed はドキュメント処理の成功終端を記録します。
func (s *Store) MarkProcessed(ctx context.Context, jobID string) error {
	return s.updatePartial(ctx, jobID, func(record *Record) {
		record.Status = StatusProcessed
		record.Progress.ProcessedUnits = record.Progress.TotalUnits
		record.Progress.Percent = 100
		record.EstimatedTimeSeconds = 0
		record.Error = nil
	})
}

// MarkCompleted はクイズ生成の成功終端と成果物IDを記録します。
func (s *Store) MarkCompleted(ctx context.Context, jobID, resultID string) error {
	return s.updatePartial(ctx, jobID, func(record *Record) {
		record.Status = StatusCompleted
		record.Progress.ProcessedUnits = record.Progress.TotalUnits
		record.Progress.Percent = 100
		record.EstimatedTimeSeconds = 0
		record.ResultID = resultID
		record.Error = nil
	})
}

// MarkFailed はジョブ失敗時の情報を保存します。
func (s *Store) MarkFailed(ctx context.Context, jobID string, errInfo *ErrorInfo) error {
	return s.updatePartial(ctx, jobID, func(record *Record) {
		record.Status = StatusFailed
		record.EstimatedTimeSeconds = 0
		if errInfo != nil {
			record.Error = errInfo
		}
	})
}

// MarkCancelled はキャンセル終端を記録します。
func (s *Store) MarkCancelled(ctx context.Context, jobID string) error {
	return s.updatePartial(ctx, jobID, func(record *Record) {
		record.Status = StatusCancelled
		record.EstimatedTimeSeconds = 0
	})
}

// RequestCancel はキャンセル要求フラグを立てます。ワーカーはチャンクの
// 区切りごとにこのフラグを確認し、立っていれば処理を打ち切ります。
// 既に終端のジョブには何もしません。
func (s *Store) RequestCancel(ctx context.Context, jobID string) error {
	return s.updatePartial(ctx, jobID, func(record *Record) {
		if record.Terminal() {
			return
		}
		record.CancelRequested = true
	})
}

// CancelRequested はキャンセル要求フラグの状態を返します。
func (s *Store) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	record, err := s.Get(ctx, jobID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, fmt.Errorf("job not found: %s", jobID)
	}
	return record.CancelRequested, nil
}

func (s *Store) updatePartial(ctx context.Context, jobID string, mutate func(*Record)) error {
	key := jobKey(jobID)
	for {
		tx := s.rdb.TxPipeline()
		data, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return fmt.Errorf("job not found: %s", jobID)
			}
			return err
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		mutate(&record)
		record.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		tx.Set(ctx, key, payload, s.ttl)
		_, err = tx.Exec(ctx)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
}

func percentOf(processed, total int) int {
	if total <= 0 {
		return 0
	}
	percent := processed * 100 / total
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return percent
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}
