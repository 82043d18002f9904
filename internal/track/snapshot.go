package track

import (
	"context"
	"encoding/json"
)

// Snapshot はポーリング1回分のステータス応答です。受信後は変更しません。
type Snapshot struct {
	JobID                string    `json:"jobId"`
	Status               Status    `json:"status"`
	Progress             *Progress `json:"progress,omitempty"`
	Message              string    `json:"message,omitempty"`
	ErrorDetail          string    `json:"errorDetail,omitempty"`
	ResultID             string    `json:"resultId,omitempty"`
	EstimatedTimeSeconds int       `json:"estimatedTimeSeconds,omitempty"`
}

// Progress は処理済み/総ユニット数の進捗カウンターです。
type Progress struct {
	ProcessedUnits int `json:"processedUnits"`
	TotalUnits     int `json:"totalUnits"`
}

// StatusClient はリモートのステータスAPIを抽象化します。
// FetchStatus は2秒間隔でポーリングされ、FetchResult は成功終端を
// 初めて観測した後に一度だけ呼ばれます。CancelJob はベストエフォートで、
// 失敗してもローカルの状態遷移は巻き戻しません。
type StatusClient interface {
	FetchStatus(ctx context.Context, jobID string) (*Snapshot, error)
	FetchResult(ctx context.Context, jobID string) (json.RawMessage, error)
	CancelJob(ctx context.Context, jobID string) error
}
