package jobs

import "time"

// Family はジョブの系統（ドキュメント処理 / クイズ生成）を表します。
type Family string

const (
	FamilyDocument   Family = "document"
	FamilyGeneration Family = "generation"
)

// Status はジョブのライフサイクル状態を表します。
// ドキュメント処理は UPLOADED/PROCESSING/PROCESSED/FAILED、
// クイズ生成は PENDING/PROCESSING/COMPLETED/FAILED/CANCELLED を使います。
type Status string

const (
	StatusUploaded   Status = "UPLOADED"
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// ProgressInfo はチャンク単位の進捗カウンターです。
type ProgressInfo struct {
	ProcessedUnits int `json:"processedUnits"`
	TotalUnits     int `json:"totalUnits"`
	Percent        int `json:"percent"`
}

// ErrorInfo はジョブ失敗時のエラー情報を保持します。
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Record はジョブの現在状態を表します。ステータスAPIはこのレコードを
// スナップショットへ写像してフロントエンドへ返します。
type Record struct {
	JobID                string       `json:"jobId"`
	Family               Family       `json:"family"`
	Status               Status       `json:"status"`
	Progress             ProgressInfo `json:"progress"`
	Message              string       `json:"message,omitempty"`
	DocumentID           string       `json:"documentId,omitempty"`
	ResultID             string       `json:"resultId,omitempty"`
	EstimatedTimeSeconds int          `json:"estimatedTimeSeconds,omitempty"`
	CancelRequested      bool         `json:"cancelRequested,omitempty"`
	Error                *ErrorInfo   `json:"error,omitempty"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`
	ExpiresAt            time.Time    `json:"expiresAt"`
}

// Terminal はレコードが終端状態に到達済みかを返します。
func (r *Record) Terminal() bool {
	switch r.Status {
	case StatusProcessed, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}
