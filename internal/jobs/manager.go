package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/yourusername/quiz-forge/internal/config"
	"github.com/yourusername/quiz-forge/internal/document"
	"github.com/yourusername/quiz-forge/internal/quiz"
)

const (
	taskTypeDocument   = "document:process"
	taskTypeGeneration = "quiz:generate"

	queueDocuments = "documents"
	queueQuizzes   = "quizzes"
)

// Manager はジョブの投入と状態管理を担います。
type Manager struct {
	cfg        *config.Config
	client     *asynq.Client
	server     *asynq.Server
	mux        *asynq.ServeMux
	store      *Store
	docService *document.Service
	quizStore  *quiz.Store
	generator  *quiz.Generator
	logger     *log.Logger
}

// documentPayload はドキュメント処理ジョブのペイロードです。
type documentPayload struct {
	JobID      string `json:"jobId"`
	DocumentID string `json:"documentId"`
}

// generationPayload はクイズ生成ジョブのペイロードです。
type generationPayload struct {
	JobID  string                `json:"jobId"`
	Params quiz.GenerationParams `json:"params"`
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, docService *document.Service, quizStore *quiz.Store, store *Store, logger *log.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if docService == nil {
		return nil, errors.New("docService is nil")
	}
	if quizStore == nil {
		return nil, errors.New("quizStore is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				queueDocuments: 1,
				queueQuizzes:   1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		cfg:        cfg,
		client:     client,
		server:     server,
		mux:        mux,
		store:      store,
		docService: docService,
		quizStore:  quizStore,
		generator:  quiz.NewGenerator(),
		logger:     logger,
	}
	mux.HandleFunc(taskTypeDocument, manager.handleDocumentTask)
	mux.HandleFunc(taskTypeGeneration, manager.handleGenerationTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			if m.logger != nil {
				m.logger.Printf("asynq server stopped with error: %v", err)
			} else {
				log.Printf("asynq server stopped with error: %v", err)
			}
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	m.client.Close()
	return nil
}

// EnqueueDocument はドキュメント処理ジョブを投入し、ジョブIDを返します。
// ジョブは UPLOADED 状態で作成されます。
func (m *Manager) EnqueueDocument(ctx context.Context, documentID string) (string, error) {
	if documentID == "" {
		return "", fmt.Errorf("documentID is required")
	}

	jobID := uuid.New().String()
	if err := m.store.Upsert(ctx, &Record{
		JobID:      jobID,
		Family:     FamilyDocument,
		Status:     StatusUploaded,
		DocumentID: documentID,
	}); err != nil {
		return "", err
	}

	body, err := json.Marshal(documentPayload{JobID: jobID, DocumentID: documentID})
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(taskTypeDocument, body, asynq.Queue(queueDocuments))
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(1)); err != nil {
		return "", err
	}
	return jobID, nil
}

// EnqueueGeneration はクイズ生成ジョブを投入し、ジョブIDを返します。
// ジョブは PENDING 状態で作成されます。
func (m *Manager) EnqueueGeneration(ctx context.Context, params quiz.GenerationParams) (string, error) {
	if params.DocumentID == "" {
		return "", fmt.Errorf("params.DocumentID is required")
	}

	jobID := uuid.New().String()
	if err := m.store.Upsert(ctx, &Record{
		JobID:      jobID,
		Family:     FamilyGeneration,
		Status:     StatusPending,
		DocumentID: params.DocumentID,
	}); err != nil {
		return "", err
	}

	body, err := json.Marshal(generationPayload{JobID: jobID, Params: params})
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(taskTypeGeneration, body, asynq.Queue(queueQuizzes))
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(1)); err != nil {
		return "", err
	}
	return jobID, nil
}

// RequestCancel はクイズ生成ジョブのキャンセル要求を記録します。
// ドキュメント処理ジョブはキャンセルできません。
func (m *Manager) RequestCancel(ctx context.Context, jobID string) error {
	record, err := m.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if record.Family != FamilyGeneration {
		return fmt.Errorf("job %s does not support cancellation", jobID)
	}
	return m.store.RequestCancel(ctx, jobID)
}

// GetRecord はジョブ情報を取得します。
func (m *Manager) GetRecord(ctx context.Context, jobID string) (*Record, error) {
	return m.store.Get(ctx, jobID)
}

func (m *Manager) handleDocumentTask(ctx context.Context, task *asynq.Task) error {
	var payload documentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	if payload.JobID == "" {
		return fmt.Errorf("missing jobId in payload")
	}

	doc, err := m.docService.Store().Get(ctx, payload.DocumentID)
	if err != nil {
		return m.failJobWithError(ctx, payload.JobID, err)
	}
	if doc == nil {
		return m.failJob(ctx, payload.JobID, "DOCUMENT_NOT_FOUND", "処理対象のドキュメントが見つかりません。")
	}

	total := m.docService.TotalUnits(doc)
	if err := m.store.MarkProcessing(ctx, payload.JobID, total); err != nil {
		return err
	}

	start := time.Now()
	_, err = m.docService.Process(ctx, payload.DocumentID, func(processed, total int) {
		estimate := estimateRemainingSeconds(start, processed, total)
		if uerr := m.store.UpdateProgress(ctx, payload.JobID, processed, total, estimate); uerr != nil && m.logger != nil {
			m.logger.Printf("failed to update progress job=%s: %v", payload.JobID, uerr)
		}
	})
	if err != nil {
		return m.failJobWithError(ctx, payload.JobID, err)
	}
	return m.store.MarkProcessed(ctx, payload.JobID)
}

func (m *Manager) handleGenerationTask(ctx context.Context, task *asynq.Task) error {
	var payload generationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	if payload.JobID == "" {
		return fmt.Errorf("missing jobId in payload")
	}

	chunks, err := m.docService.Store().Chunks(ctx, payload.Params.DocumentID)
	if err != nil {
		return m.failJobWithError(ctx, payload.JobID, err)
	}
	if len(chunks) == 0 {
		return m.failJob(ctx, payload.JobID, "EMPTY_DOCUMENT", "ドキュメントに処理済みのチャンクがありません。")
	}

	if err := m.store.MarkProcessing(ctx, payload.JobID, len(chunks)); err != nil {
		return err
	}

	start := time.Now()
	var questions []quiz.Question
	for i, chunk := range chunks {
		// チャンクの区切りごとにキャンセル要求を確認する
		cancelled, cerr := m.store.CancelRequested(ctx, payload.JobID)
		if cerr != nil {
			return m.failJobWithError(ctx, payload.JobID, cerr)
		}
		if cancelled {
			return m.store.MarkCancelled(ctx, payload.JobID)
		}

		questions = append(questions, m.generator.QuestionsForChunk(chunk, payload.Params.QuestionsPerChunk)...)

		processed := i + 1
		estimate := estimateRemainingSeconds(start, processed, len(chunks))
		if uerr := m.store.UpdateProgress(ctx, payload.JobID, processed, len(chunks), estimate); uerr != nil && m.logger != nil {
			m.logger.Printf("failed to update progress job=%s: %v", payload.JobID, uerr)
		}
	}

	if len(questions) == 0 {
		return m.failJob(ctx, payload.JobID, "GENERATION_EMPTY", "ドキュメントから設問を生成できませんでした。")
	}

	// 完了直前のキャンセル要求を最後に一度だけ確認する
	cancelled, cerr := m.store.CancelRequested(ctx, payload.JobID)
	if cerr != nil {
		return m.failJobWithError(ctx, payload.JobID, cerr)
	}
	if cancelled {
		return m.store.MarkCancelled(ctx, payload.JobID)
	}

	q := &quiz.Quiz{
		ID:         uuid.New().String(),
		Title:      payload.Params.Title,
		DocumentID: payload.Params.DocumentID,
		Questions:  questions,
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.quizStore.Save(ctx, q); err != nil {
		return m.failJobWithError(ctx, payload.JobID, err)
	}
	return m.store.MarkCompleted(ctx, payload.JobID, q.ID)
}

func (m *Manager) failJob(ctx context.Context, jobID, code, message string) error {
	if err := m.store.MarkFailed(ctx, jobID, &ErrorInfo{
		Code:    code,
		Message: message,
	}); err != nil {
		return err
	}
	return nil
}

func (m *Manager) failJobWithError(ctx context.Context, jobID string, err error) error {
	var docErr *document.Error
	if errors.As(err, &docErr) {
		return m.failJob(ctx, jobID, docErr.Code, docErr.Message)
	}
	return m.failJob(ctx, jobID, "INTERNAL_ERROR", err.Error())
}

// estimateRemainingSeconds は処理済みユニットの平均所要時間から
// 残り時間を秒単位で見積もります。
func estimateRemainingSeconds(start time.Time, processed, total int) int {
	if processed <= 0 || total <= processed {
		return 0
	}
	perUnit := time.Since(start) / time.Duration(processed)
	remaining := perUnit * time.Duration(total-processed)
	return int(remaining.Round(time.Second) / time.Second)
}
