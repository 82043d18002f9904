// Package client はAPIサーバーへのHTTPクライアントを提供します。
// ジョブ追跡エンジンの StatusClient 実装と、CLI用の操作を含みます。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yourusername/quiz-forge/internal/quiz"
	"github.com/yourusername/quiz-forge/internal/track"
)

// DefaultTimeout はHTTPリクエスト1回あたりの既定タイムアウトです。
const DefaultTimeout = 30 * time.Second

// Client はAPIサーバーと通信します。track.StatusClient を実装します。
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New は Client を作成します。baseURL は http://host:port 形式です。
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: DefaultTimeout},
	}
}

// apiError はAPIのエラー応答ボディです。
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error はAPIが返したエラー応答を表します。
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("api error (%d %s)", e.StatusCode, e.Code)
}

// UploadResult はドキュメントアップロードの応答です。
type UploadResult struct {
	DocumentID string `json:"documentId"`
	JobID      string `json:"jobId"`
}

// UploadDocument はファイルをアップロードして処理ジョブを開始します。
func (c *Client) UploadDocument(ctx context.Context, path string) (*UploadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/documents", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateQuiz はクイズ生成ジョブを開始し、ジョブIDを返します。
func (c *Client) GenerateQuiz(ctx context.Context, params quiz.GenerationParams) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"documentId":        params.DocumentID,
		"title":             params.Title,
		"questionsPerChunk": params.QuestionsPerChunk,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/quizzes/generate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		JobID string `json:"jobId"`
	}
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	return result.JobID, nil
}

// GetQuiz はクイズIDでクイズを取得します。
func (c *Client) GetQuiz(ctx context.Context, quizID string) (*quiz.Quiz, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/quizzes/"+url.PathEscape(quizID), nil)
	if err != nil {
		return nil, err
	}

	var q quiz.Quiz
	if err := c.do(req, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// FetchStatus はジョブの現在状態を取得します。
func (c *Client) FetchStatus(ctx context.Context, jobID string) (*track.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}

	var snapshot track.Snapshot
	if err := c.do(req, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// FetchResult は成功終端したクイズ生成ジョブの成果物を取得します。
func (c *Client) FetchResult(ctx context.Context, jobID string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/quizzes/generated/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// CancelJob はクイズ生成ジョブのキャンセルを要求します。
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// do はリクエストを実行し、2xx ならボディを out へデコードします。
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body apiError
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &Error{
			StatusCode: resp.StatusCode,
			Code:       body.Code,
			Message:    body.Message,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
