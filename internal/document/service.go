package document

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// Service はドキュメントの受け付けと処理（抽出・チャンク化）を担います。
type Service struct {
	store         *Store
	workDir       string
	maxFileSize   int64
	maxPages      int
	maxChunkChars int
	logger        *log.Logger
}

// NewService は Service を作成します。
func NewService(store *Store, workDir string, maxFileSize int64, maxPages, maxChunkChars int, logger *log.Logger) *Service {
	if maxChunkChars <= 0 {
		maxChunkChars = DefaultChunkChars
	}
	return &Service{
		store:         store,
		workDir:       workDir,
		maxFileSize:   maxFileSize,
		maxPages:      maxPages,
		maxChunkChars: maxChunkChars,
		logger:        logger,
	}
}

// Store はドキュメントストアを返します。
func (s *Service) Store() *Store {
	return s.store
}

// SaveUpload はアップロードされたファイルを検証してワークスペースへ保存し、
// ドキュメントのメタデータを登録します。処理（抽出・チャンク化）は
// 非同期ジョブ側で行います。
func (s *Service) SaveUpload(ctx context.Context, file *multipart.FileHeader) (*Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if file == nil {
		return nil, newError("INVALID_INPUT", "ドキュメントファイルを選択してください。", nil)
	}
	if s.maxFileSize > 0 && file.Size > s.maxFileSize {
		return nil, newError("LIMIT_EXCEEDED", "ファイルサイズが上限を超えています。", nil)
	}

	docID := uuid.NewString()
	inDir := filepath.Join(s.workDir, docID, "in")
	if err := os.MkdirAll(inDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	storedName := "source" + strings.ToLower(filepath.Ext(file.Filename))
	storedPath := filepath.Join(inDir, storedName)
	if err := copyMultipartFile(file, storedPath); err != nil {
		_ = os.RemoveAll(filepath.Join(s.workDir, docID))
		return nil, err
	}

	kind, contentType, err := detectKind(storedPath, file.Filename)
	if err != nil {
		_ = os.RemoveAll(filepath.Join(s.workDir, docID))
		return nil, err
	}

	doc := &Document{
		ID:           docID,
		OriginalName: file.Filename,
		StoredName:   storedName,
		Kind:         kind,
		ContentType:  contentType,
		SizeBytes:    file.Size,
	}

	if kind == KindPDF {
		if err := pdfapi.ValidateFile(storedPath, nil); err != nil {
			_ = os.RemoveAll(filepath.Join(s.workDir, docID))
			return nil, newError("INVALID_INPUT", "PDFファイルを読み込めませんでした。", err)
		}
		pages, err := pdfapi.PageCountFile(storedPath)
		if err != nil {
			_ = os.RemoveAll(filepath.Join(s.workDir, docID))
			return nil, newError("INVALID_INPUT", "PDFのページ数を取得できませんでした。", err)
		}
		if s.maxPages > 0 && pages > s.maxPages {
			_ = os.RemoveAll(filepath.Join(s.workDir, docID))
			return nil, newError("LIMIT_EXCEEDED", "ページ数が上限を超えています。", nil)
		}
		doc.Pages = pages
	}

	if err := s.store.Save(ctx, doc); err != nil {
		_ = os.RemoveAll(filepath.Join(s.workDir, docID))
		return nil, err
	}
	return doc, nil
}

// ProgressReporter は処理済み/総ユニット数の進捗更新コールバックです。
type ProgressReporter func(processed, total int)

// Process はドキュメントからテキストを抽出してチャンク化し、結果を
// 保存します。reporter にはユニット（PDFはページ、テキストは全体で1）
// 単位の進捗を通知します。戻り値は生成されたチャンク数です。
func (s *Service) Process(ctx context.Context, docID string, reporter ProgressReporter) (int, error) {
	doc, err := s.store.Get(ctx, docID)
	if err != nil {
		return 0, err
	}
	if doc == nil {
		return 0, newError("DOCUMENT_NOT_FOUND", "指定されたドキュメントは存在しません。", nil)
	}

	storedPath := filepath.Join(s.workDir, doc.ID, "in", doc.StoredName)
	pages, err := s.extractPages(ctx, doc, storedPath, reporter)
	if err != nil {
		return 0, err
	}

	chunks := SplitChunks(strings.Join(pages, "\n"), s.maxChunkChars)
	if len(chunks) == 0 {
		return 0, newError("EMPTY_DOCUMENT", "ドキュメントから本文を抽出できませんでした。", nil)
	}

	records := make([]Chunk, len(chunks))
	for i, text := range chunks {
		records[i] = Chunk{Index: i, Text: text}
	}
	if err := s.store.SaveChunks(ctx, doc.ID, records); err != nil {
		return 0, err
	}

	doc.ChunkCount = len(records)
	if err := s.store.Save(ctx, doc); err != nil {
		return 0, err
	}
	return len(records), nil
}

// TotalUnits は進捗表示に使う総ユニット数を返します。
func (s *Service) TotalUnits(doc *Document) int {
	if doc.Kind == KindPDF && doc.Pages > 0 {
		return doc.Pages
	}
	return 1
}

// Discard はドキュメントのワークスペースを削除します。
func (s *Service) Discard(docID string) error {
	if docID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(s.workDir, docID))
}

func copyMultipartFile(file *multipart.FileHeader, dst string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create stored file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	return nil
}

func detectKind(path, originalName string) (Kind, string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to detect content type: %w", err)
	}

	switch {
	case mtype.Is("application/pdf"):
		return KindPDF, mtype.String(), nil
	case mtype.Is("text/plain"), mtype.Is("text/markdown"):
		return KindText, mtype.String(), nil
	}

	// Markdown はプレーンテキストとして検出されないことがあるため拡張子も見る
	switch strings.ToLower(filepath.Ext(originalName)) {
	case ".md", ".markdown", ".txt":
		return KindText, "text/plain", nil
	}

	return "", "", newError("UNSUPPORTED_TYPE", "PDFまたはテキストファイルをアップロードしてください。", nil)
}
