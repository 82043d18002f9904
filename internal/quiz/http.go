package quiz

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quiz-forge/internal/document"
)

// Scheduler はクイズ生成ジョブを非同期キューへ投入します。
type Scheduler interface {
	ScheduleGenerate(ctx context.Context, params GenerationParams) (jobID string, err error)
}

// generateRequest は POST /api/quizzes/generate のリクエストボディです。
type generateRequest struct {
	DocumentID        string `json:"documentId" binding:"required"`
	Title             string `json:"title"`
	QuestionsPerChunk int    `json:"questionsPerChunk"`
}

// GenerateHandler は POST /api/quizzes/generate のハンドラーを返します。
// 処理済みドキュメントを検証して生成ジョブを投入し、202 とジョブIDを返します。
func GenerateHandler(docs *document.Store, scheduler Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "documentId を指定してください。",
			})
			return
		}

		doc, err := docs.Get(c.Request.Context(), req.DocumentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "ドキュメントの取得に失敗しました。",
			})
			return
		}
		if doc == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "DOCUMENT_NOT_FOUND",
				"message": "指定されたドキュメントは存在しません。",
			})
			return
		}
		if doc.ChunkCount == 0 {
			c.JSON(http.StatusConflict, gin.H{
				"code":    "DOCUMENT_NOT_READY",
				"message": "ドキュメントの処理が完了していません。処理の完了を待ってから再度お試しください。",
			})
			return
		}

		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = doc.OriginalName
		}

		jobID, err := scheduler.ScheduleGenerate(c.Request.Context(), GenerationParams{
			DocumentID:        doc.ID,
			Title:             title,
			QuestionsPerChunk: req.QuestionsPerChunk,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "クイズ生成ジョブの投入に失敗しました。",
			})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"jobId": jobID,
		})
	}
}

// GetQuizHandler は GET /api/quizzes/:id のハンドラーを返します。
func GetQuizHandler(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "クイズの取得に失敗しました。",
			})
			return
		}
		if q == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "QUIZ_NOT_FOUND",
				"message": "指定されたクイズは存在しません。",
			})
			return
		}
		c.JSON(http.StatusOK, q)
	}
}
