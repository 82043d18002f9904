package document

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Scheduler はドキュメント処理ジョブを非同期キューへ投入します。
type Scheduler interface {
	ScheduleProcess(ctx context.Context, documentID string) (jobID string, err error)
}

// UploadHandler は POST /api/documents のハンドラーを返します。
// ファイルを受け付けて処理ジョブを投入し、202 とジョブIDを返します。
func UploadHandler(svc *Service, scheduler Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "multipart/form-data でドキュメントを送信してください。",
			})
			return
		}
		defer form.RemoveAll()

		file, err := extractSingleFile(form)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": err.Error(),
			})
			return
		}

		doc, err := svc.SaveUpload(c.Request.Context(), file)
		if err != nil {
			respondWithError(c, err)
			return
		}

		jobID, err := scheduler.ScheduleProcess(c.Request.Context(), doc.ID)
		if err != nil {
			if cleanupErr := svc.Discard(doc.ID); cleanupErr != nil {
				err = fmt.Errorf("%w (cleanup failed: %v)", err, cleanupErr)
			}
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"documentId": doc.ID,
			"jobId":      jobID,
		})
	}
}

// GetHandler は GET /api/documents/:id のハンドラーを返します。
func GetHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID := c.Param("id")
		doc, err := svc.Store().Get(c.Request.Context(), docID)
		if err != nil {
			respondWithError(c, err)
			return
		}
		if doc == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "DOCUMENT_NOT_FOUND",
				"message": "指定されたドキュメントは存在しません。",
			})
			return
		}

		chunks, err := svc.Store().Chunks(c.Request.Context(), docID)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"document": doc,
			"chunks":   chunks,
		})
	}
}

func extractSingleFile(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, errors.New("ドキュメントファイルを選択してください。")
	}
	if file := form.File["file"]; len(file) > 0 {
		return file[0], nil
	}
	if file := form.File["file[]"]; len(file) > 0 {
		return file[0], nil
	}
	if files := form.File["files"]; len(files) > 0 {
		return files[0], nil
	}
	return nil, errors.New("ドキュメントファイルを選択してください。")
}

func respondWithError(c *gin.Context, err error) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		status := http.StatusBadRequest
		switch apiErr.Code {
		case "LIMIT_EXCEEDED":
			status = http.StatusRequestEntityTooLarge
		case "DOCUMENT_NOT_FOUND":
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":    "REQUEST_CANCELED",
			"message": "リクエストがキャンセルされました。",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "サーバー内部でエラーが発生しました。",
		})
	}
}
