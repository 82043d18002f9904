package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/quiz-forge/internal/config"
	"github.com/yourusername/quiz-forge/internal/document"
	"github.com/yourusername/quiz-forge/internal/jobs"
	"github.com/yourusername/quiz-forge/internal/quiz"
)

// apiServices はAPIハンドラーが利用するサービス一式です。
type apiServices struct {
	docService *document.Service
	quizStore  *quiz.Store
	manager    *jobs.Manager
}

// documentScheduler は document.Scheduler を Manager へ委譲します。
type documentScheduler struct {
	manager *jobs.Manager
}

func (s *documentScheduler) ScheduleProcess(ctx context.Context, documentID string) (string, error) {
	return s.manager.EnqueueDocument(ctx, documentID)
}

// generationScheduler は quiz.Scheduler を Manager へ委譲します。
type generationScheduler struct {
	manager *jobs.Manager
}

func (s *generationScheduler) ScheduleGenerate(ctx context.Context, params quiz.GenerationParams) (string, error) {
	return s.manager.EnqueueGeneration(ctx, params)
}

func setupServices(cfg *config.Config) (*apiServices, error) {
	opt, err := redis.ParseURL(cfg.StoreRedisURL)
	if err != nil {
		return nil, err
	}
	redisClient := redis.NewClient(opt)

	ttlMinutes := cfg.JobExpireMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	ttl := time.Duration(ttlMinutes) * time.Minute

	docStore := document.NewStore(redisClient, ttl)
	docService := document.NewService(docStore, cfg.WorkDir, cfg.MaxFileSize, cfg.MaxPages, cfg.MaxChunkChars, log.Default())
	quizStore := quiz.NewStore(redisClient, ttl)
	jobStore := jobs.NewStore(redisClient, ttl)

	manager, err := jobs.NewManager(cfg, docService, quizStore, jobStore, log.Default())
	if err != nil {
		return nil, err
	}

	return &apiServices{
		docService: docService,
		quizStore:  quizStore,
		manager:    manager,
	}, nil
}

// jobStatusHandler は GET /api/jobs/:id のハンドラーを返します。
// 両系統のジョブを同じスナップショット形式で返します。
func jobStatusHandler(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		if strings.TrimSpace(jobID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "jobId を指定してください。",
			})
			return
		}

		record, err := manager.GetRecord(c.Request.Context(), jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "ジョブ情報の取得に失敗しました。",
			})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "指定されたジョブは存在しません。",
			})
			return
		}

		c.JSON(http.StatusOK, snapshotPayload(record))
	}
}

// snapshotPayload はジョブレコードをステータスAPIの応答形式へ写像します。
func snapshotPayload(record *jobs.Record) gin.H {
	payload := gin.H{
		"jobId":  record.JobID,
		"family": record.Family,
		"status": record.Status,
		"progress": gin.H{
			"processedUnits": record.Progress.ProcessedUnits,
			"totalUnits":     record.Progress.TotalUnits,
		},
		"updatedAt": record.UpdatedAt,
	}
	if record.Message != "" {
		payload["message"] = record.Message
	}
	if record.Error != nil {
		payload["errorDetail"] = record.Error.Message
	}
	if record.ResultID != "" {
		payload["resultId"] = record.ResultID
	}
	if record.EstimatedTimeSeconds > 0 {
		payload["estimatedTimeSeconds"] = record.EstimatedTimeSeconds
	}
	return payload
}

// jobCancelHandler は DELETE /api/jobs/:id のハンドラーを返します。
// キャンセルできるのはクイズ生成ジョブのみです。
func jobCancelHandler(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		if strings.TrimSpace(jobID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "jobId を指定してください。",
			})
			return
		}

		record, err := manager.GetRecord(c.Request.Context(), jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "ジョブ情報の取得に失敗しました。",
			})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "指定されたジョブは存在しません。",
			})
			return
		}
		if record.Family != jobs.FamilyGeneration {
			c.JSON(http.StatusConflict, gin.H{
				"code":    "CANCEL_NOT_SUPPORTED",
				"message": "このジョブはキャンセルできません。",
			})
			return
		}

		if err := manager.RequestCancel(c.Request.Context(), jobID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "キャンセル要求の登録に失敗しました。",
			})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"jobId":  jobID,
			"status": record.Status,
		})
	}
}

// generatedQuizHandler は GET /api/quizzes/generated/:jobId のハンドラーを
// 返します。成功終端したクイズ生成ジョブの成果物を取得します。
func generatedQuizHandler(manager *jobs.Manager, store *quiz.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("jobId")
		record, err := manager.GetRecord(c.Request.Context(), jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "ジョブ情報の取得に失敗しました。",
			})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "指定されたジョブは存在しません。",
			})
			return
		}
		if record.Status != jobs.StatusCompleted || record.ResultID == "" {
			c.JSON(http.StatusConflict, gin.H{
				"code":    "JOB_RESULT_NOT_READY",
				"message": "ジョブはまだ完了していません。",
			})
			return
		}

		q, err := store.Get(c.Request.Context(), record.ResultID)
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
				"message": "生成されたクイズが見つかりませんでした。",
			})
			return
		}

		c.JSON(http.StatusOK, q)
	}
}
