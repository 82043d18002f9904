package main

import (
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quiz-forge/internal/jobs"
)

func TestSnapshotPayloadOmitsEmptyFields(t *testing.T) {
	record := &jobs.Record{
		JobID:  "job-1",
		Family: jobs.FamilyDocument,
		Status: jobs.StatusProcessing,
		Progress: jobs.ProgressInfo{
			ProcessedUnits: 3,
			TotalUnits:     10,
		},
	}

	payload := snapshotPayload(record)
	for _, key := range []string{"message", "errorDetail", "resultId", "estimatedTimeSeconds"} {
		if _, ok := payload[key]; ok {
			t.Errorf("payload should not contain %q: %#v", key, payload)
		}
	}
	progress, ok := payload["progress"].(gin.H)
	if !ok {
		t.Fatalf("progress has unexpected type: %#v", payload["progress"])
	}
	if progress["processedUnits"] != 3 || progress["totalUnits"] != 10 {
		t.Fatalf("progress = %#v", progress)
	}
}

func TestSnapshotPayloadTerminalFields(t *testing.T) {
	record := &jobs.Record{
		JobID:    "job-2",
		Family:   jobs.FamilyGeneration,
		Status:   jobs.StatusCompleted,
		ResultID: "quiz-7",
		Progress: jobs.ProgressInfo{ProcessedUnits: 4, TotalUnits: 4, Percent: 100},
	}

	payload := snapshotPayload(record)
	if payload["resultId"] != "quiz-7" {
		t.Fatalf("resultId = %#v", payload["resultId"])
	}
	if payload["status"] != jobs.StatusCompleted {
		t.Fatalf("status = %#v", payload["status"])
	}

	failedRecord := &jobs.Record{
		JobID:  "job-3",
		Family: jobs.FamilyGeneration,
		Status: jobs.StatusFailed,
		Error:  &jobs.ErrorInfo{Code: "INTERNAL_ERROR", Message: "生成に失敗しました。"},
	}
	payload = snapshotPayload(failedRecord)
	if payload["errorDetail"] != "生成に失敗しました。" {
		t.Fatalf("errorDetail = %#v", payload["errorDetail"])
	}
}
