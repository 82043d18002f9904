package document

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestExtractSingleFileFieldNames(t *testing.T) {
	for _, field := range []string{"file", "file[]", "files"} {
		form := &multipart.Form{
			File: map[string][]*multipart.FileHeader{
				field: {{Filename: "doc.pdf"}},
			},
		}
		file, err := extractSingleFile(form)
		if err != nil {
			t.Fatalf("field %q: %v", field, err)
		}
		if file.Filename != "doc.pdf" {
			t.Fatalf("field %q: filename = %q", field, file.Filename)
		}
	}
}

func TestExtractSingleFileMissing(t *testing.T) {
	if _, err := extractSingleFile(nil); err == nil {
		t.Fatal("expected error for nil form")
	}
	if _, err := extractSingleFile(&multipart.Form{}); err == nil {
		t.Fatal("expected error for empty form")
	}
}

func TestUploadHandlerRejectsNonMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)

	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewBufferString(`{"file": "x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router := gin.New()
	router.POST("/api/documents", UploadHandler(nil, nil))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRespondWithErrorMapsCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		code   string
		status int
	}{
		{"LIMIT_EXCEEDED", http.StatusRequestEntityTooLarge},
		{"DOCUMENT_NOT_FOUND", http.StatusNotFound},
		{"UNSUPPORTED_TYPE", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(rec)
		respondWithError(ctx, newError(tc.code, "テスト", nil))
		if rec.Code != tc.status {
			t.Errorf("code %s: status = %d, want %d", tc.code, rec.Code, tc.status)
		}
	}
}
