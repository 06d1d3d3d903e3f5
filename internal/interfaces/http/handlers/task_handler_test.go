package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestTriggerRejectsUnknownTriggerKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewTaskHandler(nil, nil, zap.NewNop())

	router := gin.New()
	router.POST("/api/v1/tasks/trigger", h.Trigger)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/trigger",
		strings.NewReader(`{"trigger_kind": "cron"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "trigger_kind") {
		t.Errorf("error body should name the bad field: %s", w.Body.String())
	}
}
