package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/zcradar/zcradar/internal/infrastructure/llm"
)

type stubProviderLister struct {
	status []llm.ProviderStatus
}

func (s *stubProviderLister) ListProviders(ctx context.Context) []llm.ProviderStatus {
	return s.status
}

func TestProviderHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewProviderHandler(&stubProviderLister{status: []llm.ProviderStatus{
		{
			Name:      "openai",
			Models:    []string{"openai/gpt-4o"},
			Available: true,
		},
	}})

	router := gin.New()
	router.GET("/api/v1/providers", h.List)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"openai"`) || !strings.Contains(body, `"total":1`) {
		t.Errorf("unexpected body: %s", body)
	}
}
