package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/retrato-app/retrato/internal/auth"
	"github.com/stretchr/testify/assert"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	// 摘要格式校验在触达仓库之前完成，坏输入用例无需数据库
	handler := NewHandler(auth.NewCpfService(nil, nil))

	router := gin.New()
	router.POST("/api/auth/cpf", handler.Authenticate)
	return router
}

func postJSON(router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/cpf", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthenticateRejectsMalformedDigest(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name   string
		digest string
	}{
		{"too short", "abc123"},
		{"63 chars", strings.Repeat("a", 63)},
		{"65 chars", strings.Repeat("a", 65)},
		{"non hex", strings.Repeat("z", 64)},
		{"raw 11 digits", "12345678901"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(router, gin.H{"cpf_hash": tt.digest})
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAuthenticateRejectsMissingField(t *testing.T) {
	router := setupTestRouter(t)

	w := postJSON(router, gin.H{"other": "value"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/cpf", bytes.NewReader([]byte("not json")))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
