package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retrato-app/retrato/api/common"
	"github.com/retrato-app/retrato/internal/auth"
)

// Handler 认证处理器
type Handler struct {
	cpfService *auth.CpfService
}

// NewHandler 创建认证处理器
func NewHandler(cpfService *auth.CpfService) *Handler {
	return &Handler{cpfService: cpfService}
}

type authenticateRequest struct {
	CpfHash string `json:"cpf_hash" binding:"required"`
}

// Authenticate 处理标识符摘要认证
// POST /api/auth/cpf
func (h *Handler) Authenticate(c *gin.Context) {
	var req authenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Field 'cpf_hash' is required")
		return
	}

	result, err := h.cpfService.Authenticate(req.CpfHash)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidDigest) {
			common.RespondError(c, http.StatusBadRequest, "Digest must be 64 hexadecimal characters")
			return
		}
		common.RespondError(c, http.StatusInternalServerError, "Authentication failed")
		return
	}

	common.RespondSuccess(c, gin.H{
		"user_id":             result.OwnerID,
		"access_token":        result.AccessToken,
		"access_token_expiry": result.ExpiresAt.Unix(),
	})
}
