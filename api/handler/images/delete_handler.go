package images

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retrato-app/retrato/api/common"
	"github.com/retrato-app/retrato/api/middleware"
)

type deleteRequest struct {
	Tokens []string `json:"tokens" binding:"required"`
}

// DeleteImages 批量删除当前所有者的图片
// POST /api/v1/images/delete
func (h *Handler) DeleteImages(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Tokens) == 0 {
		common.RespondError(c, http.StatusBadRequest, "Field 'tokens' must be a non-empty array")
		return
	}

	ownerID := middleware.OwnerID(c)
	result, err := h.uploadService.DeleteBatch(c.Request.Context(), ownerID, req.Tokens)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, "Failed to delete images")
		return
	}

	common.RespondSuccess(c, result)
}

// DeleteImage 删除单张图片
// DELETE /api/v1/images/:token
func (h *Handler) DeleteImage(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		common.RespondError(c, http.StatusBadRequest, "Token is required")
		return
	}

	ownerID := middleware.OwnerID(c)
	result, err := h.uploadService.DeleteBatch(c.Request.Context(), ownerID, []string{token})
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, "Failed to delete image")
		return
	}
	if result.DeletedCount == 0 {
		common.RespondError(c, http.StatusNotFound, "Image not found")
		return
	}

	common.RespondSuccess(c, result)
}
