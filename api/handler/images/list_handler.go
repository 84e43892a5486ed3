package images

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/retrato-app/retrato/api/common"
	"github.com/retrato-app/retrato/api/middleware"
)

// ListImages 获取当前所有者的分页图片列表
// GET /api/v1/images/list
func (h *Handler) ListImages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	ownerID := middleware.OwnerID(c)
	result, err := h.gallery.List(c.Request.Context(), ownerID, page, pageSize)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, "Failed to list images")
		return
	}

	common.RespondSuccess(c, result)
}
