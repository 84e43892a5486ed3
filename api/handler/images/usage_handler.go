package images

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retrato-app/retrato/api/common"
	"github.com/retrato-app/retrato/api/middleware"
	"github.com/retrato-app/retrato/utils/format"
)

// GetUsage 获取当前所有者的配额使用量
// GET /api/v1/images/usage
func (h *Handler) GetUsage(c *gin.Context) {
	ownerID := middleware.OwnerID(c)

	usage, err := h.tracker.Usage(c.Request.Context(), ownerID)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, "Failed to fetch usage")
		return
	}

	limits := h.tracker.Limits()
	common.RespondSuccess(c, gin.H{
		"image_count":     usage.Count,
		"max_images":      limits.MaxCount,
		"used_bytes":      usage.Bytes,
		"max_bytes":       limits.MaxBytes,
		"used_mb":         format.MegabytesBinary(usage.Bytes),
		"max_mb":          format.MegabytesBinary(limits.MaxBytes),
		"used_readable":   format.HumanReadableSize(usage.Bytes),
		"remaining_count": limits.MaxCount - usage.Count,
	})
}
