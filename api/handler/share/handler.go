package share

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retrato-app/retrato/api/common"
	"github.com/retrato-app/retrato/internal/image"
	"github.com/retrato-app/retrato/storage"
	"github.com/retrato-app/retrato/utils"
	"github.com/retrato-app/retrato/utils/validator"
)

// Handler 公开分享访问处理器
type Handler struct {
	resolver *image.Resolver
	storage  storage.Provider
}

// NewHandler 创建分享访问处理器
func NewHandler(resolver *image.Resolver, storageProvider storage.Provider) *Handler {
	return &Handler{
		resolver: resolver,
		storage:  storageProvider,
	}
}

// GetImage 通过分享令牌获取图片
// GET /image/:token
func (h *Handler) GetImage(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		common.RespondError(c, http.StatusBadRequest, "Share token is required")
		return
	}

	resolved, err := h.resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, image.ErrNotFound) {
			common.RespondError(c, http.StatusNotFound, "Image not found")
			return
		}
		log.Printf("[Share] Failed to resolve token %s: %v", utils.SanitizeLogToken(token), err)
		common.RespondError(c, http.StatusInternalServerError, "Failed to resolve image")
		return
	}

	reader, err := h.storage.GetWithContext(c.Request.Context(), resolved.StoragePath)
	if err != nil {
		common.RespondError(c, http.StatusNotFound, "Image not found")
		return
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, "Failed to read image")
		return
	}

	contentType := resolved.MimeType
	if contentType == "" {
		_, contentType = validator.IsImageBytes(data)
	}

	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, contentType, data)
}
