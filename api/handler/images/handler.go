package images

import (
	"github.com/retrato-app/retrato/internal/image"
	"github.com/retrato-app/retrato/internal/quota"
)

// Handler 图片管理处理器
type Handler struct {
	uploadService *image.UploadService
	gallery       *image.GalleryService
	tracker       *quota.Tracker

	maxFileSizeMB int
}

// NewHandler 创建图片管理处理器
func NewHandler(uploadService *image.UploadService, gallery *image.GalleryService, tracker *quota.Tracker, maxFileSizeMB int) *Handler {
	return &Handler{
		uploadService: uploadService,
		gallery:       gallery,
		tracker:       tracker,
		maxFileSizeMB: maxFileSizeMB,
	}
}
