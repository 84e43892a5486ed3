package images

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retrato-app/retrato/api/common"
	"github.com/retrato-app/retrato/api/middleware"
	"github.com/retrato-app/retrato/internal/image"
	"github.com/retrato-app/retrato/internal/quota"
	"github.com/retrato-app/retrato/utils/validator"
)

// UploadImages 处理批量图片上传
// POST /api/v1/images/upload
func (h *Handler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid form data")
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		common.RespondError(c, http.StatusBadRequest, "At least one file is required under the 'files' key")
		return
	}

	maxFileSize := int64(h.maxFileSizeMB) * 1024 * 1024
	candidates := make([]quota.Candidate, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxFileSize {
			common.RespondError(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File %s (%.2f MB) exceeds maximum allowed %d MB",
					fh.Filename, float64(fh.Size)/1024/1024, h.maxFileSizeMB))
			return
		}

		data, err := readFileHeader(fh)
		if err != nil {
			common.RespondError(c, http.StatusBadRequest, fmt.Sprintf("Failed to read file %s", fh.Filename))
			return
		}

		if ok, _ := validator.IsImageBytes(data); !ok {
			common.RespondError(c, http.StatusBadRequest, fmt.Sprintf("File %s is not a supported image", fh.Filename))
			return
		}

		candidates = append(candidates, quota.Candidate{
			Name: fh.Filename,
			Size: fh.Size,
			Data: data,
		})
	}

	ownerID := middleware.OwnerID(c)
	decision, results, err := h.uploadService.UploadBatch(c.Request.Context(), ownerID, candidates)
	if err != nil {
		if errors.Is(err, image.ErrBatchTooLarge) {
			common.RespondError(c, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		common.RespondError(c, http.StatusInternalServerError, "Failed to process uploads")
		return
	}

	if !decision.Admitted {
		common.RespondRejected(c, decision.Message, gin.H{
			"reason":        decision.Reason,
			"failures":      decision.Failures,
			"current_count": decision.CurrentCount,
			"max_count":     decision.MaxCount,
			"used_bytes":    decision.UsedBytes,
			"max_bytes":     decision.MaxBytes,
		})
		return
	}

	var succeeded []*image.UploadResult
	var failed []gin.H
	for _, result := range results {
		if result.Error != "" {
			failed = append(failed, gin.H{"file_name": result.FileName, "error": result.Error})
		} else {
			succeeded = append(succeeded, result)
		}
	}

	common.RespondSuccess(c, gin.H{
		"uploaded": succeeded,
		"failed":   failed,
	})
}

// readFileHeader 将 multipart 文件完整读入内存
func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
