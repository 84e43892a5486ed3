package compress

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/davidbyttow/govips/v2/vips"

	"github.com/retrato-app/retrato/internal/quota"
)

// 质量下探的步长与下限：到下限仍超出目标大小则判定失败
const (
	minQuality   = 30
	qualityStep  = 10
)

// Settings 压缩目标
type Settings struct {
	// MaxDimension 长边像素上限，超出时等比缩小
	MaxDimension int
	// MaxSizeBytes 压缩产物的字节上限
	MaxSizeBytes int64
	// Quality 起始质量（1-100）
	Quality int
	// Format 输出格式：webp 或 jpeg
	Format string
}

// Normalizer 基于 libvips 的图片规格化器，实现 quota.Normalizer
type Normalizer struct {
	settings Settings
}

// NewNormalizer 创建规格化器
func NewNormalizer(settings Settings) *Normalizer {
	if settings.Quality <= 0 || settings.Quality > 100 {
		settings.Quality = 80
	}
	if settings.Format == "" {
		settings.Format = "webp"
	}
	return &Normalizer{settings: settings}
}

// Normalize 将候选文件解码、缩放并重编码为目标格式。
// 无法压到目标大小以内时返回错误，调用方绝不回退到未处理的原件。
func (n *Normalizer) Normalize(ctx context.Context, name string, data []byte) (*quota.NormalizedFile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("cannot decode image: %w", err)
	}
	defer img.Close()

	// 等比缩放到长边上限以内
	if n.settings.MaxDimension > 0 {
		w, h := FitWithin(img.Width(), img.Height(), n.settings.MaxDimension)
		if w != img.Width() || h != img.Height() {
			if err := img.Thumbnail(w, h, vips.InterestingNone); err != nil {
				return nil, fmt.Errorf("resize failed: %w", err)
			}
		}
	}

	out, err := n.exportUnderLimit(img)
	if err != nil {
		return nil, err
	}

	return &quota.NormalizedFile{
		Name:     targetFileName(name, n.settings.Format),
		Data:     out,
		Size:     int64(len(out)),
		MimeType: mimeFor(n.settings.Format),
		Ext:      extFor(n.settings.Format),
		Width:    img.Width(),
		Height:   img.Height(),
	}, nil
}

// exportUnderLimit 从起始质量逐级下探，直到产物不超过字节上限
func (n *Normalizer) exportUnderLimit(img *vips.ImageRef) ([]byte, error) {
	for quality := n.settings.Quality; quality >= minQuality; quality -= qualityStep {
		out, err := n.export(img, quality)
		if err != nil {
			return nil, fmt.Errorf("encode failed: %w", err)
		}
		if n.settings.MaxSizeBytes <= 0 || int64(len(out)) <= n.settings.MaxSizeBytes {
			return out, nil
		}
	}
	return nil, fmt.Errorf("cannot compress below %d bytes at quality >= %d", n.settings.MaxSizeBytes, minQuality)
}

func (n *Normalizer) export(img *vips.ImageRef, quality int) ([]byte, error) {
	switch n.settings.Format {
	case "jpeg", "jpg":
		params := vips.NewJpegExportParams()
		params.Quality = quality
		out, _, err := img.ExportJpeg(params)
		return out, err
	default:
		params := vips.NewWebpExportParams()
		params.Quality = quality
		out, _, err := img.ExportWebp(params)
		return out, err
	}
}

// FitWithin 计算等比缩放后的尺寸，长边不超过 max，绝不放大
func FitWithin(width, height, max int) (int, int) {
	if max <= 0 || (width <= max && height <= max) {
		return width, height
	}

	if width >= height {
		scaled := height * max / width
		if scaled < 1 {
			scaled = 1
		}
		return max, scaled
	}
	scaled := width * max / height
	if scaled < 1 {
		scaled = 1
	}
	return scaled, max
}

// targetFileName 替换扩展名为目标格式
func targetFileName(name, format string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" {
		base = "image"
	}
	return base + extFor(format)
}

func extFor(format string) string {
	switch format {
	case "jpeg", "jpg":
		return ".jpg"
	default:
		return ".webp"
	}
}

func mimeFor(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "image/jpeg"
	default:
		return "image/webp"
	}
}
