package image

import (
	"context"
	"fmt"
	"time"

	"github.com/retrato-app/retrato/cache"
	"github.com/retrato-app/retrato/database/repo/links"
	"github.com/retrato-app/retrato/internal/sharelink"
	"github.com/retrato-app/retrato/utils"
)

// GalleryItem 列表中的单张图片
type GalleryItem struct {
	Token      string    `json:"token"`
	FileName   string    `json:"file_name"`
	ShareURL   string    `json:"share_url"`
	MimeType   string    `json:"mime_type"`
	FileSize   int64     `json:"file_size"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// GalleryPage 分页列表结果
type GalleryPage struct {
	Items    []GalleryItem `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// GalleryService 图片列表服务，分页结果带版本化缓存
type GalleryService struct {
	linksRepo *links.Repository
	cache     cache.Provider
	baseURL   string
	ttl       time.Duration
}

// NewGalleryService 创建列表服务
func NewGalleryService(linksRepo *links.Repository, cacheProvider cache.Provider, baseURL string, ttl time.Duration) *GalleryService {
	return &GalleryService{
		linksRepo: linksRepo,
		cache:     cacheProvider,
		baseURL:   baseURL,
		ttl:       ttl,
	}
}

// List 返回某所有者的分页图片列表。
// 分享令牌由 (所有者标识符, 文件名) 重新编码生成，与建档时写入的值一致。
func (s *GalleryService) List(ctx context.Context, ownerID string, page, pageSize int) (*GalleryPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	version := currentGalleryVersion(ctx, s.cache, ownerID)
	key := cache.GalleryPage.Build(ownerID, fmt.Sprintf("v%d", version), fmt.Sprintf("%d-%d", page, pageSize))

	var cached GalleryPage
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	rows, total, err := s.linksRepo.ListByOwner(ownerID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	result := &GalleryPage{
		Items:    make([]GalleryItem, 0, len(rows)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, row := range rows {
		token := sharelink.Encode(ownerID, row.FileName)
		result.Items = append(result.Items, GalleryItem{
			Token:      token,
			FileName:   row.FileName,
			ShareURL:   ShareURL(s.baseURL, token),
			MimeType:   row.MimeType,
			FileSize:   row.FileSize,
			Width:      row.Width,
			Height:     row.Height,
			UploadedAt: row.CreatedAt,
		})
	}

	if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
		utils.LogIfDevf("[Gallery] Failed to cache page for %s: %v", ownerID, err)
	}

	return result, nil
}

// InvalidateListing 使某所有者的全部分页缓存失效
func (s *GalleryService) InvalidateListing(ctx context.Context, ownerID string) {
	bumpGalleryVersion(ctx, s.cache, ownerID)
}

// ShareURL 拼接分享链接
func ShareURL(baseURL, token string) string {
	return baseURL + "/image/" + token
}

// currentGalleryVersion 读取当前列表版本号，未设置时为 1
func currentGalleryVersion(ctx context.Context, c cache.Provider, ownerID string) int64 {
	var version int64
	key := cache.GalleryVersion.BuildID(ownerID)
	if err := c.Get(ctx, key, &version); err != nil || version < 1 {
		return 1
	}
	return version
}

// bumpGalleryVersion 递增列表版本号，旧版本的分页键随 TTL 自然过期
func bumpGalleryVersion(ctx context.Context, c cache.Provider, ownerID string) {
	version := currentGalleryVersion(ctx, c, ownerID) + 1
	key := cache.GalleryVersion.BuildID(ownerID)
	if err := c.Set(ctx, key, version, 0); err != nil {
		utils.LogIfDevf("[Gallery] Failed to bump version for %s: %v", ownerID, err)
	}
}
