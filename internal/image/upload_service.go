package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/retrato-app/retrato/cache"
	"github.com/retrato-app/retrato/database/models"
	"github.com/retrato-app/retrato/database/repo/links"
	"github.com/retrato-app/retrato/internal/quota"
	"github.com/retrato-app/retrato/internal/sharelink"
	"github.com/retrato-app/retrato/internal/worker"
	"github.com/retrato-app/retrato/storage"
	"github.com/retrato-app/retrato/utils"
	"github.com/retrato-app/retrato/utils/generator"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyBatch 批量上传不能为空
var ErrEmptyBatch = errors.New("upload batch is empty")

// ErrBatchTooLarge 批量上传超过单次文件数上限
var ErrBatchTooLarge = errors.New("upload batch exceeds file count limit")

// backupEntryTTL 备份映射的保留时长，目录表丢失时兜底解析用
const backupEntryTTL = 7 * 24 * time.Hour

// UploadResult 单文件上传结果
type UploadResult struct {
	FileName string `json:"file_name"`
	Token    string `json:"token,omitempty"`
	ShareURL string `json:"share_url,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Error    string `json:"error,omitempty"`
}

// DeleteResult 批量删除结果
type DeleteResult struct {
	DeletedCount int64 `json:"deleted_count"`
}

// UploadService 图片上传与删除服务
type UploadService struct {
	linksRepo *links.Repository
	storage   storage.Provider
	tracker   *quota.Tracker
	gallery   *GalleryService
	cache     cache.Provider
	pool      *worker.Pool
	baseURL   string
}

// NewUploadService 创建上传服务
func NewUploadService(
	linksRepo *links.Repository,
	storageProvider storage.Provider,
	tracker *quota.Tracker,
	gallery *GalleryService,
	cacheProvider cache.Provider,
	pool *worker.Pool,
	baseURL string,
) *UploadService {
	return &UploadService{
		linksRepo: linksRepo,
		storage:   storageProvider,
		tracker:   tracker,
		gallery:   gallery,
		cache:     cacheProvider,
		pool:      pool,
		baseURL:   baseURL,
	}
}

// UploadBatch 整批准入后并发上传。
// 准入被拒时原样返回判定结果，一个文件都不会写入；准入通过后单个
// 文件的保存失败只记录到对应结果项，不影响同批其他文件。
func (s *UploadService) UploadBatch(ctx context.Context, ownerID string, candidates []quota.Candidate) (*quota.Decision, []*UploadResult, error) {
	if len(candidates) == 0 {
		return nil, nil, ErrEmptyBatch
	}
	if max := s.tracker.Limits().MaxBatchFiles; max > 0 && len(candidates) > max {
		return nil, nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(candidates), max)
	}

	decision, err := s.tracker.CanAdmit(ctx, ownerID, candidates)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Admitted {
		return decision, nil, nil
	}

	results := make([]*UploadResult, len(decision.Files))
	var resultsMutex sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, file := range decision.Files {
		i, file := i, file
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
				result := s.saveOne(gctx, ownerID, file)
				resultsMutex.Lock()
				results[i] = result
				resultsMutex.Unlock()
				return nil
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("batch upload failed: %w", err)
	}

	// 存储内容已变化，快照与列表缓存必须立即失效
	s.tracker.Invalidate(ownerID)
	s.gallery.InvalidateListing(ctx, ownerID)

	return decision, results, nil
}

// saveOne 保存单个规格化文件：写存储、建目录记录、异步写备份映射
func (s *UploadService) saveOne(ctx context.Context, ownerID string, file *quota.NormalizedFile) *UploadResult {
	result := &UploadResult{FileName: file.Name}

	obj := generator.BuildObjectName(ownerID, utils.RandomSuffix(), file.Ext, time.Now())

	if err := s.storage.SaveWithContext(ctx, obj.StoragePath, bytes.NewReader(file.Data), file.Size); err != nil {
		result.Error = fmt.Sprintf("failed to save file: %v", err)
		return result
	}

	// 规格化器未带回尺寸时从产物头部补齐
	if file.Width == 0 || file.Height == 0 {
		file.Width, file.Height = utils.GetImageDimensions(file.Data)
	}

	token := sharelink.Encode(ownerID, obj.FileName)
	link := &models.ShareLink{
		Token:       token,
		OwnerID:     ownerID,
		FileName:    obj.FileName,
		StoragePath: obj.StoragePath,
		FileSize:    file.Size,
		MimeType:    file.MimeType,
		Width:       file.Width,
		Height:      file.Height,
	}
	if err := s.linksRepo.Create(link); err != nil {
		// 目录建档失败时回滚存储对象，避免出现无主文件占配额
		if derr := s.storage.DeleteWithContext(ctx, obj.StoragePath); derr != nil {
			log.Printf("WARN: failed to roll back storage object %s: %v", obj.StoragePath, derr)
		}
		result.Error = fmt.Sprintf("failed to record share link: %v", err)
		return result
	}

	s.pool.TrySubmit(&worker.BackupWriteTask{
		Cache: s.cache,
		Token: token,
		Entry: worker.BackupEntry{
			OwnerID:     ownerID,
			FileName:    obj.FileName,
			StoragePath: obj.StoragePath,
			MimeType:    file.MimeType,
		},
		TTL: backupEntryTTL,
	}, 3, 100*time.Millisecond)

	result.Token = token
	result.ShareURL = ShareURL(s.baseURL, token)
	result.FileSize = file.Size
	result.MimeType = file.MimeType
	result.Width = file.Width
	result.Height = file.Height
	return result
}

// DeleteBatch 批量删除某所有者的图片。
// 目录记录同步删除，存储对象交给异步任务尽力清理。
func (s *UploadService) DeleteBatch(ctx context.Context, ownerID string, tokens []string) (*DeleteResult, error) {
	if len(tokens) == 0 {
		return &DeleteResult{}, nil
	}

	// 先批量查出存储路径（避免 N+1 查询），再删目录记录
	rows, err := s.linksRepo.GetByTokensAndOwner(tokens, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query share links: %w", err)
	}

	affected, err := s.linksRepo.DeleteByTokensAndOwner(tokens, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete share links: %w", err)
	}

	paths := make([]string, 0, len(rows))
	for _, row := range rows {
		paths = append(paths, row.StoragePath)
	}
	if len(paths) > 0 {
		s.pool.TrySubmit(&worker.StorageDeleteTask{Storage: s.storage, Paths: paths}, 3, 100*time.Millisecond)
	}

	for _, token := range tokens {
		if err := s.cache.Delete(ctx, cache.ShareBackup.BuildID(token)); err != nil {
			utils.LogIfDevf("[Delete] Failed to drop backup entry for %s: %v", utils.SanitizeLogToken(token), err)
		}
	}

	s.tracker.Invalidate(ownerID)
	s.gallery.InvalidateListing(ctx, ownerID)

	return &DeleteResult{DeletedCount: affected}, nil
}
