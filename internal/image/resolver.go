package image

import (
	"context"
	"errors"
	"fmt"

	"github.com/retrato-app/retrato/cache"
	"github.com/retrato-app/retrato/database/models"
	"github.com/retrato-app/retrato/internal/sharelink"
	"github.com/retrato-app/retrato/internal/worker"
	"github.com/retrato-app/retrato/utils"
	"github.com/retrato-app/retrato/utils/generator"
	"gorm.io/gorm"
)

// ErrNotFound 令牌解析不到任何图片
var ErrNotFound = errors.New("image not found")

// Resolved 令牌解析结果
type Resolved struct {
	StoragePath string
	FileName    string
	MimeType    string
	FileSize    int64
}

// LinkDirectory 目录表查询协作者
type LinkDirectory interface {
	GetByToken(token string) (*models.ShareLink, error)
}

// ObjectChecker 存储对象存在性检查协作者
type ObjectChecker interface {
	Exists(ctx context.Context, storagePath string) (bool, error)
}

// Resolver 分享令牌解析器。
// 解析链：目录表 → 令牌自解码 + 存储探测 → 备份缓存。
// 令牌本身携带 (所有者, 文件名)，目录表丢失时仍能恢复存储路径。
type Resolver struct {
	directory LinkDirectory
	checker   ObjectChecker
	cache     cache.Provider
}

// NewResolver 创建解析器
func NewResolver(directory LinkDirectory, checker ObjectChecker, cacheProvider cache.Provider) *Resolver {
	return &Resolver{
		directory: directory,
		checker:   checker,
		cache:     cacheProvider,
	}
}

// Resolve 将分享令牌解析为存储路径与元数据。
// 任何一级命中即返回；全部未命中或令牌无法解码时返回 ErrNotFound。
func (r *Resolver) Resolve(ctx context.Context, token string) (*Resolved, error) {
	// 1. 目录表
	link, err := r.directory.GetByToken(token)
	if err == nil {
		return &Resolved{
			StoragePath: link.StoragePath,
			FileName:    link.FileName,
			MimeType:    link.MimeType,
			FileSize:    link.FileSize,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query share link: %w", err)
	}

	// 2. 令牌自解码 + 存储探测（旧版令牌也走这条路）
	if ref, fileName, derr := sharelink.Decode(token); derr == nil {
		path := generator.JoinStoragePath(ref.PathPrefix(), fileName)
		if ok, eerr := r.checker.Exists(ctx, path); eerr == nil && ok {
			utils.LogIfDevf("[Resolver] Token %s resolved via storage probe (owner %s)",
				utils.SanitizeLogToken(token), ref)
			return &Resolved{StoragePath: path, FileName: fileName}, nil
		}
	}

	// 3. 备份缓存
	var entry worker.BackupEntry
	if cerr := r.cache.Get(ctx, cache.ShareBackup.BuildID(token), &entry); cerr == nil && entry.StoragePath != "" {
		return &Resolved{
			StoragePath: entry.StoragePath,
			FileName:    entry.FileName,
			MimeType:    entry.MimeType,
		}, nil
	}

	return nil, ErrNotFound
}
