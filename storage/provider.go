package storage

import (
	"context"
	"io"
	"strings"
)

// ObjectInfo 列举结果中的单个对象
type ObjectInfo struct {
	Key  string
	Size int64
}

// Provider 存储提供者接口 - 依赖倒置的核心抽象
// 定义了存储层的基本操作，所有存储实现必须遵循此接口
type Provider interface {
	// SaveWithContext 保存文件到存储
	SaveWithContext(ctx context.Context, storagePath string, file io.Reader, size int64) error

	// GetWithContext 从存储获取文件
	GetWithContext(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// DeleteWithContext 从存储删除文件
	DeleteWithContext(ctx context.Context, storagePath string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, storagePath string) (bool, error)

	// ListWithPrefix 列举某前缀下的全部对象（用于使用量统计）
	ListWithPrefix(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}

// IsValidStoragePath 拒绝空路径与目录穿越
func IsValidStoragePath(storagePath string) bool {
	if storagePath == "" || strings.HasPrefix(storagePath, "/") {
		return false
	}
	for _, part := range strings.Split(storagePath, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
