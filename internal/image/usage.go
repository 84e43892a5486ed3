package image

import (
	"context"

	"github.com/retrato-app/retrato/storage"
)

// StorageUsageLister 基于存储列举的使用量统计。
// 以存储后端实际存在的对象为准，目录表与存储不一致时不会多计或漏计。
type StorageUsageLister struct {
	storage storage.Provider
}

// NewStorageUsageLister 创建使用量列举器
func NewStorageUsageLister(provider storage.Provider) *StorageUsageLister {
	return &StorageUsageLister{storage: provider}
}

// ListUsage 列举某所有者前缀下的对象数量与总字节数
func (l *StorageUsageLister) ListUsage(ctx context.Context, ownerID string) (int, int64, error) {
	objects, err := l.storage.ListWithPrefix(ctx, ownerID)
	if err != nil {
		return 0, 0, err
	}

	var total int64
	for _, obj := range objects {
		total += obj.Size
	}
	return len(objects), total, nil
}
