package worker

import (
	"context"
	"log"
	"time"

	"github.com/retrato-app/retrato/cache"
	"github.com/retrato-app/retrato/storage"
	"github.com/retrato-app/retrato/utils"
)

// BackupEntry 备份缓存中令牌对应的解析信息
type BackupEntry struct {
	OwnerID     string `json:"owner_id"`
	FileName    string `json:"file_name"`
	StoragePath string `json:"storage_path"`
	MimeType    string `json:"mime_type"`
}

// BackupWriteTask 将令牌解析信息写入备份缓存的异步任务
type BackupWriteTask struct {
	Cache cache.Provider
	Token string
	Entry BackupEntry
	TTL   time.Duration
}

// Execute 执行任务
func (t *BackupWriteTask) Execute() {
	if t.Cache == nil || t.Token == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key := cache.ShareBackup.BuildID(t.Token)
	if err := t.Cache.Set(ctx, key, t.Entry, t.TTL); err != nil {
		utils.LogIfDevf("[BackupWriteTask] Failed to write backup entry for token %s: %v",
			utils.SanitizeLogToken(t.Token), err)
	}
}

// StorageDeleteTask 尽力而为地删除存储对象的异步任务
// 目录记录已删除时对象残留只浪费空间，不影响正确性
type StorageDeleteTask struct {
	Storage storage.Provider
	Paths   []string
}

// Execute 执行任务
func (t *StorageDeleteTask) Execute() {
	if t.Storage == nil || len(t.Paths) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, path := range t.Paths {
		if err := t.Storage.DeleteWithContext(ctx, path); err != nil {
			log.Printf("WARN: failed to delete storage object %s: %v",
				utils.SanitizeLogMessage(path), err)
		}
	}
}
