package cache

import (
	"fmt"
	"strings"
)

// KeyBuilder 缓存键构建器
type KeyBuilder struct {
	prefix string
	sep    string
}

// NewKeyBuilder 创建新的键构建器
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
		sep:    ":",
	}
}

// Build 构建缓存键
func (kb *KeyBuilder) Build(parts ...string) string {
	if len(parts) == 0 {
		return kb.prefix
	}
	return kb.prefix + kb.sep + strings.Join(parts, kb.sep)
}

// BuildID 构建带 ID 的缓存键
func (kb *KeyBuilder) BuildID(id interface{}) string {
	return fmt.Sprintf("%s%s%v", kb.prefix, kb.sep, id)
}

// 预定义的 KeyBuilder 实例
var (
	// ShareBackup 令牌 → (所有者, 文件名) 的备份映射，目录表未命中时兜底
	ShareBackup = NewKeyBuilder("share_backup")

	// GalleryPage 分页列表缓存
	GalleryPage = NewKeyBuilder("gallery_page")

	// GalleryVersion 分页列表版本号，写操作后递增使旧页失效
	GalleryVersion = NewKeyBuilder("gallery_version")
)
