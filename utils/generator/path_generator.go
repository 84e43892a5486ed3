package generator

import (
	"fmt"
	"strings"
	"time"
)

// ObjectName 存储对象的文件名与完整路径对
type ObjectName struct {
	FileName    string // 如 1718000000000-a1b2c3d4.webp
	StoragePath string // 如 5f1a2b3c4d5e6f70/1718000000000-a1b2c3d4.webp
}

// BuildObjectName 生成对象名：{ownerID}/{unixMilli}-{randomSuffix}{ext}。
// 路径前缀只使用派生标识符，绝不包含原始证件号。
func BuildObjectName(ownerID, suffix, ext string, now time.Time) ObjectName {
	if !strings.HasPrefix(ext, ".") && ext != "" {
		ext = "." + ext
	}

	fileName := fmt.Sprintf("%d-%s%s", now.UnixMilli(), suffix, ext)
	return ObjectName{
		FileName:    fileName,
		StoragePath: ownerID + "/" + fileName,
	}
}

// JoinStoragePath 拼接所有者前缀与文件名
func JoinStoragePath(prefix, fileName string) string {
	return prefix + "/" + fileName
}
