package models

import "gorm.io/gorm"

// ShareLink 分享链接目录记录，token 为不透明访问令牌
type ShareLink struct {
	gorm.Model
	Token       string `gorm:"uniqueIndex;size:255;not null"`
	OwnerID     string `gorm:"index;size:16;not null"`
	FileName    string `gorm:"size:255;not null"`
	StoragePath string `gorm:"size:512;not null"`
	FileSize    int64  `gorm:"not null"`
	MimeType    string `gorm:"size:100"`
	Width       int
	Height      int
}
