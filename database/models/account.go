package models

import "gorm.io/gorm"

// Account 账户模型，以标识符摘要作为唯一主体
type Account struct {
	gorm.Model
	CpfHash string `gorm:"uniqueIndex;size:64;not null"`
	OwnerID string `gorm:"uniqueIndex;size:16;not null"`
}
