package accounts

import (
	"errors"
	"fmt"

	"github.com/retrato-app/retrato/database/models"
	"gorm.io/gorm"
)

// Repository 账户仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建新的账户仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreateByHash 通过标识符摘要获取账户，不存在则创建
// 同一摘要重复调用返回同一账户
func (r *Repository) GetOrCreateByHash(cpfHash, ownerID string) (*models.Account, error) {
	var account models.Account
	err := r.db.Where("cpf_hash = ?", cpfHash).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	account = models.Account{
		CpfHash: cpfHash,
		OwnerID: ownerID,
	}
	if err := r.db.Create(&account).Error; err != nil {
		// 并发创建时唯一索引冲突，回查一次
		var existing models.Account
		if qerr := r.db.Where("cpf_hash = ?", cpfHash).First(&existing).Error; qerr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return &account, nil
}
