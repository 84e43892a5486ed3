package links

import (
	"github.com/retrato-app/retrato/database/models"
	"gorm.io/gorm"
)

// Repository 分享链接仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建新的分享链接仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 保存链接记录
func (r *Repository) Create(link *models.ShareLink) error {
	return r.db.Create(link).Error
}

// GetByToken 通过访问令牌获取链接
func (r *Repository) GetByToken(token string) (*models.ShareLink, error) {
	var link models.ShareLink
	err := r.db.Where("token = ?", token).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ListByOwner 获取所有者的链接列表，按创建时间倒序
func (r *Repository) ListByOwner(ownerID string, page, pageSize int) ([]*models.ShareLink, int64, error) {
	var items []*models.ShareLink
	var total int64

	db := r.db.Model(&models.ShareLink{}).Where("owner_id = ?", ownerID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := db.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&items).Error
	return items, total, err
}

// GetByTokensAndOwner 批量查询所有者的链接（使用 IN 语句，避免 N+1 查询）
func (r *Repository) GetByTokensAndOwner(tokens []string, ownerID string) ([]*models.ShareLink, error) {
	if len(tokens) == 0 {
		return []*models.ShareLink{}, nil
	}

	var items []*models.ShareLink
	err := r.db.Where("token IN ? AND owner_id = ?", tokens, ownerID).Find(&items).Error
	return items, err
}

// DeleteByTokensAndOwner 根据令牌和所有者批量删除链接
func (r *Repository) DeleteByTokensAndOwner(tokens []string, ownerID string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	result := r.db.Where("token IN ? AND owner_id = ?", tokens, ownerID).Delete(&models.ShareLink{})
	return result.RowsAffected, result.Error
}
