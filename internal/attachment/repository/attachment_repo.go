package repository

import (
	"context"
	"errors"

	"github.com/harry123180/erp-backend/internal/attachment/entity"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// AttachmentRepository 附件仓库
type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// ListByRelated 查询某对象的附件
func (r *AttachmentRepository) ListByRelated(ctx context.Context, relatedType, relatedID string) ([]entity.Attachment, error) {
	var items []entity.Attachment
	err := r.db.WithContext(ctx).
		Where("related_type = ? AND related_id = ?", relatedType, relatedID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// FindByID 根据ID查找附件
func (r *AttachmentRepository) FindByID(ctx context.Context, id string) (*entity.Attachment, error) {
	var att entity.Attachment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&att).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &att, nil
}

// Create 创建附件记录
func (r *AttachmentRepository) Create(ctx context.Context, att *entity.Attachment) error {
	return r.db.WithContext(ctx).Create(att).Error
}
