package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/RaprApraP54/rapz-auction/internal/model"
)

// EmergencyRepository 应急操作审计仓储接口
type EmergencyRepository interface {
	Create(ctx context.Context, action *model.EmergencyAction) error
	ListByAuction(ctx context.Context, auctionID int64, page *Pagination) ([]*model.EmergencyAction, error)
}

// emergencyRepository 应急操作审计仓储实现
type emergencyRepository struct {
	*Repository
}

// NewEmergencyRepository 创建应急操作审计仓储
func NewEmergencyRepository(db *gorm.DB) EmergencyRepository {
	return &emergencyRepository{
		Repository: NewRepository(db),
	}
}

func (r *emergencyRepository) Create(ctx context.Context, action *model.EmergencyAction) error {
	action.CreatedAt = time.Now().UnixMilli()
	return r.DB(ctx).Create(action).Error
}

func (r *emergencyRepository) ListByAuction(ctx context.Context, auctionID int64, page *Pagination) ([]*model.EmergencyAction, error) {
	var actions []*model.EmergencyAction

	query := r.DB(ctx).Model(&model.EmergencyAction{}).Where("auction_id = ?", auctionID)

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&actions).Error
	return actions, err
}
