package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RaprApraP54/rapz-auction/internal/model"
)

var ErrDeliveryNotFound = errors.New("delivery record not found")

// DeliveryRepository 交割仓储接口
type DeliveryRepository interface {
	// CreateIfAbsent 按 auction_id 幂等创建, 已存在时不覆盖
	CreateIfAbsent(ctx context.Context, delivery *model.Delivery) error
	GetByAuctionID(ctx context.Context, auctionID int64) (*model.Delivery, error)
	UpdateRecipient(ctx context.Context, auctionID int64, recipient, phone, address string) error
	UpdateStatus(ctx context.Context, auctionID int64, status model.DeliveryStatus, trackingNo string) error
	ListByWinner(ctx context.Context, winnerUserID int64, page *Pagination) ([]*model.Delivery, error)
}

// deliveryRepository 交割仓储实现
type deliveryRepository struct {
	*Repository
}

// NewDeliveryRepository 创建交割仓储
func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepository{
		Repository: NewRepository(db),
	}
}

// CreateIfAbsent 胜出结果落库时补建交割单, 重复触发不覆盖已填写的信息
func (r *deliveryRepository) CreateIfAbsent(ctx context.Context, delivery *model.Delivery) error {
	now := time.Now().UnixMilli()
	delivery.CreatedAt = now
	delivery.UpdatedAt = now
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auction_id"}},
		DoNothing: true,
	}).Create(delivery).Error
}

func (r *deliveryRepository) GetByAuctionID(ctx context.Context, auctionID int64) (*model.Delivery, error) {
	var delivery model.Delivery
	err := r.DB(ctx).Where("auction_id = ?", auctionID).First(&delivery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeliveryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *deliveryRepository) UpdateRecipient(ctx context.Context, auctionID int64, recipient, phone, address string) error {
	result := r.DB(ctx).Model(&model.Delivery{}).
		Where("auction_id = ?", auctionID).
		Updates(map[string]interface{}{
			"recipient":  recipient,
			"phone":      phone,
			"address":    address,
			"status":     model.DeliveryStatusConfirmed,
			"updated_at": time.Now().UnixMilli(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDeliveryNotFound
	}
	return nil
}

func (r *deliveryRepository) UpdateStatus(ctx context.Context, auctionID int64, status model.DeliveryStatus, trackingNo string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UnixMilli(),
	}
	if trackingNo != "" {
		updates["tracking_no"] = trackingNo
	}

	result := r.DB(ctx).Model(&model.Delivery{}).
		Where("auction_id = ?", auctionID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDeliveryNotFound
	}
	return nil
}

func (r *deliveryRepository) ListByWinner(ctx context.Context, winnerUserID int64, page *Pagination) ([]*model.Delivery, error) {
	var deliveries []*model.Delivery

	query := r.DB(ctx).Model(&model.Delivery{}).Where("winner_user_id = ?", winnerUserID)

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&deliveries).Error
	return deliveries, err
}
