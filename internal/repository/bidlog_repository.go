package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RaprApraP54/rapz-auction/internal/model"
)

// BidLogRepository 出价流水仓储接口
type BidLogRepository interface {
	// InsertIgnore 按 tx_hash 去重写入, 重复消费不报错
	InsertIgnore(ctx context.Context, log *model.BidLog) error
	ListByAuction(ctx context.Context, auctionID int64, page *Pagination) ([]*model.BidLog, error)
	ListByBidder(ctx context.Context, bidderWallet string, page *Pagination) ([]*model.BidLog, error)
	CountByAuction(ctx context.Context, auctionID int64) (int64, error)
}

// bidLogRepository 出价流水仓储实现
type bidLogRepository struct {
	*Repository
}

// NewBidLogRepository 创建出价流水仓储
func NewBidLogRepository(db *gorm.DB) BidLogRepository {
	return &bidLogRepository{
		Repository: NewRepository(db),
	}
}

// InsertIgnore 消费端的幂等写入: tx_hash 冲突时丢弃
func (r *bidLogRepository) InsertIgnore(ctx context.Context, log *model.BidLog) error {
	log.CreatedAt = time.Now().UnixMilli()
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}},
		DoNothing: true,
	}).Create(log).Error
}

func (r *bidLogRepository) ListByAuction(ctx context.Context, auctionID int64, page *Pagination) ([]*model.BidLog, error) {
	var logs []*model.BidLog

	query := r.DB(ctx).Model(&model.BidLog{}).Where("auction_id = ?", auctionID)

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("bid_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&logs).Error
	return logs, err
}

func (r *bidLogRepository) ListByBidder(ctx context.Context, bidderWallet string, page *Pagination) ([]*model.BidLog, error) {
	var logs []*model.BidLog

	query := r.DB(ctx).Model(&model.BidLog{}).Where("LOWER(bidder_wallet) = LOWER(?)", bidderWallet)

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("bid_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&logs).Error
	return logs, err
}

func (r *bidLogRepository) CountByAuction(ctx context.Context, auctionID int64) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&model.BidLog{}).Where("auction_id = ?", auctionID).Count(&count).Error
	return count, err
}
