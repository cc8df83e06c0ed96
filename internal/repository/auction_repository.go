package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/RaprApraP54/rapz-auction/internal/model"
)

var ErrAuctionNotFound = errors.New("auction record not found")

// AuctionRepository 拍卖索引仓储接口
type AuctionRepository interface {
	Create(ctx context.Context, auction *model.Auction) error
	GetByID(ctx context.Context, id int64) (*model.Auction, error)
	GetByChainID(ctx context.Context, chainAuctionID int64, opts *QueryOptions) (*model.Auction, error)
	Update(ctx context.Context, auction *model.Auction) error
	UpdateStatus(ctx context.Context, chainAuctionID int64, status model.AuctionStatus) error
	MarkFinalized(ctx context.Context, chainAuctionID int64, status model.AuctionStatus, txHash string) error
	SyncHighestBid(ctx context.Context, chainAuctionID int64, highestBid string, highestBidder string) error

	ListActive(ctx context.Context, limit int) ([]*model.Auction, error)
	ListByStatus(ctx context.Context, status model.AuctionStatus, page *Pagination) ([]*model.Auction, error)
	ListByOwner(ctx context.Context, ownerWallet string, page *Pagination) ([]*model.Auction, error)

	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// auctionRepository 拍卖索引仓储实现
type auctionRepository struct {
	*Repository
}

// NewAuctionRepository 创建拍卖索引仓储
func NewAuctionRepository(db *gorm.DB) AuctionRepository {
	return &auctionRepository{
		Repository: NewRepository(db),
	}
}

func (r *auctionRepository) Create(ctx context.Context, auction *model.Auction) error {
	now := time.Now().UnixMilli()
	auction.CreatedAt = now
	auction.UpdatedAt = now
	return r.DB(ctx).Create(auction).Error
}

func (r *auctionRepository) GetByID(ctx context.Context, id int64) (*model.Auction, error) {
	var auction model.Auction
	err := r.DB(ctx).Where("id = ?", id).First(&auction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAuctionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *auctionRepository) GetByChainID(ctx context.Context, chainAuctionID int64, opts *QueryOptions) (*model.Auction, error) {
	var auction model.Auction
	err := opts.ApplyLock(r.DB(ctx)).Where("chain_auction_id = ?", chainAuctionID).First(&auction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAuctionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *auctionRepository) Update(ctx context.Context, auction *model.Auction) error {
	auction.UpdatedAt = time.Now().UnixMilli()
	return r.DB(ctx).Save(auction).Error
}

func (r *auctionRepository) UpdateStatus(ctx context.Context, chainAuctionID int64, status model.AuctionStatus) error {
	result := r.DB(ctx).Model(&model.Auction{}).
		Where("chain_auction_id = ?", chainAuctionID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UnixMilli(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAuctionNotFound
	}
	return nil
}

// MarkFinalized 仅对非终态记录生效, 保证终态只写一次
func (r *auctionRepository) MarkFinalized(ctx context.Context, chainAuctionID int64, status model.AuctionStatus, txHash string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UnixMilli(),
	}
	if txHash != "" {
		updates["finalized_tx_hash"] = txHash
	}

	result := r.DB(ctx).Model(&model.Auction{}).
		Where("chain_auction_id = ? AND status NOT IN ?", chainAuctionID,
			[]model.AuctionStatus{model.AuctionStatusEnded, model.AuctionStatusStopped}).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAuctionNotFound
	}
	return nil
}

func (r *auctionRepository) SyncHighestBid(ctx context.Context, chainAuctionID int64, highestBid string, highestBidder string) error {
	result := r.DB(ctx).Model(&model.Auction{}).
		Where("chain_auction_id = ?", chainAuctionID).
		Updates(map[string]interface{}{
			"highest_bid":    highestBid,
			"highest_bidder": highestBidder,
			"updated_at":     time.Now().UnixMilli(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAuctionNotFound
	}
	return nil
}

// ListActive 查询活跃状态的拍卖, 到期判定交给链上时间
// 按 end_time 升序, batch 塞满时最先到期的也不会被挤掉
func (r *auctionRepository) ListActive(ctx context.Context, limit int) ([]*model.Auction, error) {
	var auctions []*model.Auction
	err := r.DB(ctx).
		Where("status = ?", model.AuctionStatusActive).
		Order("end_time ASC").
		Limit(limit).
		Find(&auctions).Error
	return auctions, err
}

func (r *auctionRepository) ListByStatus(ctx context.Context, status model.AuctionStatus, page *Pagination) ([]*model.Auction, error) {
	var auctions []*model.Auction

	query := r.DB(ctx).Model(&model.Auction{}).Where("status = ?", status)

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("end_time ASC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&auctions).Error
	return auctions, err
}

func (r *auctionRepository) ListByOwner(ctx context.Context, ownerWallet string, page *Pagination) ([]*model.Auction, error) {
	var auctions []*model.Auction

	query := r.DB(ctx).Model(&model.Auction{}).Where("LOWER(owner_wallet) = LOWER(?)", ownerWallet)

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&auctions).Error
	return auctions, err
}
