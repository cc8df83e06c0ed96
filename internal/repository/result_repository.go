package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RaprApraP54/rapz-auction/internal/model"
)

var ErrResultNotFound = errors.New("auction result not found")

// ResultRepository 拍卖结果仓储接口
type ResultRepository interface {
	// Upsert 以 auction_id 为冲突键写入结果, 重复写入覆盖旧值
	Upsert(ctx context.Context, result *model.AuctionResult) error
	GetByAuctionID(ctx context.Context, auctionID int64) (*model.AuctionResult, error)
	ListByWinner(ctx context.Context, winnerUserID int64, page *Pagination) ([]*model.AuctionResult, error)
	List(ctx context.Context, page *Pagination) ([]*model.AuctionResult, error)
}

// resultRepository 拍卖结果仓储实现
type resultRepository struct {
	*Repository
}

// NewResultRepository 创建拍卖结果仓储
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{
		Repository: NewRepository(db),
	}
}

// Upsert 结果写入的幂等入口
// ON CONFLICT (auction_id) DO UPDATE 保证每个拍卖至多一条结果
func (r *resultRepository) Upsert(ctx context.Context, result *model.AuctionResult) error {
	now := time.Now().UnixMilli()
	result.CreatedAt = now
	result.UpdatedAt = now

	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "auction_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"result_type", "winner_wallet", "winner_user_id",
			"final_price", "total_participants", "tx_hash", "finalized_at", "updated_at",
		}),
	}).Create(result).Error
}

func (r *resultRepository) GetByAuctionID(ctx context.Context, auctionID int64) (*model.AuctionResult, error) {
	var result model.AuctionResult
	err := r.DB(ctx).Where("auction_id = ?", auctionID).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepository) ListByWinner(ctx context.Context, winnerUserID int64, page *Pagination) ([]*model.AuctionResult, error) {
	var results []*model.AuctionResult

	query := r.DB(ctx).Model(&model.AuctionResult{}).Where("winner_user_id = ?", winnerUserID)

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("finalized_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&results).Error
	return results, err
}

func (r *resultRepository) List(ctx context.Context, page *Pagination) ([]*model.AuctionResult, error) {
	var results []*model.AuctionResult

	query := r.DB(ctx).Model(&model.AuctionResult{})

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("finalized_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&results).Error
	return results, err
}
