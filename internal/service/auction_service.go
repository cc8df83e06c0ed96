package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/RaprApraP54/rapz-auction/internal/ledger"
	"github.com/RaprApraP54/rapz-auction/internal/metrics"
	"github.com/RaprApraP54/rapz-auction/internal/model"
	"github.com/RaprApraP54/rapz-auction/internal/repository"
	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

// RegisterAuctionRequest 登记链上拍卖到本地索引
type RegisterAuctionRequest struct {
	ChainAuctionID int64  `json:"chain_auction_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	ImageURL       string `json:"image_url"`
	CreatedTxHash  string `json:"created_tx_hash"`
}

// AuctionDetail 拍卖详情: 索引记录 + 链上实时状态 + 结果 (若有)
type AuctionDetail struct {
	Auction          *model.Auction        `json:"auction"`
	Chain            *model.AuctionSnapshot `json:"chain"`
	Result           *model.AuctionResult  `json:"result,omitempty"`
	RemainingSeconds int64                 `json:"remaining_seconds"`
}

// AuctionService 拍卖查询服务
// 本地索引提供元数据与列表, 链上状态始终为权威来源
type AuctionService struct {
	gateway     ChainGateway
	auctionRepo repository.AuctionRepository
	resultRepo  repository.ResultRepository
	bidLogRepo  repository.BidLogRepository
	finalizer   *FinalizerService

	now func() time.Time
}

// NewAuctionService 创建拍卖查询服务
func NewAuctionService(
	gateway ChainGateway,
	auctionRepo repository.AuctionRepository,
	resultRepo repository.ResultRepository,
	bidLogRepo repository.BidLogRepository,
	finalizer *FinalizerService,
) *AuctionService {
	return &AuctionService{
		gateway:     gateway,
		auctionRepo: auctionRepo,
		resultRepo:  resultRepo,
		bidLogRepo:  bidLogRepo,
		finalizer:   finalizer,
		now:         time.Now,
	}
}

// SetClock 注入时钟, 仅测试使用
func (s *AuctionService) SetClock(now func() time.Time) {
	s.now = now
}

// Register 将链上创建的拍卖登记到本地索引
// 链上读不到对应拍卖时拒绝登记
func (s *AuctionService) Register(ctx context.Context, req *RegisterAuctionRequest) (*model.Auction, error) {
	if req == nil || req.ChainAuctionID <= 0 || req.Title == "" {
		return nil, ledger.ErrInvalidParameters
	}

	snap, err := s.gateway.GetAuction(ctx, req.ChainAuctionID)
	if err != nil {
		return nil, fmt.Errorf("read auction %d: %w", req.ChainAuctionID, err)
	}

	auction := &model.Auction{
		ChainAuctionID: req.ChainAuctionID,
		Title:          req.Title,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		OwnerWallet:    snap.Owner,
		StartingBid:    snap.StartingBid,
		MinIncrement:   snap.MinIncrement,
		HighestBid:     snap.HighestBid,
		HighestBidder:  snap.HighestBidder,
		EndTime:        snap.EndTime,
		Status:         model.AuctionStatusActive,
		CreatedTxHash:  req.CreatedTxHash,
	}
	if !snap.IsActive {
		auction.Status = model.AuctionStatusStopped
	}
	if snap.IsFinalized {
		auction.Status = model.AuctionStatusEnded
	}

	if err := s.auctionRepo.Create(ctx, auction); err != nil {
		return nil, err
	}
	logger.Info("auction registered",
		zap.Int64("chain_auction_id", auction.ChainAuctionID),
		zap.String("owner", auction.OwnerWallet))
	return auction, nil
}

// GetDetail 拍卖详情
// 读到已到期但未终结的拍卖时按需触发终结, 失败不阻塞读路径
func (s *AuctionService) GetDetail(ctx context.Context, chainAuctionID int64) (*AuctionDetail, error) {
	auction, err := s.auctionRepo.GetByChainID(ctx, chainAuctionID, nil)
	if err != nil {
		return nil, err
	}

	snap, err := s.gateway.GetAuction(ctx, chainAuctionID)
	if err != nil {
		return nil, fmt.Errorf("read auction %d: %w", chainAuctionID, err)
	}

	// 镜像字段以链上为准
	if !snap.HighestBid.Equal(auction.HighestBid) || snap.HighestBidder != auction.HighestBidder {
		if serr := s.auctionRepo.SyncHighestBid(ctx, chainAuctionID, snap.HighestBid.String(), snap.HighestBidder); serr != nil {
			logger.Warn("sync highest bid failed",
				zap.Int64("chain_auction_id", chainAuctionID),
				zap.Error(serr))
		} else {
			auction.HighestBid = snap.HighestBid
			auction.HighestBidder = snap.HighestBidder
		}
	}

	nowUnix := s.now().Unix()
	if !auction.Status.IsTerminal() && snap.IsActive && snap.HasEnded(nowUnix) &&
		s.finalizer != nil && s.gateway.CanWrite() {
		if _, ferr := s.finalizer.FinalizeOnDemand(ctx, chainAuctionID); ferr != nil && !ledger.IsStateConflict(ferr) {
			logger.Warn("on-demand finalize failed",
				zap.Int64("chain_auction_id", chainAuctionID),
				zap.Error(ferr))
		} else {
			// 终结成功后重读索引记录
			if refreshed, rerr := s.auctionRepo.GetByChainID(ctx, chainAuctionID, nil); rerr == nil {
				auction = refreshed
			}
			if rsnap, rerr := s.gateway.GetAuction(ctx, chainAuctionID); rerr == nil {
				snap = rsnap
			}
		}
	}

	detail := &AuctionDetail{
		Auction:          auction,
		Chain:            snap,
		RemainingSeconds: remainingSeconds(snap, nowUnix),
	}

	result, err := s.resultRepo.GetByAuctionID(ctx, chainAuctionID)
	if err != nil && !errors.Is(err, repository.ErrResultNotFound) {
		return nil, err
	}
	detail.Result = result
	return detail, nil
}

// Finalize 手动触发终结, 与详情页的按需终结走同一决策路径
// 拍卖尚未到期返回 ledger.ErrAuctionNotEnded
func (s *AuctionService) Finalize(ctx context.Context, chainAuctionID int64) (*model.AuctionResult, error) {
	if s.finalizer == nil {
		return nil, ErrReadOnlyGateway
	}
	return s.finalizer.FinalizeOnDemand(ctx, chainAuctionID)
}

// RemainingTime 拍卖剩余秒数, 已结束返回 0
func (s *AuctionService) RemainingTime(ctx context.Context, chainAuctionID int64) (int64, error) {
	snap, err := s.gateway.GetAuction(ctx, chainAuctionID)
	if err != nil {
		return 0, err
	}
	return remainingSeconds(snap, s.now().Unix()), nil
}

// Leaderboard 出价榜: 链上聚合数据 + 本地出价流水数
func (s *AuctionService) Leaderboard(ctx context.Context, chainAuctionID int64) (*model.LeaderboardSnapshot, error) {
	return s.gateway.Leaderboard(ctx, chainAuctionID)
}

// UserActiveAuction 查询钱包当前占用的拍卖
func (s *AuctionService) UserActiveAuction(ctx context.Context, wallet string) (*model.ActiveLock, error) {
	if !strings.HasPrefix(wallet, "0x") || len(wallet) != 42 {
		return nil, ledger.ErrInvalidParameters
	}
	return s.gateway.UserActiveAuction(ctx, wallet)
}

// ContractBalance 合约持有余额, 同时刷新监控指标
func (s *AuctionService) ContractBalance(ctx context.Context) (decimal.Decimal, error) {
	balance, err := s.gateway.ContractBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	f, _ := balance.Float64()
	metrics.ContractBalanceGauge.Set(f)
	return balance, nil
}

// ListByStatus 按状态分页查询拍卖
func (s *AuctionService) ListByStatus(ctx context.Context, status model.AuctionStatus, page *repository.Pagination) ([]*model.Auction, error) {
	return s.auctionRepo.ListByStatus(ctx, status, page)
}

// ListByOwner 按 owner 分页查询拍卖
func (s *AuctionService) ListByOwner(ctx context.Context, ownerWallet string, page *repository.Pagination) ([]*model.Auction, error) {
	return s.auctionRepo.ListByOwner(ctx, ownerWallet, page)
}

// GetResult 查询拍卖结果
func (s *AuctionService) GetResult(ctx context.Context, chainAuctionID int64) (*model.AuctionResult, error) {
	return s.resultRepo.GetByAuctionID(ctx, chainAuctionID)
}

// ListResults 分页查询全部结果
func (s *AuctionService) ListResults(ctx context.Context, page *repository.Pagination) ([]*model.AuctionResult, error) {
	return s.resultRepo.List(ctx, page)
}

// ListBidLogs 分页查询出价流水
func (s *AuctionService) ListBidLogs(ctx context.Context, chainAuctionID int64, page *repository.Pagination) ([]*model.BidLog, error) {
	return s.bidLogRepo.ListByAuction(ctx, chainAuctionID, page)
}

func remainingSeconds(snap *model.AuctionSnapshot, nowUnix int64) int64 {
	if !snap.IsActive || snap.HasEnded(nowUnix) {
		return 0
	}
	return snap.EndTime - nowUnix
}
