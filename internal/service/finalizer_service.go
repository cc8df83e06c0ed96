package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/RaprApraP54/rapz-auction/internal/ledger"
	"github.com/RaprApraP54/rapz-auction/internal/metrics"
	"github.com/RaprApraP54/rapz-auction/internal/model"
	"github.com/RaprApraP54/rapz-auction/internal/repository"
	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

// 终结触发来源
const (
	TriggerScheduler = "scheduler"
	TriggerOnDemand  = "on_demand"
	TriggerAdmin     = "admin"
)

const zeroWallet = "0x0000000000000000000000000000000000000000"

// ErrReadOnlyGateway 网关未配置签名能力, 写操作被拒绝
var ErrReadOnlyGateway = errors.New("chain gateway is read-only")

// FinalizerConfig 终结器配置
type FinalizerConfig struct {
	BatchSize int
}

// FinalizerService 自动终结服务
// 周期扫描到期拍卖, 提交链上终结并落库结果; 同一时刻只允许一轮扫描
type FinalizerService struct {
	gateway      ChainGateway
	auctionRepo  repository.AuctionRepository
	resultRepo   repository.ResultRepository
	deliveryRepo repository.DeliveryRepository
	userRepo     repository.UserRepository

	running atomic.Bool
	cfg     *FinalizerConfig
	now     func() time.Time

	onFinalized func(*model.AuctionFinalizedEvent)
	onResult    func(*model.AuctionResultEvent)
}

// NewFinalizerService 创建自动终结服务
func NewFinalizerService(
	gateway ChainGateway,
	auctionRepo repository.AuctionRepository,
	resultRepo repository.ResultRepository,
	deliveryRepo repository.DeliveryRepository,
	userRepo repository.UserRepository,
	cfg *FinalizerConfig,
) *FinalizerService {
	if cfg == nil {
		cfg = &FinalizerConfig{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &FinalizerService{
		gateway:      gateway,
		auctionRepo:  auctionRepo,
		resultRepo:   resultRepo,
		deliveryRepo: deliveryRepo,
		userRepo:     userRepo,
		cfg:          cfg,
		now:          time.Now,
	}
}

// SetClock 注入时钟, 仅测试使用
func (s *FinalizerService) SetClock(now func() time.Time) {
	s.now = now
}

// SetOnFinalized 设置终结事件回调
func (s *FinalizerService) SetOnFinalized(fn func(*model.AuctionFinalizedEvent)) {
	s.onFinalized = fn
}

// SetOnResult 设置结果落库事件回调
func (s *FinalizerService) SetOnResult(fn func(*model.AuctionResultEvent)) {
	s.onResult = fn
}

// RunOnce 执行一轮到期扫描
// 上一轮未结束时直接跳过; 单个拍卖失败不影响其余拍卖
func (s *FinalizerService) RunOnce(ctx context.Context) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.FinalizerTicksTotal.WithLabelValues("skipped_overlap").Inc()
		logger.Debug("finalizer tick skipped, previous run still in progress")
		return 0, nil
	}
	defer s.running.Store(false)

	if !s.gateway.CanWrite() {
		// 只读降级: 不提交交易, 但链上已终态的拍卖仍要回填索引
		metrics.FinalizerTicksTotal.WithLabelValues("readonly").Inc()
		logger.Warn("finalizer running without signer, mirroring terminal states only")
	}

	due, err := s.auctionRepo.ListActive(ctx, s.cfg.BatchSize)
	if err != nil {
		metrics.FinalizerTicksTotal.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("list active auctions: %w", err)
	}
	metrics.DueAuctionsGauge.Set(float64(len(due)))
	if len(due) == 0 {
		metrics.FinalizerTicksTotal.WithLabelValues("completed").Inc()
		return 0, nil
	}

	logger.Info("finalizer tick started", zap.Int("candidates", len(due)))

	processed := 0
	for _, auction := range due {
		if ctx.Err() != nil {
			break
		}
		err := s.finalizeOne(ctx, auction, TriggerScheduler)
		switch {
		case err == nil:
			processed++
		case errors.Is(err, ledger.ErrAuctionNotEnded), errors.Is(err, ErrReadOnlyGateway):
			// 未到期或只读无法提交, 下一轮再看
		default:
			logger.Error("finalize auction failed",
				zap.Int64("chain_auction_id", auction.ChainAuctionID),
				zap.Error(err))
		}
	}

	metrics.FinalizerTicksTotal.WithLabelValues("completed").Inc()
	logger.Info("finalizer tick completed",
		zap.Int("candidates", len(due)),
		zap.Int("processed", processed))
	return processed, nil
}

// FinalizeOnDemand 按需终结单个拍卖, 详情页读到到期拍卖时触发
// 拍卖尚未到期返回 ledger.ErrAuctionNotEnded
func (s *FinalizerService) FinalizeOnDemand(ctx context.Context, chainAuctionID int64) (*model.AuctionResult, error) {
	if !s.gateway.CanWrite() {
		return nil, ErrReadOnlyGateway
	}

	auction, err := s.auctionRepo.GetByChainID(ctx, chainAuctionID, nil)
	if err != nil {
		return nil, err
	}
	if auction.Status.IsTerminal() {
		return s.resultRepo.GetByAuctionID(ctx, auction.ChainAuctionID)
	}

	if err := s.finalizeOne(ctx, auction, TriggerOnDemand); err != nil {
		return nil, err
	}
	return s.resultRepo.GetByAuctionID(ctx, chainAuctionID)
}

// finalizeOne 终结单个拍卖: 链上状态为准, 状态冲突视为良性并转为对账
func (s *FinalizerService) finalizeOne(ctx context.Context, auction *model.Auction, trigger string) error {
	started := s.now()

	snap, err := s.gateway.GetAuction(ctx, auction.ChainAuctionID)
	if err != nil {
		metrics.FinalizationErrorsTotal.WithLabelValues("chain").Inc()
		return fmt.Errorf("read auction %d: %w", auction.ChainAuctionID, err)
	}

	// 链上已是终态: 只需要补齐本地索引
	if snap.IsFinalized {
		return s.settleFromSnapshot(ctx, auction, snap, "", trigger)
	}
	if !snap.IsActive {
		// 链上被管理员终止, 本地尚未同步
		return s.settleStopped(ctx, auction, snap, "", trigger)
	}

	if !snap.HasEnded(s.now().Unix()) {
		// 本地 end_time 落后于链上, 以链上为准修正后跳过
		if snap.EndTime != auction.EndTime {
			auction.EndTime = snap.EndTime
			if uerr := s.auctionRepo.Update(ctx, auction); uerr != nil {
				return uerr
			}
		}
		return ledger.ErrAuctionNotEnded
	}

	if !s.gateway.CanWrite() {
		return ErrReadOnlyGateway
	}

	outcome, err := s.gateway.Finalize(ctx, auction.ChainAuctionID)
	if err != nil {
		if ledger.IsStateConflict(err) {
			// 其他触发方抢先终结, 重读链上状态补齐索引
			metrics.FinalizationErrorsTotal.WithLabelValues("state_conflict").Inc()
			logger.Info("finalize race detected, reconciling",
				zap.Int64("chain_auction_id", auction.ChainAuctionID),
				zap.String("reason", err.Error()))
			snap, rerr := s.gateway.GetAuction(ctx, auction.ChainAuctionID)
			if rerr != nil {
				return rerr
			}
			if snap.IsFinalized {
				return s.settleFromSnapshot(ctx, auction, snap, "", trigger)
			}
			if !snap.IsActive {
				return s.settleStopped(ctx, auction, snap, "", trigger)
			}
			return err
		}
		metrics.FinalizationErrorsTotal.WithLabelValues("chain").Inc()
		metrics.RecordChainTx("finalize", "failed", 0)
		return fmt.Errorf("finalize auction %d: %w", auction.ChainAuctionID, err)
	}

	duration := s.now().Sub(started).Seconds()
	metrics.RecordChainTx("finalize", "success", duration)

	resultType := model.ResultTypeNoBids
	if !isZeroWallet(outcome.Winner) && outcome.FinalPrice.IsPositive() {
		resultType = model.ResultTypeWon
	}

	if err := s.settle(ctx, auction, resultType, outcome.Winner, outcome.FinalPrice, s.participantCount(ctx, auction.ChainAuctionID), outcome.TxHash, trigger); err != nil {
		metrics.FinalizationErrorsTotal.WithLabelValues("store").Inc()
		return err
	}
	metrics.RecordFinalization(string(resultType), trigger, duration)
	return nil
}

// settleFromSnapshot 链上已终结但索引未同步时, 从快照推导结果落库
func (s *FinalizerService) settleFromSnapshot(ctx context.Context, auction *model.Auction, snap *model.AuctionSnapshot, txHash, trigger string) error {
	resultType := model.ResultTypeNoBids
	winner := ""
	if !isZeroWallet(snap.HighestBidder) && snap.HighestBid.IsPositive() {
		resultType = model.ResultTypeWon
		winner = snap.HighestBidder
	}
	if err := s.settle(ctx, auction, resultType, winner, snap.HighestBid, s.participantCount(ctx, auction.ChainAuctionID), txHash, trigger); err != nil {
		return err
	}
	metrics.RecordFinalization(string(resultType), trigger, 0)
	return nil
}

// settleStopped 链上已被终止, 索引记录补写 STOPPED 结果
// 终止时刻已有领先出价的, 保留领先者与站立价供售后处理
func (s *FinalizerService) settleStopped(ctx context.Context, auction *model.Auction, snap *model.AuctionSnapshot, txHash, trigger string) error {
	winner := ""
	price := decimal.Zero
	if snap != nil && !isZeroWallet(snap.HighestBidder) && snap.HighestBid.IsPositive() {
		winner = snap.HighestBidder
		price = snap.HighestBid
	}
	if err := s.settle(ctx, auction, model.ResultTypeStopped, winner, price, s.participantCount(ctx, auction.ChainAuctionID), txHash, trigger); err != nil {
		return err
	}
	metrics.RecordFinalization(string(model.ResultTypeStopped), trigger, 0)
	return nil
}

// participantCount 从链上出价榜读去重出价人数, 读失败按 0 计不阻塞落库
func (s *FinalizerService) participantCount(ctx context.Context, chainAuctionID int64) int {
	board, err := s.gateway.Leaderboard(ctx, chainAuctionID)
	if err != nil {
		logger.Warn("read leaderboard failed",
			zap.Int64("chain_auction_id", chainAuctionID),
			zap.Error(err))
		return 0
	}
	return board.TotalBidders
}

// settle 结果落库: 结果 upsert 与拍卖终态更新在同一事务内
// auction_id 冲突键保证重复触发只有一条结果
func (s *FinalizerService) settle(ctx context.Context, auction *model.Auction, resultType model.ResultType, winnerWallet string, price decimal.Decimal, participants int, txHash, trigger string) error {
	var winnerUserID int64
	if resultType == model.ResultTypeWon && winnerWallet != "" {
		user, err := s.userRepo.GetOrCreateByWallet(ctx, winnerWallet)
		if err != nil {
			return fmt.Errorf("resolve winner %s: %w", winnerWallet, err)
		}
		winnerUserID = user.ID
	}

	finalizedAt := s.now().Unix()
	status := model.AuctionStatusEnded
	if resultType == model.ResultTypeStopped {
		status = model.AuctionStatusStopped
	}

	result := &model.AuctionResult{
		AuctionID:         auction.ChainAuctionID,
		ResultType:        resultType,
		WinnerWallet:      strings.ToLower(winnerWallet),
		WinnerUserID:      winnerUserID,
		FinalPrice:        price,
		TotalParticipants: participants,
		TxHash:            txHash,
		FinalizedAt:       finalizedAt,
	}

	err := s.auctionRepo.Transaction(ctx, func(txCtx context.Context) error {
		if err := s.resultRepo.Upsert(txCtx, result); err != nil {
			return fmt.Errorf("upsert result: %w", err)
		}
		if err := s.auctionRepo.MarkFinalized(txCtx, auction.ChainAuctionID, status, txHash); err != nil {
			// 已是终态说明另一条路径先落库, 结果 upsert 已对齐
			if !errors.Is(err, repository.ErrAuctionNotFound) {
				return fmt.Errorf("mark finalized: %w", err)
			}
		}
		if resultType == model.ResultTypeWon {
			delivery := &model.Delivery{
				AuctionID:    auction.ChainAuctionID,
				WinnerUserID: winnerUserID,
				Status:       model.DeliveryStatusPending,
			}
			if err := s.deliveryRepo.CreateIfAbsent(txCtx, delivery); err != nil {
				return fmt.Errorf("create delivery: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("auction settled",
		zap.Int64("chain_auction_id", auction.ChainAuctionID),
		zap.String("result_type", string(resultType)),
		zap.String("winner", result.WinnerWallet),
		zap.String("final_price", price.String()),
		zap.String("trigger", trigger))

	if s.onFinalized != nil {
		s.onFinalized(&model.AuctionFinalizedEvent{
			AuctionID:   auction.ChainAuctionID,
			ResultType:  string(resultType),
			Winner:      result.WinnerWallet,
			FinalPrice:  price,
			TxHash:      txHash,
			Trigger:     trigger,
			FinalizedAt: finalizedAt,
		})
	}
	if s.onResult != nil {
		s.onResult(&model.AuctionResultEvent{
			AuctionID:         auction.ChainAuctionID,
			ResultType:        string(resultType),
			WinnerWallet:      result.WinnerWallet,
			WinnerUserID:      winnerUserID,
			FinalPrice:        price,
			TotalParticipants: participants,
			CreatedAt:         finalizedAt,
		})
	}
	return nil
}

func isZeroWallet(wallet string) bool {
	return wallet == "" || strings.EqualFold(wallet, zeroWallet)
}
