package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/RaprApraP54/rapz-auction/internal/ledger"
	"github.com/RaprApraP54/rapz-auction/internal/metrics"
	"github.com/RaprApraP54/rapz-auction/internal/model"
	"github.com/RaprApraP54/rapz-auction/internal/repository"
	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

// StopPreview 终止前的确认信息
type StopPreview struct {
	Chain        *model.AuctionSnapshot `json:"chain"`
	Deposits     []model.DepositEntry   `json:"deposits"`
	RefundTotal  decimal.Decimal        `json:"refund_total"`
	BidderCount  int                    `json:"bidder_count"`
}

// AdminService 管理员操作服务: 终止拍卖与应急资金处理
// 每次链上写操作都留下审计记录
type AdminService struct {
	gateway       ChainGateway
	auctionRepo   repository.AuctionRepository
	emergencyRepo repository.EmergencyRepository
	finalizer     *FinalizerService

	now func() time.Time
}

// NewAdminService 创建管理员操作服务
func NewAdminService(
	gateway ChainGateway,
	auctionRepo repository.AuctionRepository,
	emergencyRepo repository.EmergencyRepository,
	finalizer *FinalizerService,
) *AdminService {
	return &AdminService{
		gateway:       gateway,
		auctionRepo:   auctionRepo,
		emergencyRepo: emergencyRepo,
		finalizer:     finalizer,
		now:           time.Now,
	}
}

// PreviewStop 终止确认页数据: 链上状态 + 将被退款的托管明细
func (s *AdminService) PreviewStop(ctx context.Context, chainAuctionID int64) (*StopPreview, error) {
	snap, err := s.gateway.GetAuction(ctx, chainAuctionID)
	if err != nil {
		return nil, err
	}
	deposits, err := s.gateway.BiddersWithDeposits(ctx, chainAuctionID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, d := range deposits {
		total = total.Add(d.Amount)
	}
	return &StopPreview{
		Chain:       snap,
		Deposits:    deposits,
		RefundTotal: total,
		BidderCount: len(deposits),
	}, nil
}

// StopAuction 终止拍卖: 链上 adminStop + 索引补写 STOPPED 结果 + 审计
func (s *AdminService) StopAuction(ctx context.Context, chainAuctionID int64, operator, reason string) (string, error) {
	if !s.gateway.CanWrite() {
		return "", ErrReadOnlyGateway
	}

	auction, err := s.auctionRepo.GetByChainID(ctx, chainAuctionID, nil)
	if err != nil {
		return "", err
	}
	if auction.Status.IsTerminal() {
		return "", ledger.ErrAlreadyFinalized
	}

	// 终止前先读链上状态, 留住终止时刻的领先者
	snap, err := s.gateway.GetAuction(ctx, chainAuctionID)
	if err != nil {
		logger.Warn("read auction before stop failed",
			zap.Int64("chain_auction_id", chainAuctionID),
			zap.Error(err))
		snap = nil
	}

	started := s.now()
	txHash, err := s.gateway.AdminStop(ctx, chainAuctionID)
	if err != nil {
		metrics.RecordChainTx("stop", "failed", 0)
		return "", fmt.Errorf("admin stop auction %d: %w", chainAuctionID, err)
	}
	metrics.RecordChainTx("stop", "success", s.now().Sub(started).Seconds())

	if err := s.finalizer.settleStopped(ctx, auction, snap, txHash, TriggerAdmin); err != nil {
		// 链上已终止, 索引落库失败留给下一轮扫描补齐
		logger.Error("settle stopped auction failed",
			zap.Int64("chain_auction_id", chainAuctionID),
			zap.Error(err))
	}

	s.audit(ctx, &model.EmergencyAction{
		AuctionID:  chainAuctionID,
		ActionType: model.EmergencyActionStop,
		TxHash:     txHash,
		Operator:   operator,
		Reason:     reason,
	})

	logger.Info("auction stopped by admin",
		zap.Int64("chain_auction_id", chainAuctionID),
		zap.String("operator", operator),
		zap.String("tx_hash", txHash))
	return txHash, nil
}

// EmergencyRefundSingle 退还单个出价者的滞留托管
func (s *AdminService) EmergencyRefundSingle(ctx context.Context, chainAuctionID int64, wallet, operator, reason string) (string, error) {
	if !s.gateway.CanWrite() {
		return "", ErrReadOnlyGateway
	}

	started := s.now()
	txHash, err := s.gateway.EmergencyRefundSingle(ctx, chainAuctionID, wallet)
	if err != nil {
		metrics.RecordChainTx("refund", "failed", 0)
		return "", fmt.Errorf("emergency refund %s on auction %d: %w", wallet, chainAuctionID, err)
	}
	metrics.RecordChainTx("refund", "success", s.now().Sub(started).Seconds())

	s.audit(ctx, &model.EmergencyAction{
		AuctionID:    chainAuctionID,
		ActionType:   model.EmergencyActionRefundSingle,
		TargetWallet: wallet,
		TxHash:       txHash,
		Operator:     operator,
		Reason:       reason,
	})
	return txHash, nil
}

// EmergencyRefundAll 退还某拍卖的全部滞留托管
func (s *AdminService) EmergencyRefundAll(ctx context.Context, chainAuctionID int64, operator, reason string) (string, error) {
	if !s.gateway.CanWrite() {
		return "", ErrReadOnlyGateway
	}

	started := s.now()
	txHash, err := s.gateway.EmergencyRefundAll(ctx, chainAuctionID)
	if err != nil {
		metrics.RecordChainTx("refund", "failed", 0)
		return "", fmt.Errorf("emergency refund all on auction %d: %w", chainAuctionID, err)
	}
	metrics.RecordChainTx("refund", "success", s.now().Sub(started).Seconds())

	s.audit(ctx, &model.EmergencyAction{
		AuctionID:  chainAuctionID,
		ActionType: model.EmergencyActionRefundAll,
		TxHash:     txHash,
		Operator:   operator,
		Reason:     reason,
	})
	return txHash, nil
}

// ForceFundsToOwner 将领先者托管强制划转给 owner, 终止后补结算用
func (s *AdminService) ForceFundsToOwner(ctx context.Context, chainAuctionID int64, operator, reason string) (string, error) {
	if !s.gateway.CanWrite() {
		return "", ErrReadOnlyGateway
	}

	started := s.now()
	txHash, err := s.gateway.ForceFundsToOwner(ctx, chainAuctionID)
	if err != nil {
		metrics.RecordChainTx("force", "failed", 0)
		return "", fmt.Errorf("force funds to owner on auction %d: %w", chainAuctionID, err)
	}
	metrics.RecordChainTx("force", "success", s.now().Sub(started).Seconds())

	s.audit(ctx, &model.EmergencyAction{
		AuctionID:  chainAuctionID,
		ActionType: model.EmergencyActionForceToOwner,
		TxHash:     txHash,
		Operator:   operator,
		Reason:     reason,
	})
	return txHash, nil
}

// ListActions 查询某拍卖的应急操作审计记录
func (s *AdminService) ListActions(ctx context.Context, chainAuctionID int64, page *repository.Pagination) ([]*model.EmergencyAction, error) {
	return s.emergencyRepo.ListByAuction(ctx, chainAuctionID, page)
}

// audit 审计落库失败只记日志, 不回滚链上操作
func (s *AdminService) audit(ctx context.Context, action *model.EmergencyAction) {
	if err := s.emergencyRepo.Create(ctx, action); err != nil {
		logger.Error("write emergency audit failed",
			zap.Int64("chain_auction_id", action.AuctionID),
			zap.String("action_type", string(action.ActionType)),
			zap.Error(err))
	}
}
