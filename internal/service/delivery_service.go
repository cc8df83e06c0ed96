package service

import (
	"context"
	"errors"
	"strings"

	"github.com/RaprApraP54/rapz-auction/internal/ledger"
	"github.com/RaprApraP54/rapz-auction/internal/model"
	"github.com/RaprApraP54/rapz-auction/internal/repository"
)

// ErrNotWinner 非中标钱包操作交割单
var ErrNotWinner = errors.New("wallet is not the auction winner")

// DeliveryService 中标交割服务
// 交割单在结果落库时自动创建, 这里只处理胜者确认与发货流转
type DeliveryService struct {
	deliveryRepo repository.DeliveryRepository
	resultRepo   repository.ResultRepository
	userRepo     repository.UserRepository
}

// NewDeliveryService 创建交割服务
func NewDeliveryService(
	deliveryRepo repository.DeliveryRepository,
	resultRepo repository.ResultRepository,
	userRepo repository.UserRepository,
) *DeliveryService {
	return &DeliveryService{
		deliveryRepo: deliveryRepo,
		resultRepo:   resultRepo,
		userRepo:     userRepo,
	}
}

// Get 查询交割单
func (s *DeliveryService) Get(ctx context.Context, chainAuctionID int64) (*model.Delivery, error) {
	return s.deliveryRepo.GetByAuctionID(ctx, chainAuctionID)
}

// ConfirmRecipient 胜者填写收货信息
// 只有对应拍卖的中标钱包可以确认
func (s *DeliveryService) ConfirmRecipient(ctx context.Context, chainAuctionID int64, wallet, recipient, phone, address string) error {
	if recipient == "" || address == "" {
		return ledger.ErrInvalidParameters
	}

	result, err := s.resultRepo.GetByAuctionID(ctx, chainAuctionID)
	if err != nil {
		return err
	}
	if result.ResultType != model.ResultTypeWon {
		return ledger.ErrInvalidParameters
	}
	if !strings.EqualFold(result.WinnerWallet, wallet) {
		return ErrNotWinner
	}

	return s.deliveryRepo.UpdateRecipient(ctx, chainAuctionID, recipient, phone, address)
}

// Ship 管理员标记发货
func (s *DeliveryService) Ship(ctx context.Context, chainAuctionID int64, trackingNo string) error {
	if trackingNo == "" {
		return ledger.ErrInvalidParameters
	}
	return s.deliveryRepo.UpdateStatus(ctx, chainAuctionID, model.DeliveryStatusShipped, trackingNo)
}

// Complete 标记交割完成
func (s *DeliveryService) Complete(ctx context.Context, chainAuctionID int64) error {
	return s.deliveryRepo.UpdateStatus(ctx, chainAuctionID, model.DeliveryStatusCompleted, "")
}

// ListByWinner 按中标用户分页查询交割单
func (s *DeliveryService) ListByWinner(ctx context.Context, winnerUserID int64, page *repository.Pagination) ([]*model.Delivery, error) {
	return s.deliveryRepo.ListByWinner(ctx, winnerUserID, page)
}
