// Package service 提供业务逻辑服务
package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/RaprApraP54/rapz-auction/internal/model"
)

// ChainGateway 链网关接口
// 由 contract.Gateway (RPC 模式) 或 ledger.Gateway (本地模式) 实现
type ChainGateway interface {
	// CanWrite 是否持有签名能力, 否则网关为只读
	CanWrite() bool

	GetAuction(ctx context.Context, chainAuctionID int64) (*model.AuctionSnapshot, error)
	AuctionCount(ctx context.Context) (int64, error)
	Leaderboard(ctx context.Context, chainAuctionID int64) (*model.LeaderboardSnapshot, error)
	UserActiveAuction(ctx context.Context, wallet string) (*model.ActiveLock, error)
	BiddersWithDeposits(ctx context.Context, chainAuctionID int64) ([]model.DepositEntry, error)
	ContractBalance(ctx context.Context) (decimal.Decimal, error)

	// Finalize 提交终结交易并等待确认
	Finalize(ctx context.Context, chainAuctionID int64) (*model.FinalizeOutcome, error)
	AdminStop(ctx context.Context, chainAuctionID int64) (string, error)
	EmergencyRefundSingle(ctx context.Context, chainAuctionID int64, wallet string) (string, error)
	EmergencyRefundAll(ctx context.Context, chainAuctionID int64) (string, error)
	ForceFundsToOwner(ctx context.Context, chainAuctionID int64) (string, error)
}
