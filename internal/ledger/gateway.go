package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/RaprApraP54/rapz-auction/internal/model"
)

// Gateway 以进程内账本实现链网关, 用于本地模式与测试
// 交易哈希为合成值, 与链上模式保持相同的调用面
type Gateway struct {
	ledger *Ledger
	caller common.Address
	seq    atomic.Int64
}

// NewGateway 创建本地网关, caller 作为所有写操作的签名者身份
func NewGateway(l *Ledger, caller common.Address) *Gateway {
	return &Gateway{ledger: l, caller: caller}
}

// Ledger 返回底层账本, 测试用
func (g *Gateway) Ledger() *Ledger {
	return g.ledger
}

// CanWrite 本地网关始终可写
func (g *Gateway) CanWrite() bool {
	return true
}

// GetAuction 读取拍卖快照
func (g *Gateway) GetAuction(_ context.Context, chainAuctionID int64) (*model.AuctionSnapshot, error) {
	a, err := g.ledger.GetAuction(uint64(chainAuctionID))
	if err != nil {
		return nil, err
	}
	return &model.AuctionSnapshot{
		ChainAuctionID: chainAuctionID,
		Owner:          strings.ToLower(a.Owner.Hex()),
		StartingBid:    model.WeiToDecimal(a.StartingBid),
		MinIncrement:   model.WeiToDecimal(a.MinIncrement),
		HighestBidder:  strings.ToLower(a.HighestBidder.Hex()),
		HighestBid:     model.WeiToDecimal(a.HighestBid),
		EndTime:        a.EndTime,
		IsActive:       a.Active,
		IsFinalized:    a.Finalized,
	}, nil
}

// AuctionCount 已创建的拍卖总数
func (g *Gateway) AuctionCount(_ context.Context) (int64, error) {
	return int64(g.ledger.AuctionCount()), nil
}

// Leaderboard 读取出价榜
func (g *Gateway) Leaderboard(_ context.Context, chainAuctionID int64) (*model.LeaderboardSnapshot, error) {
	view, err := g.ledger.Leaderboard(uint64(chainAuctionID))
	if err != nil {
		return nil, err
	}
	return &model.LeaderboardSnapshot{
		ChainAuctionID: chainAuctionID,
		HighestBidder:  strings.ToLower(view.HighestBidder.Hex()),
		HighestBid:     model.WeiToDecimal(view.HighestBid),
		LowestBidder:   strings.ToLower(view.LowestBidder.Hex()),
		LowestBid:      model.WeiToDecimal(view.LowestBid),
		TotalBidders:   view.TotalBidders,
	}, nil
}

// UserActiveAuction 查询钱包当前占用的拍卖
func (g *Gateway) UserActiveAuction(_ context.Context, wallet string) (*model.ActiveLock, error) {
	has, id, finished := g.ledger.UserActiveAuction(common.HexToAddress(wallet))
	return &model.ActiveLock{
		HasActive:      has,
		ChainAuctionID: int64(id),
		IsFinished:     finished,
	}, nil
}

// BiddersWithDeposits 查询仍持有托管的出价者
func (g *Gateway) BiddersWithDeposits(_ context.Context, chainAuctionID int64) ([]model.DepositEntry, error) {
	deposits, err := g.ledger.BiddersWithDeposits(uint64(chainAuctionID))
	if err != nil {
		return nil, err
	}
	entries := make([]model.DepositEntry, 0, len(deposits))
	for addr, amount := range deposits {
		entries = append(entries, model.DepositEntry{
			Wallet: strings.ToLower(addr.Hex()),
			Amount: model.WeiToDecimal(amount),
		})
	}
	return entries, nil
}

// ContractBalance 账本持有的总余额
func (g *Gateway) ContractBalance(_ context.Context) (decimal.Decimal, error) {
	return model.WeiToDecimal(g.ledger.Balance()), nil
}

// Finalize 终结拍卖
func (g *Gateway) Finalize(_ context.Context, chainAuctionID int64) (*model.FinalizeOutcome, error) {
	winner, amount, err := g.ledger.Finalize(g.caller, uint64(chainAuctionID))
	if err != nil {
		return nil, err
	}
	outcome := &model.FinalizeOutcome{
		ChainAuctionID: chainAuctionID,
		FinalPrice:     model.WeiToDecimal(amount),
		TxHash:         g.syntheticTxHash("finalize", chainAuctionID),
	}
	if winner != (common.Address{}) {
		outcome.Winner = strings.ToLower(winner.Hex())
	}
	return outcome, nil
}

// AdminStop 终止拍卖
func (g *Gateway) AdminStop(_ context.Context, chainAuctionID int64) (string, error) {
	if err := g.ledger.AdminStop(g.caller, uint64(chainAuctionID)); err != nil {
		return "", err
	}
	return g.syntheticTxHash("stop", chainAuctionID), nil
}

// EmergencyRefundSingle 退还单个出价者的滞留托管
func (g *Gateway) EmergencyRefundSingle(_ context.Context, chainAuctionID int64, wallet string) (string, error) {
	if _, err := g.ledger.EmergencyRefundSingle(g.caller, uint64(chainAuctionID), common.HexToAddress(wallet)); err != nil {
		return "", err
	}
	return g.syntheticTxHash("refund_single", chainAuctionID), nil
}

// EmergencyRefundAll 退还某拍卖的全部滞留托管
func (g *Gateway) EmergencyRefundAll(_ context.Context, chainAuctionID int64) (string, error) {
	if _, err := g.ledger.EmergencyRefundAll(g.caller, uint64(chainAuctionID)); err != nil {
		return "", err
	}
	return g.syntheticTxHash("refund_all", chainAuctionID), nil
}

// ForceFundsToOwner 强制划转领先者托管给 owner
func (g *Gateway) ForceFundsToOwner(_ context.Context, chainAuctionID int64) (string, error) {
	if _, err := g.ledger.ForceTransferToOwner(g.caller, uint64(chainAuctionID)); err != nil {
		return "", err
	}
	return g.syntheticTxHash("force_to_owner", chainAuctionID), nil
}

func (g *Gateway) syntheticTxHash(op string, chainAuctionID int64) string {
	seed := fmt.Sprintf("local:%s:%d:%d:%d", op, chainAuctionID, g.seq.Add(1), time.Now().UnixNano())
	return crypto.Keccak256Hash([]byte(seed)).Hex()
}
