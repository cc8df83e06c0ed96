package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// WeiToDecimal 将 wei 金额转换为 ETH 单位的 decimal
func WeiToDecimal(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}

// DecimalToWei 将 ETH 单位的 decimal 转换为 wei
func DecimalToWei(d decimal.Decimal) *big.Int {
	return d.Shift(18).BigInt()
}

// AuctionSnapshot 链上拍卖状态快照, 金额为 ETH 单位
type AuctionSnapshot struct {
	ChainAuctionID int64           `json:"chain_auction_id"`
	Owner          string          `json:"owner"`
	StartingBid    decimal.Decimal `json:"starting_bid"`
	MinIncrement   decimal.Decimal `json:"min_increment"`
	HighestBidder  string          `json:"highest_bidder"`
	HighestBid     decimal.Decimal `json:"highest_bid"`
	EndTime        int64           `json:"end_time"`
	IsActive       bool            `json:"is_active"`
	IsFinalized    bool            `json:"is_finalized"`
}

// HasEnded 判断快照是否已过到期时间
func (s *AuctionSnapshot) HasEnded(nowUnix int64) bool {
	return nowUnix >= s.EndTime
}

// HasBids 判断是否有过出价
func (s *AuctionSnapshot) HasBids() bool {
	return s.HighestBid.IsPositive()
}

// LeaderboardSnapshot 链上出价榜快照
type LeaderboardSnapshot struct {
	ChainAuctionID int64           `json:"chain_auction_id"`
	HighestBidder  string          `json:"highest_bidder"`
	HighestBid     decimal.Decimal `json:"highest_bid"`
	LowestBidder   string          `json:"lowest_bidder"`
	LowestBid      decimal.Decimal `json:"lowest_bid"`
	TotalBidders   int             `json:"total_bidders"`
}

// ActiveLock 地址的跨拍卖占用状态
type ActiveLock struct {
	HasActive      bool  `json:"has_active"`
	ChainAuctionID int64 `json:"chain_auction_id"`
	IsFinished     bool  `json:"is_finished"`
}

// DepositEntry 仍持有托管的出价者, 诊断用
type DepositEntry struct {
	Wallet string          `json:"wallet"`
	Amount decimal.Decimal `json:"amount"`
}

// FinalizeOutcome 一次链上终结调用的结果
type FinalizeOutcome struct {
	ChainAuctionID int64           `json:"chain_auction_id"`
	Winner         string          `json:"winner"`
	FinalPrice     decimal.Decimal `json:"final_price"`
	TxHash         string          `json:"tx_hash"`
	BlockNumber    int64           `json:"block_number"`
}
