package model

import (
	"github.com/shopspring/decimal"
)

// AuctionFinalizedEvent 拍卖终结事件 (发送到 Kafka)
type AuctionFinalizedEvent struct {
	AuctionID   int64           `json:"auction_id"`
	ResultType  string          `json:"result_type"`
	Winner      string          `json:"winner,omitempty"`
	FinalPrice  decimal.Decimal `json:"final_price"`
	TxHash      string          `json:"tx_hash,omitempty"`
	Trigger     string          `json:"trigger"` // scheduler/on_demand/admin
	FinalizedAt int64           `json:"finalized_at"`
}

// AuctionResultEvent 结果落库事件 (发送到 Kafka)
type AuctionResultEvent struct {
	AuctionID         int64           `json:"auction_id"`
	ResultType        string          `json:"result_type"`
	WinnerWallet      string          `json:"winner_wallet,omitempty"`
	WinnerUserID      int64           `json:"winner_user_id,omitempty"`
	FinalPrice        decimal.Decimal `json:"final_price"`
	TotalParticipants int             `json:"total_participants"`
	CreatedAt         int64           `json:"created_at"`
}

// BidLogEvent 出价流水事件 (从 Kafka 消费)
type BidLogEvent struct {
	AuctionID    int64           `json:"auction_id"`
	BidderWallet string          `json:"bidder_wallet"`
	Amount       decimal.Decimal `json:"amount"`
	TxHash       string          `json:"tx_hash"`
	BlockNumber  int64           `json:"block_number"`
	BidAt        int64           `json:"bid_at"`
}
