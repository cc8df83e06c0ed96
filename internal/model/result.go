package model

import (
	"github.com/shopspring/decimal"
)

// ResultType 拍卖结果类型
type ResultType string

const (
	ResultTypeWon     ResultType = "WON"     // 有胜出者
	ResultTypeNoBids  ResultType = "NO_BIDS" // 无人出价结束
	ResultTypeStopped ResultType = "STOPPED" // 管理员终止
)

// Valid 判断结果类型是否合法
func (r ResultType) Valid() bool {
	switch r {
	case ResultTypeWon, ResultTypeNoBids, ResultTypeStopped:
		return true
	}
	return false
}

// AuctionResult 拍卖结果记录
// auction_id 唯一索引保证每个拍卖至多一条结果, 重复写入走 upsert
type AuctionResult struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AuctionID         int64           `gorm:"column:auction_id;uniqueIndex;not null" json:"auction_id"`
	ResultType        ResultType      `gorm:"column:result_type;type:varchar(16);not null" json:"result_type"`
	WinnerWallet      string          `gorm:"column:winner_wallet;type:varchar(42)" json:"winner_wallet"`
	WinnerUserID      int64           `gorm:"column:winner_user_id;type:bigint" json:"winner_user_id"`
	FinalPrice        decimal.Decimal `gorm:"column:final_price;type:decimal(36,18);not null;default:0" json:"final_price"`
	TotalParticipants int             `gorm:"column:total_participants;type:int;not null;default:0" json:"total_participants"`
	TxHash            string          `gorm:"column:tx_hash;type:varchar(66)" json:"tx_hash"`
	FinalizedAt       int64           `gorm:"column:finalized_at;type:bigint;not null" json:"finalized_at"`
	CreatedAt         int64           `gorm:"column:created_at;type:bigint;not null" json:"created_at"`
	UpdatedAt         int64           `gorm:"column:updated_at;type:bigint;not null" json:"updated_at"`
}

// TableName 返回表名
func (AuctionResult) TableName() string {
	return "auction_results"
}
