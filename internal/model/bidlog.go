package model

import (
	"github.com/shopspring/decimal"
)

// BidLog 出价流水, 由链上事件或 Kafka 消费写入
// tx_hash 唯一索引用于消费端幂等去重
type BidLog struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AuctionID    int64           `gorm:"column:auction_id;index;not null" json:"auction_id"`
	BidderWallet string          `gorm:"column:bidder_wallet;type:varchar(42);index;not null" json:"bidder_wallet"`
	Amount       decimal.Decimal `gorm:"column:amount;type:decimal(36,18);not null" json:"amount"`
	TxHash       string          `gorm:"column:tx_hash;type:varchar(66);uniqueIndex" json:"tx_hash"`
	BlockNumber  int64           `gorm:"column:block_number;type:bigint" json:"block_number"`
	BidAt        int64           `gorm:"column:bid_at;type:bigint;not null" json:"bid_at"`
	CreatedAt    int64           `gorm:"column:created_at;type:bigint;not null" json:"created_at"`
}

// TableName 返回表名
func (BidLog) TableName() string {
	return "bid_logs"
}
