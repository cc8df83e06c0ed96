package model

import (
	"github.com/shopspring/decimal"
)

// AuctionStatus 拍卖状态
type AuctionStatus int8

const (
	AuctionStatusPending AuctionStatus = 0 // 待上链
	AuctionStatusActive  AuctionStatus = 1 // 进行中
	AuctionStatusEnded   AuctionStatus = 2 // 已终结
	AuctionStatusStopped AuctionStatus = 3 // 管理员终止
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionStatusPending:
		return "PENDING"
	case AuctionStatusActive:
		return "ACTIVE"
	case AuctionStatusEnded:
		return "ENDED"
	case AuctionStatusStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal 判断是否为终态
func (s AuctionStatus) IsTerminal() bool {
	return s == AuctionStatusEnded || s == AuctionStatusStopped
}

// Auction 拍卖索引记录, 链上状态的本地镜像
// ChainAuctionID 对应链上合约内的拍卖编号
type Auction struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ChainAuctionID  int64           `gorm:"column:chain_auction_id;uniqueIndex;not null" json:"chain_auction_id"`
	Title           string          `gorm:"column:title;type:varchar(200);not null" json:"title"`
	Description     string          `gorm:"column:description;type:text" json:"description"`
	ImageURL        string          `gorm:"column:image_url;type:varchar(500)" json:"image_url"`
	OwnerWallet     string          `gorm:"column:owner_wallet;type:varchar(42);index;not null" json:"owner_wallet"`
	StartingBid     decimal.Decimal `gorm:"column:starting_bid;type:decimal(36,18);not null" json:"starting_bid"`
	MinIncrement    decimal.Decimal `gorm:"column:min_increment;type:decimal(36,18);not null" json:"min_increment"`
	HighestBid      decimal.Decimal `gorm:"column:highest_bid;type:decimal(36,18);not null;default:0" json:"highest_bid"`
	HighestBidder   string          `gorm:"column:highest_bidder;type:varchar(42)" json:"highest_bidder"`
	EndTime         int64           `gorm:"column:end_time;type:bigint;index;not null" json:"end_time"`
	Status          AuctionStatus   `gorm:"column:status;type:smallint;index;not null;default:0" json:"status"`
	CreatedTxHash   string          `gorm:"column:created_tx_hash;type:varchar(66)" json:"created_tx_hash"`
	FinalizedTxHash string          `gorm:"column:finalized_tx_hash;type:varchar(66)" json:"finalized_tx_hash"`
	CreatedAt       int64           `gorm:"column:created_at;type:bigint;not null" json:"created_at"`
	UpdatedAt       int64           `gorm:"column:updated_at;type:bigint;not null" json:"updated_at"`
}

// TableName 返回表名
func (Auction) TableName() string {
	return "auctions"
}

// HasEnded 判断链上到期时间是否已过
func (a *Auction) HasEnded(nowUnix int64) bool {
	return nowUnix >= a.EndTime
}
