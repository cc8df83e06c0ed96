package model

import (
	"github.com/shopspring/decimal"
)

// EmergencyActionType 应急操作类型
type EmergencyActionType string

const (
	EmergencyActionStop         EmergencyActionType = "ADMIN_STOP"
	EmergencyActionRefundSingle EmergencyActionType = "REFUND_SINGLE"
	EmergencyActionRefundAll    EmergencyActionType = "REFUND_ALL"
	EmergencyActionForceToOwner EmergencyActionType = "FORCE_TO_OWNER"
)

// EmergencyAction 应急操作审计记录
type EmergencyAction struct {
	ID           int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	AuctionID    int64               `gorm:"column:auction_id;index;not null" json:"auction_id"`
	ActionType   EmergencyActionType `gorm:"column:action_type;type:varchar(20);not null" json:"action_type"`
	TargetWallet string              `gorm:"column:target_wallet;type:varchar(42)" json:"target_wallet"`
	Amount       decimal.Decimal     `gorm:"column:amount;type:decimal(36,18);not null;default:0" json:"amount"`
	TxHash       string              `gorm:"column:tx_hash;type:varchar(66)" json:"tx_hash"`
	Operator     string              `gorm:"column:operator;type:varchar(42);not null" json:"operator"`
	Reason       string              `gorm:"column:reason;type:varchar(500)" json:"reason"`
	CreatedAt    int64               `gorm:"column:created_at;type:bigint;not null" json:"created_at"`
}

// TableName 返回表名
func (EmergencyAction) TableName() string {
	return "emergency_actions"
}
