package model

// DeliveryStatus 交割状态
type DeliveryStatus int8

const (
	DeliveryStatusPending   DeliveryStatus = 0 // 待填写收货信息
	DeliveryStatusConfirmed DeliveryStatus = 1 // 买家已确认
	DeliveryStatusShipped   DeliveryStatus = 2 // 已发货
	DeliveryStatusCompleted DeliveryStatus = 3 // 已完成
)

func (s DeliveryStatus) String() string {
	switch s {
	case DeliveryStatusPending:
		return "PENDING"
	case DeliveryStatusConfirmed:
		return "CONFIRMED"
	case DeliveryStatusShipped:
		return "SHIPPED"
	case DeliveryStatusCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal 判断是否为终态
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusCompleted
}

// Delivery 胜出后线下交割记录, 与结果记录一对一
type Delivery struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	AuctionID    int64          `gorm:"column:auction_id;uniqueIndex;not null" json:"auction_id"`
	WinnerUserID int64          `gorm:"column:winner_user_id;index;not null" json:"winner_user_id"`
	Recipient    string         `gorm:"column:recipient;type:varchar(100)" json:"recipient"`
	Phone        string         `gorm:"column:phone;type:varchar(32)" json:"phone"`
	Address      string         `gorm:"column:address;type:varchar(500)" json:"address"`
	TrackingNo   string         `gorm:"column:tracking_no;type:varchar(64)" json:"tracking_no"`
	Status       DeliveryStatus `gorm:"column:status;type:smallint;index;not null;default:0" json:"status"`
	CreatedAt    int64          `gorm:"column:created_at;type:bigint;not null" json:"created_at"`
	UpdatedAt    int64          `gorm:"column:updated_at;type:bigint;not null" json:"updated_at"`
}

// TableName 返回表名
func (Delivery) TableName() string {
	return "deliveries"
}
