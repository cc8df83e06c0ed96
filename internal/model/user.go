package model

// UserRole 用户角色
type UserRole int8

const (
	UserRoleNormal UserRole = 0 // 普通用户
	UserRoleAdmin  UserRole = 1 // 管理员
)

// User 用户记录, 钱包地址小写存储
type User struct {
	ID            int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	WalletAddress string   `gorm:"column:wallet_address;type:varchar(42);uniqueIndex;not null" json:"wallet_address"`
	Nickname      string   `gorm:"column:nickname;type:varchar(64)" json:"nickname"`
	Role          UserRole `gorm:"column:role;type:smallint;not null;default:0" json:"role"`
	CreatedAt     int64    `gorm:"column:created_at;type:bigint;not null" json:"created_at"`
	UpdatedAt     int64    `gorm:"column:updated_at;type:bigint;not null" json:"updated_at"`
}

// TableName 返回表名
func (User) TableName() string {
	return "users"
}

// IsAdmin 判断是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
