package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RaprApraP54/rapz-auction/internal/model"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository 用户仓储接口
type UserRepository interface {
	// GetOrCreateByWallet 按钱包地址查询, 不存在时创建
	GetOrCreateByWallet(ctx context.Context, wallet string) (*model.User, error)
	GetByWallet(ctx context.Context, wallet string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	UpdateNickname(ctx context.Context, id int64, nickname string) error
}

// userRepository 用户仓储实现
type userRepository struct {
	*Repository
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		Repository: NewRepository(db),
	}
}

func (r *userRepository) GetOrCreateByWallet(ctx context.Context, wallet string) (*model.User, error) {
	wallet = strings.ToLower(wallet)

	now := time.Now().UnixMilli()
	user := &model.User{
		WalletAddress: wallet,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// 地址冲突说明已存在, 丢弃插入后再查
	if err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}},
		DoNothing: true,
	}).Create(user).Error; err != nil {
		return nil, err
	}
	if user.ID != 0 {
		return user, nil
	}
	return r.GetByWallet(ctx, wallet)
}

func (r *userRepository) GetByWallet(ctx context.Context, wallet string) (*model.User, error) {
	var user model.User
	err := r.DB(ctx).Where("LOWER(wallet_address) = LOWER(?)", wallet).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.DB(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateNickname(ctx context.Context, id int64, nickname string) error {
	result := r.DB(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"nickname":   nickname,
			"updated_at": time.Now().UnixMilli(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
