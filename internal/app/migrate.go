package app

import (
	"gorm.io/gorm"

	"github.com/RaprApraP54/rapz-auction/internal/model"
	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

// AutoMigrate 自动执行数据库迁移
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Auction{},
		&model.AuctionResult{},
		&model.BidLog{},
		&model.Delivery{},
		&model.EmergencyAction{},
	); err != nil {
		return err
	}
	logger.Info("database schema migrated")
	return nil
}
