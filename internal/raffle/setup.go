package raffle

import (
	"fmt"

	"github.com/google/logger"
	"gorm.io/gorm"
)

// Migrate 负责自动迁移参与记录表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("无法迁移record表: %w", err)
	}
	logger.Info("Record数据库表迁移成功。")
	return nil
}
