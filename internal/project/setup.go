package project

import (
	"fmt"

	"github.com/google/logger"
	"gorm.io/gorm"
)

// Migrate 负责自动迁移项目、题目和奖品表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Project{}, &Question{}, &Prize{}); err != nil {
		return fmt.Errorf("无法迁移project表: %w", err)
	}
	logger.Info("Project数据库表迁移成功。")
	return nil
}
