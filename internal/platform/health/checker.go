package health

import (
	"time"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/database"
	"github.com/SlpAus/qa-raffle-backend/pkg/lifecycle"
	"github.com/google/logger"
)

const checkInterval = 5 * time.Second

// PerformCheck 执行一次Redis健康检查并更新全局状态。
func PerformCheck(h *lifecycle.Handle) {
	if err := database.PingRedis(h.Ctx()); err != nil {
		database.UpdateRedisStatus(false)
		return
	}
	database.UpdateRedisStatus(true)
}

// RunRedisHealthCheck 周期性地检查Redis，直到收到停机信号。
// 它应该通过 lifecycle.Manager.Go 启动。
func RunRedisHealthCheck(h *lifecycle.Handle) {
	logger.Info("Redis健康检查器已启动。")
	for {
		if err := h.Sleep(checkInterval); err != nil {
			logger.Info("Redis健康检查器已退出。")
			return
		}
		PerformCheck(h)
	}
}
