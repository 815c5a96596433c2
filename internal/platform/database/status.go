package database

import (
	"sync"

	"github.com/google/logger"
)

// statusManager 负责线程安全地管理Redis的健康状态。
type statusManager struct {
	mu             sync.RWMutex
	isRedisHealthy bool
}

var globalStatus = &statusManager{}

// IsRedisHealthy 返回当前Redis的健康状态。
func IsRedisHealthy() bool {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.isRedisHealthy
}

// UpdateRedisStatus 用于线程安全地更新健康状态，只在状态变化时打印日志。
func UpdateRedisStatus(isHealthy bool) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()

	if globalStatus.isRedisHealthy == isHealthy {
		return
	}
	globalStatus.isRedisHealthy = isHealthy
	if isHealthy {
		logger.Info("健康检查: Redis服务状态已更新为 [可用]")
	} else {
		logger.Warning("健康检查警告: Redis服务状态已更新为 [不可用]")
	}
}
