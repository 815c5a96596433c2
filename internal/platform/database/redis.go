package database

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/config"
	"github.com/google/logger"
	"github.com/redis/go-redis/v9"
)

// RDB 是一个全局的Redis客户端实例；未启用Redis时为nil
var RDB *redis.Client

// InitRedis 初始化与Redis数据库的连接
// 连接失败不会阻止启动，只会把Redis标记为不可用，由健康检查器负责恢复
func InitRedis(ctx context.Context, cfg config.RedisConfig) {
	if !cfg.Enabled {
		logger.Info("Redis未启用，频率限制将被跳过。")
		UpdateRedisStatus(false)
		return
	}

	RDB = redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := PingRedis(ctx); err != nil {
		logger.Warningf("无法连接到Redis: %v", err)
		UpdateRedisStatus(false)
		return
	}

	UpdateRedisStatus(true)
	logger.Info("Redis 连接成功！")
}

// PingRedis 以短超时检查Redis连接
func PingRedis(ctx context.Context) error {
	if RDB == nil {
		return fmt.Errorf("Redis客户端未初始化")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return RDB.Ping(ctx).Err()
}

// CloseRedis 关闭全局Redis客户端
func CloseRedis() error {
	if RDB == nil {
		return nil
	}
	return RDB.Close()
}
