package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/SlpAus/qa-raffle-backend/api"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/config"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/database"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/health"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/ratelimit"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/shutdown"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/storage"
	"github.com/SlpAus/qa-raffle-backend/internal/project"
	"github.com/SlpAus/qa-raffle-backend/internal/raffle"
	"github.com/SlpAus/qa-raffle-backend/internal/user"
	"github.com/SlpAus/qa-raffle-backend/pkg/lifecycle"
	"github.com/SlpAus/qa-raffle-backend/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("加载配置失败: %v", err)
	}
	defer logger.Init("qa-raffle", cfg.Server.Verbose, false, io.Discard).Close()

	if err := database.InitDB(cfg.Database); err != nil {
		logger.Fatalf("初始化数据库失败: %v", err)
	}
	for _, migrate := range []func(*gorm.DB) error{user.Migrate, project.Migrate, raffle.Migrate} {
		if err := migrate(database.DB); err != nil {
			logger.Fatalf("数据库迁移失败: %v", err)
		}
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	database.InitRedis(startupCtx, cfg.Redis)

	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		logger.Warning("未配置 auth.jwtSecret，使用随机密钥，重启后已签发的令牌全部失效")
		if secret, err = token.RandomSecret(); err != nil {
			logger.Fatalf("生成密钥失败: %v", err)
		}
	}
	issuer, err := token.NewIssuer(secret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		logger.Fatalf("初始化令牌签发器失败: %v", err)
	}

	var images storage.ImageStore
	minioStore, err := storage.NewMinioStore(cfg.Storage)
	if err != nil {
		logger.Fatalf("初始化对象存储失败: %v", err)
	}
	if minioStore != nil {
		if err := minioStore.EnsureBucket(startupCtx); err != nil {
			logger.Fatalf("初始化存储桶失败: %v", err)
		}
		images = minioStore
	}

	users := user.NewRepository(database.DB)
	userSvc := user.NewService(users, issuer)
	projectSvc := project.NewService(project.NewRepository(database.DB), images, cfg.Raffle.MaxRetries)
	raffleSvc := raffle.NewService(database.DB, projectSvc, users, cfg.Raffle.MaxRetries)

	background := lifecycle.NewManager()
	if cfg.Redis.Enabled {
		if err := background.Go("redis-health", health.RunRedisHealthCheck); err != nil {
			logger.Fatalf("启动Redis健康检查失败: %v", err)
		}
	}

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "WWW-Authenticate"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r, api.Handlers{
		Users:    user.NewHandler(userSvc),
		Projects: project.NewHandler(projectSvc),
		Raffle:   raffle.NewHandler(raffleSvc),
		Verifier: userSvc,
		Limiter:  ratelimit.New(database.RDB, cfg.RateLimit, database.IsRedisHealthy),
	})

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}
	go func() {
		logger.Infof("服务器已准备就绪，开始监听 %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("服务器异常退出: %v", err)
			os.Exit(1)
		}
	}()

	coordinator := shutdown.NewCoordinator(background,
		shutdown.Closer{Name: "Redis", Close: database.CloseRedis},
		shutdown.Closer{Name: "数据库", Close: database.CloseDB},
	)
	coordinator.ListenForSignalsAndShutdown(server)
}
