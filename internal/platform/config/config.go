package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/google/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cfg 是一个全局变量，用于存储所有应用程序的配置
var Cfg *Config

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Raffle    RaffleConfig    `mapstructure:"raffle"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// ServerConfig 定义了服务器相关的配置
// Verbose 为 false 时应用日志不输出到控制台
type ServerConfig struct {
	Mode    string     `mapstructure:"mode"`
	Address string     `mapstructure:"address"`
	Verbose bool       `mapstructure:"verbose"`
	Cors    CorsConfig `mapstructure:"cors"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了关系数据库的配置
// Driver 取值 sqlite / postgres / mysql，后两者使用 DSN 连接
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Sqlite          SqliteConfig  `mapstructure:"sqlite"`
	LogLevel        string        `mapstructure:"logLevel"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

// SqliteConfig 定义了SQLite文件的配置
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig 定义了Redis的配置
// Redis 只服务于答题/抽奖的频率限制，未启用时限流器直接放行
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 定义了令牌签发相关的配置
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwtSecret"`
	AccessTokenTTL  time.Duration `mapstructure:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `mapstructure:"refreshTokenTTL"`
}

// RaffleConfig 定义了抽奖事务的配置
type RaffleConfig struct {
	MaxRetries int `mapstructure:"maxRetries"`
}

// RateLimitConfig 定义了单个用户在时间窗口内允许的答题/抽奖请求数
type RateLimitConfig struct {
	Window     time.Duration `mapstructure:"window"`
	MaxActions int64         `mapstructure:"maxActions"`
}

// StorageConfig 定义了奖品图片所用的S3兼容对象存储
type StorageConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Endpoint       string `mapstructure:"endpoint"`
	PublicEndpoint string `mapstructure:"publicEndpoint"`
	AccessKey      string `mapstructure:"accessKey"`
	SecretKey      string `mapstructure:"secretKey"`
	Bucket         string `mapstructure:"bucket"`
}

// setDefaults 让配置文件成为可选项，同时让环境变量覆盖对所有键生效
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.verbose", true)
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.sqlite.path", "raffle.db")
	v.SetDefault("database.logLevel", "silent")
	v.SetDefault("database.maxOpenConns", 20)
	v.SetDefault("database.maxIdleConns", 10)
	v.SetDefault("database.connMaxLifetime", time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.accessTokenTTL", 60*time.Minute)
	v.SetDefault("auth.refreshTokenTTL", 15*24*time.Hour)

	v.SetDefault("raffle.maxRetries", 5)

	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.maxActions", 30)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicEndpoint", "")
	v.SetDefault("storage.accessKey", "")
	v.SetDefault("storage.secretKey", "")
	v.SetDefault("storage.bucket", "prizes")
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 先读取 .env，再在指定的路径中查找名为 config.yaml 的文件；文件不存在时使用默认值
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// 允许通过环境变量覆盖配置，例如 DATABASE_DRIVER=postgres
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		logger.Warning("未找到配置文件，使用默认配置")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	Cfg = &cfg
	return Cfg, nil
}
