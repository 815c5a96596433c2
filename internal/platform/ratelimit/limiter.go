package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "action_limit:"

// ErrLimited 表示当前用户在时间窗口内的请求过多
var ErrLimited = apperror.New(apperror.KindTooManyRequests, "操作过于频繁，请稍后再试")

// Limiter 用Redis有序集合实现的滑动窗口限流器。
// 每次请求占用一个成员，请求失败时通过 Reservation 撤销占用。
// Redis未配置或不健康时放行所有请求。
type Limiter struct {
	rdb     *redis.Client
	window  time.Duration
	max     int64
	healthy func() bool
}

// New 创建限流器。rdb 为 nil 时返回的限流器总是放行。
func New(rdb *redis.Client, cfg config.RateLimitConfig, healthy func() bool) *Limiter {
	return &Limiter{rdb: rdb, window: cfg.Window, max: cfg.MaxActions, healthy: healthy}
}

// Reservation 封装了一次计数增加的回滚逻辑。
type Reservation struct {
	limiter   *Limiter
	key       string
	member    string
	committed bool
}

func (l *Limiter) enabled() bool {
	if l == nil || l.rdb == nil || l.max <= 0 || l.window <= 0 {
		return false
	}
	return l.healthy == nil || l.healthy()
}

// Key 组合出某个动作在某个主体上的计数键
func Key(action, subject string) string {
	return keyPrefix + action + ":" + subject
}

// Acquire 在窗口内为 key 记录一次请求。超出上限时返回 ErrLimited，且本次请求不计数。
func (l *Limiter) Acquire(ctx context.Context, key string, now time.Time) (*Reservation, error) {
	if !l.enabled() {
		return &Reservation{committed: true}, nil
	}

	member := uuid.NewString()
	minScore := float64(now.Add(-l.window).UnixMicro())

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%f", minScore))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	pipe.Expire(ctx, key, l.window+time.Minute)
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		// 限流只是保护措施，Redis故障时放行
		logger.Warningf("限流计数失败，放行请求: %v", err)
		return &Reservation{committed: true}, nil
	}

	r := &Reservation{limiter: l, key: key, member: member}
	if countCmd.Val() > l.max {
		r.RollbackUnlessCommitted(ctx)
		return nil, ErrLimited
	}
	return r, nil
}

// Commit 标记业务已成功，阻止后续的回滚操作。
func (r *Reservation) Commit() {
	r.committed = true
}

// RollbackUnlessCommitted 如果 Commit 没有被调用，则撤销本次计数。
func (r *Reservation) RollbackUnlessCommitted(ctx context.Context) {
	if r.committed || r.limiter == nil {
		return
	}
	r.committed = true
	if err := r.limiter.rdb.ZRem(ctx, r.key, r.member).Err(); err != nil {
		logger.Warningf("限流计数补偿失败! key: %s, member: %s, 错误: %v", r.key, r.member, err)
	}
}

// Middleware 对一个动作限流，subject 从请求上下文中取出限流主体（通常是用户ID）。
// 处理器返回非2xx状态时，这次请求不计入窗口。
func (l *Limiter) Middleware(action string, subject func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := subject(c)
		if s == "" {
			c.Next()
			return
		}
		r, err := l.Acquire(c.Request.Context(), Key(action, s), time.Now())
		if err != nil {
			apperror.Respond(c, err)
			return
		}
		defer r.RollbackUnlessCommitted(context.WithoutCancel(c.Request.Context()))

		c.Next()

		if c.Writer.Status() < http.StatusBadRequest {
			r.Commit()
		}
	}
}
