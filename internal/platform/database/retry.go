package database

import (
	"context"
	"errors"
	"time"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/google/logger"
	"gorm.io/gorm"
)

const (
	initialRetryDelay = 8 * time.Millisecond
	maxRetryDelay     = 2 * time.Second
)

// ErrStaleWrite 由事务函数返回，表示乐观并发检查失败，整个事务需要重新读取后重试。
var ErrStaleWrite = errors.New("数据已被并发修改")

// ErrContention 是重试耗尽后返回给调用方的错误
var ErrContention = apperror.Conflict("并发冲突，请稍后重试")

// TransactWithRetry 在事务中执行 fn，当 fn 返回 ErrStaleWrite 或可重试的数据库错误时，
// 回滚并以指数退避重试，最多重试 maxRetries 次。其余错误原样返回。
// fn 必须只通过传入的 tx 访问数据库。
func TransactWithRetry(ctx context.Context, db *gorm.DB, maxRetries int, fn func(tx *gorm.DB) error) error {
	delay := initialRetryDelay
	for attempt := 0; ; attempt++ {
		err := db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrStaleWrite) && !IsRetryableError(err) {
			return err
		}
		if attempt >= maxRetries {
			logger.Warningf("事务在 %d 次重试后仍然冲突: %v", maxRetries, err)
			return apperror.Wrap(apperror.KindConflict, ErrContention.Message, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if delay < maxRetryDelay {
			delay *= 2
		}
	}
}
