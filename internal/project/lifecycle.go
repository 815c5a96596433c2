package project

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EvaluateStatus 根据截止时间推导项目的有效状态。
// 草稿永远不会自动变化；已发布的项目到期后变为已过期，截止时间被推迟后恢复为已发布。
func EvaluateStatus(status Status, deadline, now time.Time) Status {
	switch status {
	case StatusPublished:
		if !deadline.After(now) {
			return StatusExpired
		}
	case StatusExpired:
		if deadline.After(now) {
			return StatusPublished
		}
	}
	return status
}

// Evaluate 就地更新项目状态，返回状态是否发生了变化
func (p *Project) Evaluate(now time.Time) bool {
	next := EvaluateStatus(p.Status, p.Deadline, now)
	if next == p.Status {
		return false
	}
	p.Status = next
	return true
}

// Refresh 重新推导项目状态，变化时立即写回数据库。
// 写回以旧状态为条件，不会覆盖并发的发布操作。
func Refresh(ctx context.Context, db *gorm.DB, p *Project, now time.Time) error {
	prev := p.Status
	if !p.Evaluate(now) {
		return nil
	}
	err := db.WithContext(ctx).Model(&Project{}).
		Where("id = ? AND status = ?", p.ID, prev).
		Update("status", p.Status).Error
	if err != nil {
		p.Status = prev
		return fmt.Errorf("更新项目 %d 状态失败: %w", p.ID, err)
	}
	return nil
}
