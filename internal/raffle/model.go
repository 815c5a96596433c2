package raffle

import (
	"time"

	"gorm.io/datatypes"
)

// Record 是一个用户在一个项目中的参与记录，每个 (用户, 项目) 至多一条。
// Answer 和 RaffleResult 以JSON数组存储；Version 用于乐观并发控制。
type Record struct {
	ID               uint                      `gorm:"primarykey"`
	UserID           uint                      `gorm:"not null;uniqueIndex:idx_record_user_project"`
	ProjectID        uint                      `gorm:"not null;uniqueIndex:idx_record_user_project;index"`
	Answer           datatypes.JSONSlice[int]
	AnswerTime       *time.Time
	RaffleTimes      int                       `gorm:"not null;default:0"`
	RaffleResult     datatypes.JSONSlice[uint]
	RaffleTime       *time.Time
	PrizeClaimStatus bool                      `gorm:"not null;default:false"`
	Version          int                       `gorm:"not null;default:0"`
	CreatedAt        time.Time
}

// HasAnswer 判断用户是否已经提交过答案
func (r *Record) HasAnswer() bool {
	return r != nil && r.AnswerTime != nil
}

// DrawsUsed 返回已经抽奖的次数
func (r *Record) DrawsUsed() int {
	if r == nil {
		return 0
	}
	return len(r.RaffleResult)
}
