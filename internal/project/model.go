package project

import "time"

// Status 是项目的生命周期状态
type Status int

const (
	StatusDraft     Status = 0
	StatusPublished Status = 1
	StatusExpired   Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusPublished:
		return "published"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Project 是一次问答抽奖活动，由创建它的管理者独占管理。
type Project struct {
	ID          uint   `gorm:"primarykey"`
	Name        string `gorm:"size:128;not null"`
	Description *string
	CreateTime  time.Time `gorm:"not null"`
	Deadline    time.Time `gorm:"not null"`
	Status      Status    `gorm:"not null;default:0"`
	BrowseTimes int64     `gorm:"not null;default:0"`
	CreaterID   uint      `gorm:"not null;index"`
}

// Question 是一道四选一的题目，A 为正确选项 (1~4)。
// 项目内题目的顺序即ID升序。
type Question struct {
	ID        uint   `gorm:"primarykey"`
	ProjectID uint   `gorm:"not null;index"`
	Q         string `gorm:"not null"`
	O1        string `gorm:"not null"`
	O2        string `gorm:"not null"`
	O3        string `gorm:"not null"`
	O4        string `gorm:"not null"`
	A         int    `gorm:"not null"`
}

// ConsolationLevel 是安慰奖的等级。未指定等级的奖品就是安慰奖，同一用户可以重复抽中。
const ConsolationLevel = 0

// Prize 是奖池中的一种奖品。Remain 是当前库存，0 <= Remain <= Amount。
type Prize struct {
	ID        uint   `gorm:"primarykey"`
	ProjectID uint   `gorm:"not null;index"`
	Name      string `gorm:"size:128;not null"`
	Image     *string
	Level     int `gorm:"not null;default:0"`
	Amount    int `gorm:"not null"`
	Remain    int `gorm:"not null"`
}

// IsConsolation 判断奖品是否为安慰奖
func (p *Prize) IsConsolation() bool {
	return p.Level == ConsolationLevel
}
