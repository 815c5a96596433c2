package project

import "github.com/SlpAus/qa-raffle-backend/pkg/isotime"

// ProjectView 是项目的基本信息
type ProjectView struct {
	ID          uint         `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	CreateTime  isotime.Time `json:"create_time"`
	Deadline    isotime.Time `json:"deadline"`
	Status      Status       `json:"status"`
	BrowseTimes int64        `json:"browse_times"`
	CreaterID   uint         `json:"creater_id"`
}

func (p *Project) View() ProjectView {
	return ProjectView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreateTime:  isotime.From(p.CreateTime),
		Deadline:    isotime.From(p.Deadline),
		Status:      p.Status,
		BrowseTimes: p.BrowseTimes,
		CreaterID:   p.CreaterID,
	}
}

// QuestionView 是题目，A 只在允许看答案时出现
type QuestionView struct {
	ID        uint   `json:"id"`
	ProjectID uint   `json:"project_id"`
	Q         string `json:"q"`
	O1        string `json:"o1"`
	O2        string `json:"o2"`
	O3        string `json:"o3"`
	O4        string `json:"o4"`
	A         *int   `json:"a,omitempty"`
}

// View 返回题目视图，withAnswer 决定是否包含正确答案
func (q *Question) View(withAnswer bool) QuestionView {
	v := QuestionView{ID: q.ID, ProjectID: q.ProjectID, Q: q.Q, O1: q.O1, O2: q.O2, O3: q.O3, O4: q.O4}
	if withAnswer {
		a := q.A
		v.A = &a
	}
	return v
}

// QuestionViews 批量转换题目
func QuestionViews(qs []Question, withAnswer bool) []QuestionView {
	views := make([]QuestionView, len(qs))
	for i := range qs {
		views[i] = qs[i].View(withAnswer)
	}
	return views
}

// PrizeView 是奖品信息
type PrizeView struct {
	ID        uint    `json:"id"`
	ProjectID uint    `json:"project_id"`
	Name      string  `json:"name"`
	Image     *string `json:"image"`
	Level     int     `json:"level"`
	Amount    int     `json:"amount"`
	Remain    int     `json:"remain"`
}

func (p *Prize) View() PrizeView {
	return PrizeView{
		ID:        p.ID,
		ProjectID: p.ProjectID,
		Name:      p.Name,
		Image:     p.Image,
		Level:     p.Level,
		Amount:    p.Amount,
		Remain:    p.Remain,
	}
}

// PrizeViews 批量转换奖品
func PrizeViews(ps []Prize) []PrizeView {
	views := make([]PrizeView, len(ps))
	for i := range ps {
		views[i] = ps[i].View()
	}
	return views
}

// Pagination 是分页参数，Page 从1开始
type Pagination struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalize 把非法的分页参数修正为默认值
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Offset 返回分页的偏移量
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Size
}

// Page 是分页结果
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}
