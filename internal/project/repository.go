package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProjectNotFound  = apperror.NotFound("项目不存在")
	ErrQuestionNotFound = apperror.NotFound("题目不存在")
	ErrPrizeNotFound    = apperror.NotFound("奖品不存在")
)

// Content 是一个项目连同其题目和奖品，题目和奖品均按ID升序排列。
type Content struct {
	Project   Project
	Questions []Question
	Prizes    []Prize
}

// Composition 返回项目的组成
func (c *Content) Composition() Composition {
	return CompositionOf(len(c.Questions), len(c.Prizes))
}

// Repository 封装了项目、题目和奖品三张表的读写。
// 通过 WithTx 可以得到一个在事务中工作的副本。
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建一个项目仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx 返回一个使用给定事务的仓库
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// DB 返回仓库当前使用的连接
func (r *Repository) DB() *gorm.DB {
	return r.db
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func notFoundOr(err, notFound error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("查询%s失败: %w", what, err)
}

// GetProject 按ID查询项目
func (r *Repository) GetProject(ctx context.Context, id uint) (*Project, error) {
	var p Project
	if err := r.conn(ctx).First(&p, id).Error; err != nil {
		return nil, notFoundOr(err, ErrProjectNotFound, "项目")
	}
	return &p, nil
}

// LockProject 在事务中查询项目并加行锁（SQLite 会忽略锁子句）
func (r *Repository) LockProject(ctx context.Context, id uint) (*Project, error) {
	var p Project
	err := r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if err != nil {
		return nil, notFoundOr(err, ErrProjectNotFound, "项目")
	}
	return &p, nil
}

// Questions 返回项目的全部题目，按ID升序
func (r *Repository) Questions(ctx context.Context, projectID uint) ([]Question, error) {
	var qs []Question
	if err := r.conn(ctx).Where("project_id = ?", projectID).Order("id").Find(&qs).Error; err != nil {
		return nil, fmt.Errorf("查询题目失败: %w", err)
	}
	return qs, nil
}

// Prizes 返回项目的全部奖品，按ID升序
func (r *Repository) Prizes(ctx context.Context, projectID uint) ([]Prize, error) {
	var ps []Prize
	if err := r.conn(ctx).Where("project_id = ?", projectID).Order("id").Find(&ps).Error; err != nil {
		return nil, fmt.Errorf("查询奖品失败: %w", err)
	}
	return ps, nil
}

// LoadContent 读取项目及其题目和奖品
func (r *Repository) LoadContent(ctx context.Context, id uint) (*Content, error) {
	p, err := r.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.loadChildren(ctx, p)
}

func (r *Repository) loadChildren(ctx context.Context, p *Project) (*Content, error) {
	qs, err := r.Questions(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	ps, err := r.Prizes(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &Content{Project: *p, Questions: qs, Prizes: ps}, nil
}

// ListByOwner 分页列出某个管理者的项目，按ID倒序
func (r *Repository) ListByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]Project, int64, error) {
	var total int64
	if err := r.conn(ctx).Model(&Project{}).Where("creater_id = ?", ownerID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计项目失败: %w", err)
	}
	var ps []Project
	err := r.conn(ctx).Where("creater_id = ?", ownerID).Order("id DESC").Offset(offset).Limit(limit).Find(&ps).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询项目列表失败: %w", err)
	}
	return ps, total, nil
}

// ProjectsByIDs 批量查询项目
func (r *Repository) ProjectsByIDs(ctx context.Context, ids []uint) (map[uint]Project, error) {
	result := make(map[uint]Project, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var ps []Project
	if err := r.conn(ctx).Where("id IN ?", ids).Find(&ps).Error; err != nil {
		return nil, fmt.Errorf("批量查询项目失败: %w", err)
	}
	for _, p := range ps {
		result[p.ID] = p
	}
	return result, nil
}

// CreateProject 创建项目
func (r *Repository) CreateProject(ctx context.Context, p *Project) error {
	if err := r.conn(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("创建项目失败: %w", err)
	}
	return nil
}

// UpdateProjectFields 更新项目的名称、描述、截止时间和状态，
// 仅当数据库中的状态仍为 readStatus 时生效。返回 false 表示期间状态被并发修改。
func (r *Repository) UpdateProjectFields(ctx context.Context, p *Project, readStatus Status) (bool, error) {
	res := r.conn(ctx).Model(&Project{}).Where("id = ? AND status = ?", p.ID, readStatus).Updates(map[string]interface{}{
		"name":        p.Name,
		"description": p.Description,
		"deadline":    p.Deadline,
		"status":      p.Status,
	})
	if res.Error != nil {
		return false, fmt.Errorf("更新项目失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteProjectCascade 删除项目及其题目和奖品，参与记录作为历史保留。
// 调用方负责提供事务。
func (r *Repository) DeleteProjectCascade(ctx context.Context, id uint) error {
	db := r.conn(ctx)
	if err := db.Where("project_id = ?", id).Delete(&Question{}).Error; err != nil {
		return fmt.Errorf("删除项目题目失败: %w", err)
	}
	if err := db.Where("project_id = ?", id).Delete(&Prize{}).Error; err != nil {
		return fmt.Errorf("删除项目奖品失败: %w", err)
	}
	res := db.Delete(&Project{}, id)
	if res.Error != nil {
		return fmt.Errorf("删除项目失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// IncrementBrowse 原子地把浏览次数加一
func (r *Repository) IncrementBrowse(ctx context.Context, id uint) error {
	err := r.conn(ctx).Model(&Project{}).Where("id = ?", id).
		UpdateColumn("browse_times", gorm.Expr("browse_times + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("更新浏览次数失败: %w", err)
	}
	return nil
}

// GetQuestion 按ID查询题目
func (r *Repository) GetQuestion(ctx context.Context, id uint) (*Question, error) {
	var q Question
	if err := r.conn(ctx).First(&q, id).Error; err != nil {
		return nil, notFoundOr(err, ErrQuestionNotFound, "题目")
	}
	return &q, nil
}

// CreateQuestion 创建题目
func (r *Repository) CreateQuestion(ctx context.Context, q *Question) error {
	if err := r.conn(ctx).Create(q).Error; err != nil {
		return fmt.Errorf("创建题目失败: %w", err)
	}
	return nil
}

// SaveQuestion 保存题目的全部字段
func (r *Repository) SaveQuestion(ctx context.Context, q *Question) error {
	if err := r.conn(ctx).Save(q).Error; err != nil {
		return fmt.Errorf("更新题目失败: %w", err)
	}
	return nil
}

// DeleteQuestion 删除题目
func (r *Repository) DeleteQuestion(ctx context.Context, id uint) error {
	if err := r.conn(ctx).Delete(&Question{}, id).Error; err != nil {
		return fmt.Errorf("删除题目失败: %w", err)
	}
	return nil
}

// GetPrize 按ID查询奖品
func (r *Repository) GetPrize(ctx context.Context, id uint) (*Prize, error) {
	var p Prize
	if err := r.conn(ctx).First(&p, id).Error; err != nil {
		return nil, notFoundOr(err, ErrPrizeNotFound, "奖品")
	}
	return &p, nil
}

// CreatePrize 创建奖品
func (r *Repository) CreatePrize(ctx context.Context, p *Prize) error {
	if err := r.conn(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("创建奖品失败: %w", err)
	}
	return nil
}

// UpdatePrizeGuarded 更新奖品，仅当库存和总量仍是读取时的值才生效。
// 返回 false 表示期间有并发的抽奖或修改。
func (r *Repository) UpdatePrizeGuarded(ctx context.Context, p *Prize, readAmount, readRemain int) (bool, error) {
	res := r.conn(ctx).Model(&Prize{}).
		Where("id = ? AND amount = ? AND remain = ?", p.ID, readAmount, readRemain).
		Updates(map[string]interface{}{
			"name":   p.Name,
			"image":  p.Image,
			"level":  p.Level,
			"amount": p.Amount,
			"remain": p.Remain,
		})
	if res.Error != nil {
		return false, fmt.Errorf("更新奖品失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SetPrizeImage 更新奖品图片地址
func (r *Repository) SetPrizeImage(ctx context.Context, id uint, image string) error {
	if err := r.conn(ctx).Model(&Prize{}).Where("id = ?", id).Update("image", image).Error; err != nil {
		return fmt.Errorf("更新奖品图片失败: %w", err)
	}
	return nil
}

// DeletePrize 删除奖品
func (r *Repository) DeletePrize(ctx context.Context, id uint) error {
	if err := r.conn(ctx).Delete(&Prize{}, id).Error; err != nil {
		return fmt.Errorf("删除奖品失败: %w", err)
	}
	return nil
}

// DecrementRemain 条件地把库存减一，库存已为0时返回 false
func (r *Repository) DecrementRemain(ctx context.Context, prizeID uint) (bool, error) {
	res := r.conn(ctx).Model(&Prize{}).
		Where("id = ? AND remain > 0", prizeID).
		UpdateColumn("remain", gorm.Expr("remain - ?", 1))
	if res.Error != nil {
		return false, fmt.Errorf("扣减奖品库存失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
