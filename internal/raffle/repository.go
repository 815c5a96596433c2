package raffle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrRecordNotFound = apperror.NotFound("记录不存在")

// Repository 封装参与记录表的读写
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建记录仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx 返回一个使用给定事务的仓库
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *Repository) find(db *gorm.DB, userID, projectID uint) (*Record, error) {
	var rec Record
	err := db.Where("user_id = ? AND project_id = ?", userID, projectID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询参与记录失败: %w", err)
	}
	return &rec, nil
}

// Find 查询用户在项目中的记录，不存在时返回 nil, nil
func (r *Repository) Find(ctx context.Context, userID, projectID uint) (*Record, error) {
	return r.find(r.conn(ctx), userID, projectID)
}

// Lock 与 Find 相同，但在支持的数据库上加行锁
func (r *Repository) Lock(ctx context.Context, userID, projectID uint) (*Record, error) {
	return r.find(r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID, projectID)
}

// Get 按ID查询记录
func (r *Repository) Get(ctx context.Context, id uint) (*Record, error) {
	var rec Record
	if err := r.conn(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("查询记录失败: %w", err)
	}
	return &rec, nil
}

// Create 插入新记录。(用户, 项目) 重复时返回的错误可用 database.IsDuplicateKeyError 判断。
func (r *Repository) Create(ctx context.Context, rec *Record) error {
	return r.conn(ctx).Create(rec).Error
}

// guardedUpdate 仅当版本号未变时更新，并把版本号加一
func (r *Repository) guardedUpdate(ctx context.Context, rec *Record, fields map[string]interface{}) (bool, error) {
	fields["version"] = gorm.Expr("version + ?", 1)
	res := r.conn(ctx).Model(&Record{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(fields)
	if res.Error != nil {
		return false, fmt.Errorf("更新参与记录失败: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return false, nil
	}
	rec.Version++
	return true, nil
}

// SaveAnswer 为尚未答题的记录写入答案和抽奖次数
func (r *Repository) SaveAnswer(ctx context.Context, rec *Record, answer []int, at time.Time, raffleTimes int) (bool, error) {
	ok, err := r.guardedUpdate(ctx, rec, map[string]interface{}{
		"answer":       datatypes.NewJSONSlice(answer),
		"answer_time":  at,
		"raffle_times": raffleTimes,
	})
	if ok {
		rec.Answer = answer
		rec.AnswerTime = &at
		rec.RaffleTimes = raffleTimes
	}
	return ok, err
}

// AppendResult 追加一次抽奖结果
func (r *Repository) AppendResult(ctx context.Context, rec *Record, prizeID uint, at time.Time) (bool, error) {
	result := make([]uint, 0, len(rec.RaffleResult)+1)
	result = append(append(result, rec.RaffleResult...), prizeID)
	ok, err := r.guardedUpdate(ctx, rec, map[string]interface{}{
		"raffle_result": datatypes.NewJSONSlice(result),
		"raffle_time":   at,
	})
	if ok {
		rec.RaffleResult = result
		rec.RaffleTime = &at
	}
	return ok, err
}

// SetClaimStatus 设置奖品领取状态
func (r *Repository) SetClaimStatus(ctx context.Context, rec *Record, claimed bool) (bool, error) {
	ok, err := r.guardedUpdate(ctx, rec, map[string]interface{}{"prize_claim_status": claimed})
	if ok {
		rec.PrizeClaimStatus = claimed
	}
	return ok, err
}

// ByProject 返回项目的全部记录，按ID升序
func (r *Repository) ByProject(ctx context.Context, projectID uint) ([]Record, error) {
	var recs []Record
	if err := r.conn(ctx).Where("project_id = ?", projectID).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("查询项目记录失败: %w", err)
	}
	return recs, nil
}

// ListByUser 分页列出用户的记录，按ID倒序
func (r *Repository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]Record, int64, error) {
	var total int64
	if err := r.conn(ctx).Model(&Record{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计记录失败: %w", err)
	}
	var recs []Record
	err := r.conn(ctx).Where("user_id = ?", userID).Order("id DESC").Offset(offset).Limit(limit).Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询记录列表失败: %w", err)
	}
	return recs, total, nil
}
