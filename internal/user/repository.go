package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/database"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound  = apperror.NotFound("用户不存在")
	ErrUsernameTaken = apperror.InvalidState("用户名已存在")
)

// Repository 封装了对用户表的读写
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建一个用户仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) first(ctx context.Context, query string, arg interface{}) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &u, nil
}

// GetByID 按ID查询用户
func (r *Repository) GetByID(ctx context.Context, id uint) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByUsername 按用户名查询用户
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.first(ctx, "username = ?", username)
}

// Create 创建用户，用户名重复时返回 ErrUsernameTaken
func (r *Repository) Create(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("创建用户失败: %w", err)
	}
	return nil
}

// Save 保存用户的全部字段
func (r *Repository) Save(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Save(u).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("更新用户失败: %w", err)
	}
	return nil
}

// Delete 删除用户
func (r *Repository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&User{}, id)
	if res.Error != nil {
		return fmt.Errorf("删除用户失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ContactsByIDs 批量查询用户，用于在名单中展示参与者信息
func (r *Repository) ContactsByIDs(ctx context.Context, ids []uint) (map[uint]User, error) {
	result := make(map[uint]User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("批量查询用户失败: %w", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}
