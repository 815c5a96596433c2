package project

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/database"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/storage"
	"github.com/SlpAus/qa-raffle-backend/internal/user"
	"github.com/SlpAus/qa-raffle-backend/pkg/isotime"
	"github.com/google/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotManager          = apperror.NoPermission("没有管理权限")
	ErrNotOwner            = apperror.NoPermission("不是该项目的创建者")
	ErrNotDraft            = apperror.InvalidState("只有草稿状态的项目可以发布")
	ErrAmountBelowConsumed = apperror.InvalidState("奖品总量不能少于已抽出的数量")
	ErrImageStoreDisabled  = apperror.InvalidState("未启用图片存储")
)

// ProjectInput 是创建项目的请求
type ProjectInput struct {
	Name        string       `json:"name" binding:"required,max=128"`
	Description *string      `json:"description"`
	Deadline    isotime.Time `json:"deadline" binding:"required"`
}

// ProjectPatch 是修改项目的请求，只修改出现的字段
type ProjectPatch struct {
	Name        *string       `json:"name" binding:"omitempty,min=1,max=128"`
	Description *string       `json:"description"`
	Deadline    *isotime.Time `json:"deadline"`
}

// QuestionInput 是添加题目的请求
type QuestionInput struct {
	ProjectID uint   `json:"project_id" binding:"required"`
	Q         string `json:"q" binding:"required"`
	O1        string `json:"o1" binding:"required"`
	O2        string `json:"o2" binding:"required"`
	O3        string `json:"o3" binding:"required"`
	O4        string `json:"o4" binding:"required"`
	A         int    `json:"a" binding:"required,min=1,max=4"`
}

// QuestionPatch 是修改题目的请求
type QuestionPatch struct {
	Q  *string `json:"q" binding:"omitempty,min=1"`
	O1 *string `json:"o1" binding:"omitempty,min=1"`
	O2 *string `json:"o2" binding:"omitempty,min=1"`
	O3 *string `json:"o3" binding:"omitempty,min=1"`
	O4 *string `json:"o4" binding:"omitempty,min=1"`
	A  *int    `json:"a" binding:"omitempty,min=1,max=4"`
}

// PrizeInput 是添加奖品的请求，Level 缺省为0（安慰奖）
type PrizeInput struct {
	ProjectID uint    `json:"project_id" binding:"required"`
	Name      string  `json:"name" binding:"required,max=128"`
	Image     *string `json:"image"`
	Level     *int    `json:"level" binding:"omitempty,min=0"`
	Amount    int     `json:"amount" binding:"required,min=1"`
}

// PrizePatch 是修改奖品的请求。修改 Amount 时库存按相同的差值调整。
type PrizePatch struct {
	Name   *string `json:"name" binding:"omitempty,min=1,max=128"`
	Image  *string `json:"image"`
	Level  *int    `json:"level" binding:"omitempty,min=0"`
	Amount *int    `json:"amount" binding:"omitempty,min=1"`
}

// Service 实现管理者对项目、题目和奖品的管理，所有修改都校验所有权。
type Service struct {
	repo       *Repository
	images     storage.ImageStore
	maxRetries int
	now        func() time.Time
}

// NewService 创建项目管理服务。images 为 nil 时图片上传不可用。
func NewService(repo *Repository, images storage.ImageStore, maxRetries int) *Service {
	return &Service{repo: repo, images: images, maxRetries: maxRetries, now: isotime.Now}
}

func requireManager(id user.Identity) error {
	if !id.ManagePermission {
		return ErrNotManager
	}
	return nil
}

// ownedProject 读取调用者拥有的项目并刷新其状态
func (s *Service) ownedProject(ctx context.Context, repo *Repository, id user.Identity, projectID uint) (*Project, error) {
	if err := requireManager(id); err != nil {
		return nil, err
	}
	p, err := repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.CreaterID != id.ID {
		return nil, ErrNotOwner
	}
	if err := Refresh(ctx, repo.DB(), p, s.now()); err != nil {
		return nil, err
	}
	return p, nil
}

// OwnedContent 读取调用者拥有的项目及其题目和奖品
func (s *Service) OwnedContent(ctx context.Context, id user.Identity, projectID uint) (*Content, error) {
	p, err := s.ownedProject(ctx, s.repo, id, projectID)
	if err != nil {
		return nil, err
	}
	return s.repo.loadChildren(ctx, p)
}

// CreateProject 创建一个草稿项目
func (s *Service) CreateProject(ctx context.Context, id user.Identity, in ProjectInput) (*Project, error) {
	if err := requireManager(id); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.InvalidState("项目名称不能为空")
	}
	if in.Deadline.IsZero() {
		return nil, apperror.InvalidState("必须指定截止时间")
	}
	p := &Project{
		Name:        name,
		Description: in.Description,
		CreateTime:  s.now(),
		Deadline:    in.Deadline.Time,
		Status:      StatusDraft,
		CreaterID:   id.ID,
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	logger.Infof("管理者 %d 创建了项目 %d", id.ID, p.ID)
	return p, nil
}

// UpdateProject 修改项目信息。修改截止时间后立即重新推导状态。
// 写入以读取时的状态为条件，不会覆盖并发的发布。
func (s *Service) UpdateProject(ctx context.Context, id user.Identity, projectID uint, patch ProjectPatch) (*Project, error) {
	var name string
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperror.InvalidState("项目名称不能为空")
		}
	}

	var updated *Project
	err := database.TransactWithRetry(ctx, s.repo.DB(), s.maxRetries, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		p, err := s.ownedProject(ctx, repo, id, projectID)
		if err != nil {
			return err
		}
		readStatus := p.Status
		if patch.Name != nil {
			p.Name = name
		}
		if patch.Description != nil {
			p.Description = patch.Description
		}
		if patch.Deadline != nil {
			p.Deadline = patch.Deadline.Time
		}
		p.Evaluate(s.now())
		ok, err := repo.UpdateProjectFields(ctx, p, readStatus)
		if err != nil {
			return err
		}
		if !ok {
			return database.ErrStaleWrite
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProject 删除项目及其题目和奖品
func (s *Service) DeleteProject(ctx context.Context, id user.Identity, projectID uint) error {
	return s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.ownedProject(ctx, repo, id, projectID); err != nil {
			return err
		}
		if err := repo.DeleteProjectCascade(ctx, projectID); err != nil {
			return err
		}
		logger.Infof("管理者 %d 删除了项目 %d", id.ID, projectID)
		return nil
	})
}

// Publish 把草稿项目发布。已过截止时间的项目发布后立即变为已过期。
func (s *Service) Publish(ctx context.Context, id user.Identity, projectID uint) (*Project, error) {
	p, err := s.ownedProject(ctx, s.repo, id, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusDraft {
		return nil, ErrNotDraft
	}
	p.Status = StatusPublished
	p.Evaluate(s.now())
	res := s.repo.DB().WithContext(ctx).Model(&Project{}).
		Where("id = ? AND status = ?", p.ID, StatusDraft).
		Update("status", p.Status)
	if res.Error != nil {
		return nil, fmt.Errorf("发布项目失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotDraft
	}
	return p, nil
}

// ListMine 分页列出调用者创建的项目，每个项目的状态都会被刷新
func (s *Service) ListMine(ctx context.Context, id user.Identity, page Pagination) (*Page[ProjectView], error) {
	if err := requireManager(id); err != nil {
		return nil, err
	}
	page = page.Normalize()
	ps, total, err := s.repo.ListByOwner(ctx, id.ID, page.Offset(), page.Size)
	if err != nil {
		return nil, err
	}
	now := s.now()
	items := make([]ProjectView, 0, len(ps))
	for i := range ps {
		if err := Refresh(ctx, s.repo.DB(), &ps[i], now); err != nil {
			return nil, err
		}
		items = append(items, ps[i].View())
	}
	return &Page[ProjectView]{Items: items, Total: total, Page: page.Page, Size: page.Size}, nil
}

// AddQuestion 向项目添加一道题目
func (s *Service) AddQuestion(ctx context.Context, id user.Identity, in QuestionInput) (*Question, error) {
	if _, err := s.ownedProject(ctx, s.repo, id, in.ProjectID); err != nil {
		return nil, err
	}
	if in.A < 1 || in.A > 4 {
		return nil, apperror.InvalidState("正确答案必须是1~4")
	}
	q := &Question{ProjectID: in.ProjectID, Q: in.Q, O1: in.O1, O2: in.O2, O3: in.O3, O4: in.O4, A: in.A}
	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// ownedQuestion 读取题目并校验其项目的所有权
func (s *Service) ownedQuestion(ctx context.Context, id user.Identity, questionID uint) (*Question, error) {
	if err := requireManager(id); err != nil {
		return nil, err
	}
	q, err := s.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProject(ctx, s.repo, id, q.ProjectID); err != nil {
		return nil, err
	}
	return q, nil
}

// UpdateQuestion 修改题目
func (s *Service) UpdateQuestion(ctx context.Context, id user.Identity, questionID uint, patch QuestionPatch) (*Question, error) {
	q, err := s.ownedQuestion(ctx, id, questionID)
	if err != nil {
		return nil, err
	}
	for dst, src := range map[*string]*string{&q.Q: patch.Q, &q.O1: patch.O1, &q.O2: patch.O2, &q.O3: patch.O3, &q.O4: patch.O4} {
		if src != nil {
			*dst = *src
		}
	}
	if patch.A != nil {
		if *patch.A < 1 || *patch.A > 4 {
			return nil, apperror.InvalidState("正确答案必须是1~4")
		}
		q.A = *patch.A
	}
	if err := s.repo.SaveQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// DeleteQuestion 删除题目
func (s *Service) DeleteQuestion(ctx context.Context, id user.Identity, questionID uint) error {
	if _, err := s.ownedQuestion(ctx, id, questionID); err != nil {
		return err
	}
	return s.repo.DeleteQuestion(ctx, questionID)
}

// AddPrize 向项目添加奖品，初始库存等于总量
func (s *Service) AddPrize(ctx context.Context, id user.Identity, in PrizeInput) (*Prize, error) {
	if _, err := s.ownedProject(ctx, s.repo, id, in.ProjectID); err != nil {
		return nil, err
	}
	if in.Amount < 1 {
		return nil, apperror.InvalidState("奖品数量必须大于0")
	}
	level := ConsolationLevel
	if in.Level != nil {
		if *in.Level < 0 {
			return nil, apperror.InvalidState("奖品等级不能为负数")
		}
		level = *in.Level
	}
	p := &Prize{ProjectID: in.ProjectID, Name: in.Name, Image: in.Image, Level: level, Amount: in.Amount, Remain: in.Amount}
	if err := s.repo.CreatePrize(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ownedPrize 读取奖品并校验其项目的所有权
func (s *Service) ownedPrize(ctx context.Context, repo *Repository, id user.Identity, prizeID uint) (*Prize, error) {
	if err := requireManager(id); err != nil {
		return nil, err
	}
	p, err := repo.GetPrize(ctx, prizeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProject(ctx, repo, id, p.ProjectID); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyAmount 把总量改为 amount，库存按相同差值调整；库存会变为负数时返回 ErrAmountBelowConsumed。
func (p *Prize) ApplyAmount(amount int) error {
	remain := p.Remain + (amount - p.Amount)
	if remain < 0 {
		return ErrAmountBelowConsumed
	}
	p.Amount = amount
	p.Remain = remain
	return nil
}

// UpdatePrize 修改奖品。写入以读取时的总量和库存为条件，与并发抽奖冲突时重新读取后重试。
func (s *Service) UpdatePrize(ctx context.Context, id user.Identity, prizeID uint, patch PrizePatch) (*Prize, error) {
	if patch.Level != nil && *patch.Level < 0 {
		return nil, apperror.InvalidState("奖品等级不能为负数")
	}
	var updated *Prize
	err := database.TransactWithRetry(ctx, s.repo.DB(), s.maxRetries, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		p, err := s.ownedPrize(ctx, repo, id, prizeID)
		if err != nil {
			return err
		}
		readAmount, readRemain := p.Amount, p.Remain
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Image != nil {
			p.Image = patch.Image
		}
		if patch.Level != nil {
			p.Level = *patch.Level
		}
		if patch.Amount != nil {
			if err := p.ApplyAmount(*patch.Amount); err != nil {
				return err
			}
		}
		ok, err := repo.UpdatePrizeGuarded(ctx, p, readAmount, readRemain)
		if err != nil {
			return err
		}
		if !ok {
			return database.ErrStaleWrite
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePrize 删除奖品
func (s *Service) DeletePrize(ctx context.Context, id user.Identity, prizeID uint) error {
	if _, err := s.ownedPrize(ctx, s.repo, id, prizeID); err != nil {
		return err
	}
	return s.repo.DeletePrize(ctx, prizeID)
}

// UploadPrizeImage 上传奖品图片到对象存储，并把公开地址写入奖品
func (s *Service) UploadPrizeImage(ctx context.Context, id user.Identity, prizeID uint, filename string, r io.Reader, size int64, contentType string) (*Prize, error) {
	if s.images == nil {
		return nil, ErrImageStoreDisabled
	}
	p, err := s.ownedPrize(ctx, s.repo, id, prizeID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%d/%d/%s%s", p.ProjectID, p.ID, uuid.NewString(), strings.ToLower(path.Ext(filename)))
	url, err := s.images.Put(ctx, key, r, size, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetPrizeImage(ctx, p.ID, url); err != nil {
		return nil, err
	}
	p.Image = &url
	return p, nil
}
