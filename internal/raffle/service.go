package raffle

import (
	"context"
	"time"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/database"
	"github.com/SlpAus/qa-raffle-backend/internal/project"
	"github.com/SlpAus/qa-raffle-backend/internal/user"
	"github.com/SlpAus/qa-raffle-backend/pkg/isotime"
	"github.com/google/logger"
	"gorm.io/gorm"
)

var (
	ErrNotPublished   = apperror.NoPermission("项目未发布")
	ErrProjectExpired = apperror.InvalidState("项目已过期")
	ErrNothingToClaim = apperror.InvalidState("该记录没有抽奖结果")
)

// AnswerInput 是提交答案的请求
type AnswerInput struct {
	ProjectID uint  `json:"project_id" binding:"required"`
	Answer    []int `json:"answer" binding:"required,dive,min=1,max=4"`
}

// DrawInput 是抽奖请求
type DrawInput struct {
	ProjectID uint `json:"project_id" binding:"required"`
}

// ClaimInput 是确认领奖的请求
type ClaimInput struct {
	PrizeClaimStatus *bool `json:"prize_claim_status" binding:"required"`
}

// DrawResult 是一次抽奖的结果，View 是抽奖后的参与者视图
type DrawResult struct {
	Prize project.PrizeView `json:"prize"`
	View  *ParticipantView  `json:"project"`
}

// OwnedContentLoader 读取调用者拥有的项目内容，由 project.Service 实现
type OwnedContentLoader interface {
	OwnedContent(ctx context.Context, id user.Identity, projectID uint) (*project.Content, error)
}

// ContactLoader 批量查询用户联系方式，由 user.Repository 实现
type ContactLoader interface {
	ContactsByIDs(ctx context.Context, ids []uint) (map[uint]user.User, error)
}

// Service 实现参与者的答题、抽奖和管理者对参与记录的查看。
type Service struct {
	db         *gorm.DB
	projects   *project.Repository
	records    *Repository
	owned      OwnedContentLoader
	contacts   ContactLoader
	maxRetries int
	pick       Picker
	now        func() time.Time
	locks      keyLock
}

// NewService 创建答题抽奖服务
func NewService(db *gorm.DB, owned OwnedContentLoader, contacts ContactLoader, maxRetries int) *Service {
	return &Service{
		db:         db,
		projects:   project.NewRepository(db),
		records:    NewRepository(db),
		owned:      owned,
		contacts:   contacts,
		maxRetries: maxRetries,
		pick:       RandomPicker,
		now:        isotime.Now,
	}
}

// openContent 读取项目内容并刷新状态，草稿项目对参与者不可见
func (s *Service) openContent(ctx context.Context, projects *project.Repository, projectID uint) (*project.Content, error) {
	content, err := projects.LoadContent(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := project.Refresh(ctx, projects.DB(), &content.Project, s.now()); err != nil {
		return nil, err
	}
	if content.Project.Status == project.StatusDraft {
		return nil, ErrNotPublished
	}
	return content, nil
}

// activeContent 在 openContent 的基础上要求项目未过期
func (s *Service) activeContent(ctx context.Context, projects *project.Repository, projectID uint) (*project.Content, error) {
	content, err := s.openContent(ctx, projects, projectID)
	if err != nil {
		return nil, err
	}
	if content.Project.Status == project.StatusExpired {
		return nil, ErrProjectExpired
	}
	return content, nil
}

// persistStatus 在事务外把到期状态写入数据库，
// 使后续事务因过期回滚时状态变化不会一起丢失。
func (s *Service) persistStatus(ctx context.Context, projectID uint) error {
	p, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	return project.Refresh(ctx, s.projects.DB(), p, s.now())
}

// ViewProject 返回参与者视图，每次调用浏览次数加一
func (s *Service) ViewProject(ctx context.Context, id user.Identity, projectID uint) (*ParticipantView, error) {
	content, err := s.openContent(ctx, s.projects, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.IncrementBrowse(ctx, projectID); err != nil {
		return nil, err
	}
	content.Project.BrowseTimes++

	rec, err := s.records.Find(ctx, id.ID, projectID)
	if err != nil {
		return nil, err
	}
	return BuildParticipantView(content, rec), nil
}

// Answer 提交答案。每个用户在每个项目只评分一次，重复提交直接返回已保存的结果。
func (s *Service) Answer(ctx context.Context, id user.Identity, in AnswerInput) (*ParticipantView, error) {
	if err := s.persistStatus(ctx, in.ProjectID); err != nil {
		return nil, err
	}
	var view *ParticipantView
	err := database.TransactWithRetry(ctx, s.db, s.maxRetries, func(tx *gorm.DB) error {
		projects, records := s.projects.WithTx(tx), s.records.WithTx(tx)
		content, err := s.activeContent(ctx, projects, in.ProjectID)
		if err != nil {
			return err
		}
		rec, err := records.Lock(ctx, id.ID, in.ProjectID)
		if err != nil {
			return err
		}
		if rec.HasAnswer() {
			view = BuildParticipantView(content, rec)
			return nil
		}

		score, err := Grade(content.Questions, in.Answer)
		if err != nil {
			return err
		}
		now := s.now()
		if rec == nil {
			rec = &Record{
				UserID:      id.ID,
				ProjectID:   in.ProjectID,
				Answer:      in.Answer,
				AnswerTime:  &now,
				RaffleTimes: score.Allowance(),
			}
			if err := records.Create(ctx, rec); err != nil {
				if database.IsDuplicateKeyError(err) {
					return database.ErrStaleWrite
				}
				return err
			}
		} else {
			// 先抽奖后加题的项目会出现没有答案的记录，次数不低于已抽次数
			ok, err := records.SaveAnswer(ctx, rec, in.Answer, now, max(score.Allowance(), rec.DrawsUsed()))
			if err != nil {
				return err
			}
			if !ok {
				return database.ErrStaleWrite
			}
		}
		logger.Infof("用户 %d 在项目 %d 答对 %d/%d，获得 %d 次抽奖", id.ID, in.ProjectID, score.Correct, score.Total, rec.RaffleTimes)
		view = BuildParticipantView(content, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Draw 抽奖一次。扣减库存和追加结果在同一个事务中完成，
// 条件更新失败时整个事务重新读取后重试。
func (s *Service) Draw(ctx context.Context, id user.Identity, in DrawInput) (*DrawResult, error) {
	if err := s.persistStatus(ctx, in.ProjectID); err != nil {
		return nil, err
	}
	mu := s.locks.get(id.ID, in.ProjectID)
	mu.Lock()
	defer mu.Unlock()

	var result *DrawResult
	err := database.TransactWithRetry(ctx, s.db, s.maxRetries, func(tx *gorm.DB) error {
		projects, records := s.projects.WithTx(tx), s.records.WithTx(tx)
		content, err := s.activeContent(ctx, projects, in.ProjectID)
		if err != nil {
			return err
		}
		comp := content.Composition()
		if !comp.HasPrizes() {
			return ErrNoPrizes
		}
		rec, err := records.Lock(ctx, id.ID, in.ProjectID)
		if err != nil {
			return err
		}
		allowance, err := Allowance(comp, rec)
		if err != nil {
			return err
		}
		if rec.DrawsUsed() >= allowance {
			return ErrExhausted
		}

		won, err := Pick(BuildPool(content.Prizes, rec.resultOrNil()), s.pick)
		if err != nil {
			return err
		}
		ok, err := projects.DecrementRemain(ctx, won.ID)
		if err != nil {
			return err
		}
		if !ok {
			return database.ErrStaleWrite
		}

		now := s.now()
		if rec == nil {
			rec = &Record{
				UserID:       id.ID,
				ProjectID:    in.ProjectID,
				RaffleTimes:  1,
				RaffleResult: []uint{won.ID},
				RaffleTime:   &now,
			}
			if err := records.Create(ctx, rec); err != nil {
				if database.IsDuplicateKeyError(err) {
					return database.ErrStaleWrite
				}
				return err
			}
		} else {
			ok, err := records.AppendResult(ctx, rec, won.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				return database.ErrStaleWrite
			}
		}

		for i := range content.Prizes {
			if content.Prizes[i].ID == won.ID {
				content.Prizes[i].Remain--
			}
		}
		prize := *won
		prize.Remain--
		logger.Infof("用户 %d 在项目 %d 抽中奖品 %d (%s)", id.ID, in.ProjectID, prize.ID, prize.Name)
		result = &DrawResult{Prize: prize.View(), View: BuildParticipantView(content, rec)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Record) resultOrNil() []uint {
	if r == nil {
		return nil
	}
	return r.RaffleResult
}

// ListMyRecords 分页列出调用者的参与记录，按时间倒序
func (s *Service) ListMyRecords(ctx context.Context, id user.Identity, page project.Pagination) (*project.Page[RecordSummary], error) {
	page = page.Normalize()
	recs, total, err := s.records.ListByUser(ctx, id.ID, page.Offset(), page.Size)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(recs))
	for i, r := range recs {
		ids[i] = r.ProjectID
	}
	projects, err := s.projects.ProjectsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]RecordSummary, len(recs))
	now := s.now()
	for i := range recs {
		p, ok := projects[recs[i].ProjectID]
		if !ok {
			items[i] = recs[i].Summary(nil)
			continue
		}
		if err := project.Refresh(ctx, s.projects.DB(), &p, now); err != nil {
			return nil, err
		}
		items[i] = recs[i].Summary(&p)
	}
	return &project.Page[RecordSummary]{Items: items, Total: total, Page: page.Page, Size: page.Size}, nil
}

// ManagerView 返回项目创建者的完整视图，包括答题和抽奖名单
func (s *Service) ManagerView(ctx context.Context, id user.Identity, projectID uint) (*ManagerView, error) {
	content, err := s.owned.OwnedContent(ctx, id, projectID)
	if err != nil {
		return nil, err
	}
	recs, err := s.records.ByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	userIDs := make([]uint, len(recs))
	for i, r := range recs {
		userIDs[i] = r.UserID
	}
	users, err := s.contacts.ContactsByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	return BuildManagerView(content, recs, users), nil
}

// AcknowledgeClaim 由项目创建者标记记录的奖品是否已领取
func (s *Service) AcknowledgeClaim(ctx context.Context, id user.Identity, recordID uint, in ClaimInput) (*RecordSummary, error) {
	var summary RecordSummary
	err := database.TransactWithRetry(ctx, s.db, s.maxRetries, func(tx *gorm.DB) error {
		if !id.ManagePermission {
			return project.ErrNotManager
		}
		records := s.records.WithTx(tx)
		rec, err := records.Get(ctx, recordID)
		if err != nil {
			return err
		}
		p, err := s.projects.WithTx(tx).GetProject(ctx, rec.ProjectID)
		if err != nil {
			return err
		}
		if p.CreaterID != id.ID {
			return project.ErrNotOwner
		}
		if rec.DrawsUsed() == 0 {
			return ErrNothingToClaim
		}
		ok, err := records.SetClaimStatus(ctx, rec, *in.PrizeClaimStatus)
		if err != nil {
			return err
		}
		if !ok {
			return database.ErrStaleWrite
		}
		summary = rec.Summary(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
