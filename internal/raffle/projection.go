package raffle

import (
	"github.com/SlpAus/qa-raffle-backend/internal/project"
	"github.com/SlpAus/qa-raffle-backend/internal/user"
	"github.com/SlpAus/qa-raffle-backend/pkg/isotime"
)

// ParticipantView 是参与者看到的项目详情。
// 字段是否出现取决于项目组成和用户是否已有参与记录，未适用的抽奖字段为 null。
type ParticipantView struct {
	project.ProjectView
	Composition      string                 `json:"composition"`
	Questions        []project.QuestionView `json:"questions"`
	Prizes           []project.PrizeView    `json:"prizes"`
	Answer           []int                  `json:"answer"`
	AnswerTime       *isotime.Time          `json:"answer_time"`
	CorrectCount     *int                   `json:"correct_count"`
	RaffleTimes      *int                   `json:"raffle_times"`
	RaffleResult     []uint                 `json:"raffle_result"`
	RaffleTime       *isotime.Time          `json:"raffle_time"`
	RemainingDraws   *int                   `json:"remaining_draws"`
	PrizeClaimStatus *bool                  `json:"prize_claim_status"`
}

func intPtr(n int) *int { return &n }

func remaining(allowance, used int) *int {
	if used >= allowance {
		return intPtr(0)
	}
	return intPtr(allowance - used)
}

// BuildParticipantView 根据项目组成和记录组装参与者视图。rec 可以为 nil。
func BuildParticipantView(content *project.Content, rec *Record) *ParticipantView {
	comp := content.Composition()
	answered := rec.HasAnswer()
	v := &ParticipantView{
		ProjectView: content.Project.View(),
		Composition: comp.String(),
		Questions:   project.QuestionViews(content.Questions, answered),
		Prizes:      project.PrizeViews(content.Prizes),
	}

	if answered && comp.HasQuestions() {
		v.Answer = rec.Answer
		v.AnswerTime = isotime.Ptr(rec.AnswerTime)
		v.CorrectCount = intPtr(CountCorrect(content.Questions, rec.Answer))
	}

	switch comp {
	case project.CompositionQuizAndRaffle:
		if answered {
			v.RaffleTimes = intPtr(rec.RaffleTimes)
			v.RemainingDraws = remaining(rec.RaffleTimes, rec.DrawsUsed())
		}
	case project.CompositionRaffleOnly:
		v.RaffleTimes = intPtr(1)
		v.RemainingDraws = remaining(1, rec.DrawsUsed())
	}
	if comp.HasPrizes() && rec != nil && rec.DrawsUsed() > 0 {
		v.RaffleResult = rec.RaffleResult
		v.RaffleTime = isotime.Ptr(rec.RaffleTime)
		claimed := rec.PrizeClaimStatus
		v.PrizeClaimStatus = &claimed
	}
	return v
}

// Contact 是名单中展示的参与者身份
type Contact struct {
	UserID   uint    `json:"user_id"`
	Username string  `json:"username"`
	QQ       *string `json:"qq"`
	Phone    *string `json:"phone"`
}

// AnswerEntry 是答题名单中的一项
type AnswerEntry struct {
	Contact
	RecordID     uint          `json:"record_id"`
	Answer       []int         `json:"answer"`
	CorrectCount int           `json:"correct_count"`
	AnswerTime   *isotime.Time `json:"answer_time"`
}

// RaffleEntry 是抽奖名单中的一项
type RaffleEntry struct {
	Contact
	RecordID         uint          `json:"record_id"`
	RaffleResult     []uint        `json:"raffle_result"`
	RaffleTime       *isotime.Time `json:"raffle_time"`
	PrizeClaimStatus bool          `json:"prize_claim_status"`
}

// ManagerView 是项目创建者看到的完整详情
type ManagerView struct {
	project.ProjectView
	Composition        string                 `json:"composition"`
	Questions          []project.QuestionView `json:"questions"`
	Prizes             []project.PrizeView    `json:"prizes"`
	AnswerParticipants []AnswerEntry          `json:"answer_participants"`
	RaffleParticipants []RaffleEntry          `json:"raffle_participants"`
}

func contactOf(userID uint, users map[uint]user.User) Contact {
	c := Contact{UserID: userID}
	if u, ok := users[userID]; ok {
		c.Username = u.Username
		c.QQ = u.QQ
		c.Phone = u.Phone
	}
	return c
}

// BuildManagerView 组装管理者视图，名单按记录ID升序。
// 已注销用户的记录仍然出现在名单中，只是没有用户名和联系方式。
func BuildManagerView(content *project.Content, records []Record, users map[uint]user.User) *ManagerView {
	v := &ManagerView{
		ProjectView:        content.Project.View(),
		Composition:        content.Composition().String(),
		Questions:          project.QuestionViews(content.Questions, true),
		Prizes:             project.PrizeViews(content.Prizes),
		AnswerParticipants: []AnswerEntry{},
		RaffleParticipants: []RaffleEntry{},
	}
	for i := range records {
		rec := &records[i]
		if rec.HasAnswer() {
			v.AnswerParticipants = append(v.AnswerParticipants, AnswerEntry{
				Contact:      contactOf(rec.UserID, users),
				RecordID:     rec.ID,
				Answer:       rec.Answer,
				CorrectCount: CountCorrect(content.Questions, rec.Answer),
				AnswerTime:   isotime.Ptr(rec.AnswerTime),
			})
		}
		if rec.DrawsUsed() > 0 {
			v.RaffleParticipants = append(v.RaffleParticipants, RaffleEntry{
				Contact:          contactOf(rec.UserID, users),
				RecordID:         rec.ID,
				RaffleResult:     rec.RaffleResult,
				RaffleTime:       isotime.Ptr(rec.RaffleTime),
				PrizeClaimStatus: rec.PrizeClaimStatus,
			})
		}
	}
	return v
}

// RecordSummary 是“我的记录”列表中的一项，项目已被删除时 Project 为 null
type RecordSummary struct {
	ID               uint                 `json:"id"`
	ProjectID        uint                 `json:"project_id"`
	Project          *project.ProjectView `json:"project"`
	Answer           []int                `json:"answer"`
	AnswerTime       *isotime.Time        `json:"answer_time"`
	RaffleTimes      int                  `json:"raffle_times"`
	RaffleResult     []uint               `json:"raffle_result"`
	RaffleTime       *isotime.Time        `json:"raffle_time"`
	PrizeClaimStatus bool                 `json:"prize_claim_status"`
}

// Summary 返回记录的摘要，p 可以为 nil
func (r *Record) Summary(p *project.Project) RecordSummary {
	s := RecordSummary{
		ID:               r.ID,
		ProjectID:        r.ProjectID,
		Answer:           r.Answer,
		AnswerTime:       isotime.Ptr(r.AnswerTime),
		RaffleTimes:      r.RaffleTimes,
		RaffleResult:     r.RaffleResult,
		RaffleTime:       isotime.Ptr(r.RaffleTime),
		PrizeClaimStatus: r.PrizeClaimStatus,
	}
	if p != nil {
		view := p.View()
		s.Project = &view
	}
	return s
}
