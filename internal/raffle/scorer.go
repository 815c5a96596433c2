package raffle

import (
	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/SlpAus/qa-raffle-backend/internal/project"
)

// MaxDraws 是全部答对时获得的抽奖次数
const MaxDraws = 5

var (
	ErrNoQuestions    = apperror.InvalidState("该项目没有题目，无法答题")
	ErrAnswerLength   = apperror.InvalidState("答案数量与题目数量不一致")
	ErrAnswerOutRange = apperror.InvalidState("答案必须是1~4")
)

// Score 是一次答题的成绩
type Score struct {
	Correct int
	Total   int
}

// Rate 返回正确率
func (s Score) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}

// Allowance 返回成绩对应的抽奖次数
func (s Score) Allowance() int {
	return DrawAllowance(s.Correct, s.Total)
}

// DrawAllowance 计算 round_half_up(correct/total * MaxDraws)。
// 用整数运算避免浮点误差：floor((2*correct*MaxDraws + total) / (2*total))。
func DrawAllowance(correct, total int) int {
	if total <= 0 || correct <= 0 {
		return 0
	}
	return (2*correct*MaxDraws + total) / (2 * total)
}

// Grade 按题目顺序逐一比对答案
func Grade(questions []project.Question, answer []int) (Score, error) {
	if len(questions) == 0 {
		return Score{}, ErrNoQuestions
	}
	if len(answer) != len(questions) {
		return Score{}, ErrAnswerLength
	}
	score := Score{Total: len(questions)}
	for i, choice := range answer {
		if choice < 1 || choice > 4 {
			return Score{}, ErrAnswerOutRange
		}
		if choice == questions[i].A {
			score.Correct++
		}
	}
	return score, nil
}

// CountCorrect 统计已保存答案的正确数，答案与题目数量不一致时只比对重叠部分
func CountCorrect(questions []project.Question, answer []int) int {
	n := 0
	for i := 0; i < len(questions) && i < len(answer); i++ {
		if answer[i] == questions[i].A {
			n++
		}
	}
	return n
}
