package raffle

import (
	"math/rand"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/SlpAus/qa-raffle-backend/internal/project"
	"github.com/SlpAus/qa-raffle-backend/pkg/tree"
)

var (
	ErrNoPrizes        = apperror.InvalidState("该项目没有奖品，无法抽奖")
	ErrAnswerFirst     = apperror.InvalidState("请先完成答题再抽奖")
	ErrExhausted       = apperror.InvalidState("抽奖次数已用完")
	ErrNoEligiblePrize = apperror.InvalidState("没有可抽取的奖品")
)

// Allowance 返回用户在项目中可抽奖的总次数。
// 问答+抽奖项目的次数由答题成绩决定；仅抽奖项目固定为1次。
func Allowance(comp project.Composition, rec *Record) (int, error) {
	switch comp {
	case project.CompositionQuizAndRaffle:
		if !rec.HasAnswer() {
			return 0, ErrAnswerFirst
		}
		return rec.RaffleTimes, nil
	case project.CompositionRaffleOnly:
		return 1, nil
	default:
		return 0, ErrNoPrizes
	}
}

// BuildPool 构造本次抽奖的奖池：库存大于0的奖品，排除用户已抽中过的非安慰奖。
// 返回的奖池保持输入的ID升序。
func BuildPool(prizes []project.Prize, won []uint) []project.Prize {
	wonSet := make(map[uint]struct{}, len(won))
	for _, id := range won {
		wonSet[id] = struct{}{}
	}
	pool := make([]project.Prize, 0, len(prizes))
	for _, p := range prizes {
		if p.Remain <= 0 {
			continue
		}
		if _, already := wonSet[p.ID]; already && !p.IsConsolation() {
			continue
		}
		pool = append(pool, p)
	}
	return pool
}

// Picker 返回 [1, total] 上的一个均匀随机整数
type Picker func(total int64) int64

// RandomPicker 是默认的随机源
func RandomPicker(total int64) int64 {
	return rand.Int63n(total) + 1
}

// Pick 按库存加权从奖池中选出一个奖品
func Pick(pool []project.Prize, pick Picker) (*project.Prize, error) {
	if len(pool) == 0 {
		return nil, ErrNoEligiblePrize
	}
	weights := make([]int64, len(pool))
	for i, p := range pool {
		weights[i] = int64(p.Remain)
	}
	st, err := tree.FromWeights(weights)
	if err != nil {
		return nil, err
	}
	if st.TotalSum() == 0 {
		return nil, ErrNoEligiblePrize
	}
	idx, err := st.Find(pick(st.TotalSum()))
	if err != nil {
		return nil, err
	}
	return &pool[idx], nil
}
