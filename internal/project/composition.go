package project

// Composition 描述项目由哪些部分组成，决定答题、抽奖和视图的行为。
type Composition int

const (
	CompositionEmpty Composition = iota
	CompositionQuizOnly
	CompositionRaffleOnly
	CompositionQuizAndRaffle
)

// CompositionOf 由题目数和奖品数计算项目组成
func CompositionOf(questionCount, prizeCount int) Composition {
	switch {
	case questionCount > 0 && prizeCount > 0:
		return CompositionQuizAndRaffle
	case questionCount > 0:
		return CompositionQuizOnly
	case prizeCount > 0:
		return CompositionRaffleOnly
	default:
		return CompositionEmpty
	}
}

func (c Composition) HasQuestions() bool {
	return c == CompositionQuizOnly || c == CompositionQuizAndRaffle
}

func (c Composition) HasPrizes() bool {
	return c == CompositionRaffleOnly || c == CompositionQuizAndRaffle
}

func (c Composition) String() string {
	switch c {
	case CompositionQuizOnly:
		return "quiz_only"
	case CompositionRaffleOnly:
		return "raffle_only"
	case CompositionQuizAndRaffle:
		return "quiz_and_raffle"
	default:
		return "empty"
	}
}
