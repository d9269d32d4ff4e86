package models

// Growth stages, seed first. The last stage is the only collectible one.
const (
	SeedStage  = '-'
	FinalStage = 'X'
)

// Stages is the fixed growth sequence of every flower
var Stages = []rune{SeedStage, '+', 'w', 'W', 'o', 'O', FinalStage}

// Flower represents a single planted flower
type Flower struct {
	Position Position `json:"position"`
	Symbol   rune     `json:"symbol"`
}

// NewFlower creates a seed at the given position
func NewFlower(position Position) *Flower {
	return &Flower{
		Position: position,
		Symbol:   Stages[0],
	}
}

// StageIndex returns the index of the flower's symbol in Stages, or -1
func (f *Flower) StageIndex() int {
	return StageIndex(f.Symbol)
}

// IsBloomed reports whether the flower reached the final stage
func (f *Flower) IsBloomed() bool {
	return f.Symbol == FinalStage
}

// Grow advances the flower by one stage and reports whether it is now fully
// grown. A fully grown flower stays at the final stage and keeps reporting true.
func (f *Flower) Grow() bool {
	idx := f.StageIndex()
	if idx >= len(Stages)-1 {
		return true
	}
	f.Symbol = Stages[idx+1]
	return idx+1 == len(Stages)-1
}

// StageIndex returns the index of symbol in Stages, or -1 if it is not a stage
func StageIndex(symbol rune) int {
	for i, s := range Stages {
		if s == symbol {
			return i
		}
	}
	return -1
}

// IsStage reports whether symbol is one of the growth stages
func IsStage(symbol rune) bool {
	return StageIndex(symbol) >= 0
}
