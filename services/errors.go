package services

import (
	"errors"
	"fmt"

	"flower-garden/models"
)

var (
	ErrInvalidDimensions = errors.New("garden dimensions must be positive")
	ErrGardenClosed      = errors.New("garden is closed")
	ErrNotFullyGrown     = errors.New("flower is not fully grown")
	ErrConsistency       = errors.New("garden consistency violation")
)

// NotFullyGrownError is returned when collecting a flower that has not
// reached the final stage
type NotFullyGrownError struct {
	Position models.Position
	Symbol   rune
}

func (e *NotFullyGrownError) Error() string {
	return fmt.Sprintf("the flower at %s is %c thus not fully grown", e.Position, e.Symbol)
}

func (e *NotFullyGrownError) Unwrap() error {
	return ErrNotFullyGrown
}

// ConsistencyError reports that the grid showed a bloomed flower at a
// position where the flower collection did not hold exactly one flower
type ConsistencyError struct {
	Position models.Position
	Matches  int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("expected exactly one flower at %s, found %d", e.Position, e.Matches)
}

func (e *ConsistencyError) Unwrap() error {
	return ErrConsistency
}
