package board

import "fmt"

// Move is a from/to square pair, as parsed from the wire protocol's "sr,sc->dr,dc" syntax.
// It carries no legality information by itself; Board.Move decides that.
type Move struct {
	From, To Square
}

func (m Move) String() string {
	return fmt.Sprintf("%v->%v", m.From, m.To)
}

// MoveOutcome is the result of attempting a move against a Board.
type MoveOutcome uint8

const (
	// MovedNormally means the move was legal, executed, and did not require a promotion.
	MovedNormally MoveOutcome = iota
	// MovedPromotionRequired means the move was legal and executed, but landed a pawn on
	// the back rank; Promote must be called before any other move by that side.
	MovedPromotionRequired
	// Invalid means the move is not a legal move in the current position.
	Invalid
	// WrongTurn means the move's origin piece belongs to the side not on move.
	WrongTurn
	// MustPromoteFirst means a promotion is already pending for the side to move.
	MustPromoteFirst
)

// PromoteOutcome is the result of attempting to resolve a pending promotion.
type PromoteOutcome uint8

const (
	PromotedOk PromoteOutcome = iota
	NoPromotionPending
	InvalidPieceChar
)
