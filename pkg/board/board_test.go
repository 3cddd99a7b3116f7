package board_test

import (
	"strings"
	"testing"

	"github.com/corrchess/server/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardBoardRoundTrip(t *testing.T) {
	b := board.NewStandardBoard()

	var sb strings.Builder
	require.NoError(t, b.SaveTo(&sb))

	loaded, err := board.Load(strings.NewReader(sb.String()))
	require.NoError(t, err)

	var sb2 strings.Builder
	require.NoError(t, loaded.SaveTo(&sb2))

	assert.Equal(t, sb.String(), sb2.String())
}

func TestOpeningMoveFlipsTurn(t *testing.T) {
	b := board.NewStandardBoard()

	outcome := b.Move(board.NewSquare(1, 4), board.NewSquare(3, 4))
	assert.Equal(t, board.MovedNormally, outcome)
	assert.Equal(t, board.Black, b.Turn())
}

func TestWrongTurnAndInvalid(t *testing.T) {
	b := board.NewStandardBoard()

	assert.Equal(t, board.WrongTurn, b.Move(board.NewSquare(6, 4), board.NewSquare(4, 4)))
	assert.Equal(t, board.Invalid, b.Move(board.NewSquare(4, 4), board.NewSquare(4, 5)))
}

func TestEnPassant(t *testing.T) {
	b := board.NewStandardBoard()

	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(1, 4), board.NewSquare(3, 4))) // e2e4-ish
	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(6, 0), board.NewSquare(5, 0))) // black waiting move
	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(3, 4), board.NewSquare(4, 4))) // advance
	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(6, 3), board.NewSquare(4, 3))) // black two-square jump next to white pawn

	ep, ok := b.EnPassant()
	require.True(t, ok)
	assert.Equal(t, board.NewSquare(5, 3), ep)

	outcome := b.Move(board.NewSquare(4, 4), board.NewSquare(5, 3))
	assert.Equal(t, board.MovedNormally, outcome)

	_, occupied := b.PieceAt(board.NewSquare(4, 3))
	assert.False(t, occupied, "captured pawn should be removed")

	_, stillEP := b.EnPassant()
	assert.False(t, stillEP)
}

func TestEnPassantExpiresAfterOneMove(t *testing.T) {
	b := board.NewStandardBoard()

	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(1, 4), board.NewSquare(3, 4))) // e2e4
	_, ok := b.EnPassant()
	require.True(t, ok, "en passant target available on the very next half-move")

	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(7, 1), board.NewSquare(5, 2))) // Nb8c6, ignores it
	_, ok = b.EnPassant()
	assert.False(t, ok, "en passant target gone once the next half-move has passed")
}

func TestCastlingKingside(t *testing.T) {
	b := board.NewStandardBoard()
	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(1, 4), board.NewSquare(3, 4))) // e4
	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(6, 4), board.NewSquare(4, 4))) // e5
	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(0, 6), board.NewSquare(2, 5))) // Nf3
	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(7, 1), board.NewSquare(5, 2))) // Nc6
	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(0, 5), board.NewSquare(3, 2))) // Bc4
	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(6, 3), board.NewSquare(5, 3))) // d6

	outcome := b.Move(board.NewSquare(0, 4), board.NewSquare(0, 6))
	require.Equal(t, board.MovedNormally, outcome)

	rook, ok := b.PieceAt(board.NewSquare(0, 5))
	require.True(t, ok)
	assert.Equal(t, board.Rook, rook.Kind)
	assert.Equal(t, board.White, rook.Color)

	king, ok := b.PieceAt(board.NewSquare(0, 6))
	require.True(t, ok)
	assert.Equal(t, board.King, king.Kind)
}

func TestCastlingBlockedWhenSquareAttacked(t *testing.T) {
	// White King e1, Rook h1, kingside rights only. Black Rook f8 attacks f1 down the
	// f-file, so the square the king would cross is attacked and castling is illegal.
	lines := strings.Join([]string{
		"1", "0", "0", "0",
		"xxxxkrxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxKxxR",
		"0",
	}, "\n") + "\n"

	b, err := board.Load(strings.NewReader(lines))
	require.NoError(t, err)

	outcome := b.Move(board.NewSquare(0, 4), board.NewSquare(0, 6))
	assert.Equal(t, board.Invalid, outcome)
}

func TestCheckmateFoolsMate(t *testing.T) {
	b := board.NewStandardBoard()
	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(1, 5), board.NewSquare(2, 5))) // f3
	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(6, 4), board.NewSquare(4, 4))) // e5
	require.Equal(t, board.MovedNormally, b.Move(board.NewSquare(1, 6), board.NewSquare(3, 6))) // g4
	outcome := b.Move(board.NewSquare(7, 3), board.NewSquare(3, 7))                              // Qh4#

	require.Equal(t, board.MovedNormally, outcome)
	assert.True(t, b.IsCheck(board.White))
	assert.True(t, b.IsCheckmate(board.White))
	assert.False(t, b.IsCheck(board.Black))
}

func TestPromotion(t *testing.T) {
	lines := strings.Join([]string{
		"0", "0", "0", "0",
		"xxxxkxxx",
		"Pxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxKxxx",
		"0",
	}, "\n") + "\n"

	b, err := board.Load(strings.NewReader(lines))
	require.NoError(t, err)

	outcome := b.Move(board.NewSquare(6, 0), board.NewSquare(7, 0))
	require.Equal(t, board.MovedPromotionRequired, outcome)
	assert.Equal(t, board.White, b.Turn(), "turn does not flip until promotion resolves")

	sq, pending := b.PendingPromotion()
	require.True(t, pending)
	assert.Equal(t, board.NewSquare(7, 0), sq)

	assert.Equal(t, board.NoPromotionPending, (&board.Board{}).Promote('q'))

	po := b.Promote('q')
	assert.Equal(t, board.PromotedOk, po)
	assert.Equal(t, board.Black, b.Turn())

	p, ok := b.PieceAt(board.NewSquare(7, 0))
	require.True(t, ok)
	assert.Equal(t, board.Queen, p.Kind)
}

func TestPromoteInvalidPieceChar(t *testing.T) {
	lines := strings.Join([]string{
		"0", "0", "0", "0",
		"xxxxkxxx",
		"Pxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxKxxx",
		"0",
	}, "\n") + "\n"

	b, err := board.Load(strings.NewReader(lines))
	require.NoError(t, err)

	require.Equal(t, board.MovedPromotionRequired, b.Move(board.NewSquare(6, 0), board.NewSquare(7, 0)))
	assert.Equal(t, board.InvalidPieceChar, b.Promote('k'))
	assert.Equal(t, board.InvalidPieceChar, b.Promote('z'))
}

func TestPinnedBishopHasNoMoves(t *testing.T) {
	// White King e1 (0,4), White Bishop e2 (1,4), Black Rook e8 (7,4): the bishop is pinned
	// on the e-file and a diagonal mover can never stay on the file it's pinned along, so
	// every pseudo-legal bishop move exposes the king and none survive the legality filter.
	// Black King a8 (7,0) is off every line involved and keeps the position well-formed.
	lines := strings.Join([]string{
		"0", "0", "0", "0",
		"kxxxrxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxBxxx",
		"xxxxKxxx",
		"0",
	}, "\n") + "\n"

	b, err := board.Load(strings.NewReader(lines))
	require.NoError(t, err)

	for _, m := range b.LegalMoves(board.White) {
		assert.NotEqual(t, board.NewSquare(1, 4), m.From, "pinned bishop should have no legal move")
	}

	outcome := b.Move(board.NewSquare(1, 4), board.NewSquare(2, 5))
	assert.Equal(t, board.Invalid, outcome, "moving the pinned bishop off the file must be rejected")
}

func TestStalemate(t *testing.T) {
	// White king h1 (0,7); Black queen g3 (2,6) covers g1/g2/h2 but not h1 itself;
	// Black king f2 (1,5) is irrelevant to the stalemate but keeps the position well-formed.
	lines := strings.Join([]string{
		"0", "0", "0", "0",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxxx",
		"xxxxxxqx",
		"xxxxxkxx",
		"xxxxxxxK",
		"0",
	}, "\n") + "\n"

	b, err := board.Load(strings.NewReader(lines))
	require.NoError(t, err)

	assert.False(t, b.IsCheck(board.White))
	assert.True(t, b.IsStalemate())
	assert.False(t, b.IsCheckmate(board.White))
}
