// Package board implements the chess rules engine: a mutable board representation, legal
// move generation (including pins, checks, castling, en passant and promotion), and the
// board-file codec. No component above this package knows the rules of chess.
package board

import "fmt"

// Board is a mutable chess position: an 8x8 grid plus two per-color lists of live pieces.
// The two views agree at rest (between operations): every piece appears in exactly one
// grid cell and exactly one color list. Board is not safe for concurrent use; callers that
// need concurrent access (pkg/store/gamestore) serialize access with their own lock.
type Board struct {
	grid   [8][8]*Piece
	pieces [NumColors][]*Piece

	turn      Color
	enPassant *Square // non-nil only immediately after a two-square pawn advance
	castling  castlingState

	pending *Piece // promotion-pending pawn, or nil
}

// NewStandardBoard returns a board in the standard chess starting position.
func NewStandardBoard() *Board {
	b := &Board{turn: White, castling: fullCastlingState()}

	backRank := [8]PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for col, kind := range backRank {
		b.addPiece(&Piece{Kind: kind, Color: White, Square: NewSquare(0, col)})
		b.addPiece(&Piece{Kind: kind, Color: Black, Square: NewSquare(7, col)})
	}
	for col := 0; col < 8; col++ {
		b.addPiece(&Piece{Kind: Pawn, Color: White, Square: NewSquare(1, col)})
		b.addPiece(&Piece{Kind: Pawn, Color: Black, Square: NewSquare(6, col)})
	}
	return b
}

// newBoardFrom constructs a board from already-parsed board-file contents, validating the
// invariants a corrupt file could violate.
func newBoardFrom(placements []Piece, turn Color, ep *Square, castling castlingState) (*Board, error) {
	b := &Board{turn: turn, enPassant: ep, castling: castling}

	seen := map[Square]bool{}
	for _, p := range placements {
		if !p.Square.IsValid() {
			return nil, fmt.Errorf("piece off-board: %+v", p)
		}
		if seen[p.Square] {
			return nil, fmt.Errorf("duplicate piece on %v", p.Square)
		}
		seen[p.Square] = true

		cp := p
		b.addPiece(&cp)
	}

	if len(b.pieces[White]) == 0 || countKings(b.pieces[White]) != 1 {
		return nil, fmt.Errorf("board must have exactly one white king")
	}
	if len(b.pieces[Black]) == 0 || countKings(b.pieces[Black]) != 1 {
		return nil, fmt.Errorf("board must have exactly one black king")
	}
	return b, nil
}

func countKings(pieces []*Piece) int {
	n := 0
	for _, p := range pieces {
		if p.Kind == King {
			n++
		}
	}
	return n
}

func (b *Board) addPiece(p *Piece) {
	b.pieces[p.Color] = append(b.pieces[p.Color], p)
	b.grid[p.Square.Row][p.Square.Column] = p
}

func (b *Board) at(sq Square) *Piece {
	if !sq.IsValid() {
		return nil
	}
	return b.grid[sq.Row][sq.Column]
}

func (b *Board) clearSquare(sq Square) {
	b.grid[sq.Row][sq.Column] = nil
}

func (b *Board) removeFromList(p *Piece) {
	list := b.pieces[p.Color]
	for i, q := range list {
		if q == p {
			b.pieces[p.Color] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (b *Board) kingOf(c Color) *Piece {
	for _, p := range b.pieces[c] {
		if p.Kind == King {
			return p
		}
	}
	return nil
}

// Turn returns the color to move.
func (b *Board) Turn() Color {
	return b.turn
}

// EnPassant returns the en-passant target square, if the last move was a two-square pawn
// advance.
func (b *Board) EnPassant() (Square, bool) {
	if b.enPassant == nil {
		return Square{}, false
	}
	return *b.enPassant, true
}

// CastlingRights returns the color's current castling rights.
func (b *Board) CastlingRights(c Color) CastlingRights {
	return *b.castling.rights(c)
}

// PieceAt returns the piece on the square, if any.
func (b *Board) PieceAt(sq Square) (Piece, bool) {
	p := b.at(sq)
	if p == nil {
		return Piece{}, false
	}
	return *p, true
}

// PendingPromotion returns the square of the pawn awaiting promotion, if any.
func (b *Board) PendingPromotion() (Square, bool) {
	if b.pending == nil {
		return Square{}, false
	}
	return b.pending.Square, true
}

// clone deep-copies the board for move-legality simulation. The copy never carries a
// pending promotion, even if b has one.
func (b *Board) clone() *Board {
	nb := &Board{turn: b.turn, castling: b.castling}
	if b.enPassant != nil {
		ep := *b.enPassant
		nb.enPassant = &ep
	}
	for c := ZeroColor; c < NumColors; c++ {
		for _, p := range b.pieces[c] {
			np := &Piece{Kind: p.Kind, Color: p.Color, Square: p.Square}
			nb.pieces[c] = append(nb.pieces[c], np)
			nb.grid[np.Square.Row][np.Square.Column] = np
		}
	}
	return nb
}

// rawApply executes a pseudo-legal move unconditionally: it does not check whether the
// move is legal, and it does not touch turn or promotion-pending state. It updates the
// grid, the piece lists, the en-passant marker and castling rights.
func (b *Board) rawApply(src, dest Square, enPassantCapture bool) {
	mover := b.at(src)

	var captured *Piece
	if enPassantCapture {
		capSq := NewSquare(src.Row, dest.Column)
		captured = b.at(capSq)
		b.clearSquare(capSq)
	} else if target := b.at(dest); target != nil {
		captured = target
	}
	if captured != nil {
		b.removeFromList(captured)
	}

	b.clearSquare(src)
	mover.Square = dest
	b.grid[dest.Row][dest.Column] = mover

	wasTwoSquareAdvance := mover.Kind == Pawn && abs(dest.Row-src.Row) == 2
	b.enPassant = nil
	if wasTwoSquareAdvance {
		mid := NewSquare((src.Row+dest.Row)/2, src.Column)
		b.enPassant = &mid
	}

	if mover.Kind == King && abs(dest.Column-src.Column) == 2 {
		row := src.Row
		if dest.Column == 6 {
			b.hopRook(row, 7, 5)
		} else if dest.Column == 2 {
			b.hopRook(row, 0, 3)
		}
	}

	b.updateCastlingRights(mover, src, captured)
}

func (b *Board) hopRook(row, fromCol, toCol int) {
	rook := b.at(NewSquare(row, fromCol))
	if rook == nil {
		return
	}
	b.clearSquare(NewSquare(row, fromCol))
	rook.Square = NewSquare(row, toCol)
	b.grid[row][toCol] = rook
}

func (b *Board) updateCastlingRights(mover *Piece, src Square, captured *Piece) {
	if mover.Kind == King {
		b.castling.rights(mover.Color).ClearAll()
	}
	if mover.Kind == Rook {
		clearRookRight(b, mover.Color, src)
	}
	if captured != nil && captured.Kind == Rook {
		clearRookRight(b, captured.Color, captured.Square)
	}
}

func clearRookRight(b *Board, c Color, sq Square) {
	homeRow := 0
	if c == Black {
		homeRow = 7
	}
	if sq.Row != homeRow {
		return
	}
	switch sq.Column {
	case 0:
		b.castling.rights(c).ClearQueenside()
	case 7:
		b.castling.rights(c).ClearKingside()
	}
}

// Move attempts to move the piece on src to dest. It is the sole entry point for mutating
// board state via a player action.
func (b *Board) Move(src, dest Square) MoveOutcome {
	if b.pending != nil {
		return MustPromoteFirst
	}

	mover := b.at(src)
	if mover == nil {
		return Invalid
	}
	if mover.Color != b.turn {
		return WrongTurn
	}

	var chosen *pseudoMove
	for _, pm := range b.legalMovesFor(mover) {
		if pm.To == dest {
			cp := pm
			chosen = &cp
			break
		}
	}
	if chosen == nil {
		return Invalid
	}

	b.rawApply(src, dest, chosen.EnPassant)
	moved := b.at(dest)

	if moved.Kind == Pawn && dest.Row == moved.Color.BackRank() {
		b.pending = moved
		return MovedPromotionRequired
	}

	b.turn = b.turn.Opponent()
	return MovedNormally
}

// Promote resolves a pending promotion with the given piece-kind character ('r', 'n', 'b'
// or 'q', case-insensitive).
func (b *Board) Promote(kindChar rune) PromoteOutcome {
	if b.pending == nil {
		return NoPromotionPending
	}

	kind, ok := ParsePieceKind(kindChar)
	if !ok || kind == Pawn || kind == King {
		return InvalidPieceChar
	}

	b.pending.Kind = kind
	b.pending = nil
	b.turn = b.turn.Opponent()
	return PromotedOk
}

// IsCheck returns true iff the color's king is attacked.
func (b *Board) IsCheck(c Color) bool {
	king := b.kingOf(c)
	if king == nil {
		return false
	}
	return b.isSquareAttacked(king.Square, c.Opponent())
}

// IsCheckmate returns true iff the color is in check and has no legal moves.
func (b *Board) IsCheckmate(c Color) bool {
	return b.IsCheck(c) && len(b.LegalMoves(c)) == 0
}

// IsStalemate returns true iff the side to move is not in check and has no legal moves.
func (b *Board) IsStalemate() bool {
	return !b.IsCheck(b.turn) && len(b.LegalMoves(b.turn)) == 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
