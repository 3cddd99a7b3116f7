package board

// pseudoMove is a candidate destination for a piece, tagged as an en passant capture
// (which rawApply needs to remove the passed pawn) or a castle. rawApply works out the
// castling rook hop itself from the king's two-column move.
type pseudoMove struct {
	To        Square
	EnPassant bool
	Castle    castleSide
}

type castleSide uint8

const (
	noCastle castleSide = iota
	kingsideCastle
	queensideCastle
)

var (
	knightOffsets = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingOffsets   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookDirs      = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirs    = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// pseudoMovesFor returns p's candidate destinations ignoring whether the move leaves its
// own king in check. Castling candidates are the exception: their preconditions (rights,
// empty squares between king and rook, king not in and not moving through check) are
// checked here since they depend on squares other than the king's own destination.
func pseudoMovesFor(b *Board, p *Piece) []pseudoMove {
	switch p.Kind {
	case Pawn:
		return pawnPseudoMoves(b, p)
	case Knight:
		return stepMoves(b, p, knightOffsets[:])
	case Bishop:
		return slidingMoves(b, p, bishopDirs[:])
	case Rook:
		return slidingMoves(b, p, rookDirs[:])
	case Queen:
		moves := slidingMoves(b, p, rookDirs[:])
		return append(moves, slidingMoves(b, p, bishopDirs[:])...)
	case King:
		moves := stepMoves(b, p, kingOffsets[:])
		return append(moves, castlingPseudoMoves(b, p)...)
	default:
		return nil
	}
}

func pawnPseudoMoves(b *Board, p *Piece) []pseudoMove {
	dir, startRow := p.Color.PawnDirection(), p.Color.PawnStartRow()

	var out []pseudoMove

	one := NewSquare(p.Square.Row+dir, p.Square.Column)
	if one.IsValid() && b.at(one) == nil {
		out = append(out, pseudoMove{To: one})

		if p.Square.Row == startRow {
			two := NewSquare(p.Square.Row+2*dir, p.Square.Column)
			if b.at(two) == nil {
				out = append(out, pseudoMove{To: two})
			}
		}
	}

	for _, dc := range [2]int{-1, 1} {
		dest := NewSquare(p.Square.Row+dir, p.Square.Column+dc)
		if !dest.IsValid() {
			continue
		}
		if target := b.at(dest); target != nil {
			if target.Color != p.Color {
				out = append(out, pseudoMove{To: dest})
			}
		} else if ep, ok := b.EnPassant(); ok && ep == dest {
			out = append(out, pseudoMove{To: dest, EnPassant: true})
		}
	}
	return out
}

func slidingMoves(b *Board, p *Piece, dirs [][2]int) []pseudoMove {
	var out []pseudoMove
	for _, d := range dirs {
		for step := 1; ; step++ {
			dest := NewSquare(p.Square.Row+d[0]*step, p.Square.Column+d[1]*step)
			if !dest.IsValid() {
				break
			}
			target := b.at(dest)
			if target == nil {
				out = append(out, pseudoMove{To: dest})
				continue
			}
			if target.Color != p.Color {
				out = append(out, pseudoMove{To: dest})
			}
			break
		}
	}
	return out
}

func stepMoves(b *Board, p *Piece, offsets [][2]int) []pseudoMove {
	var out []pseudoMove
	for _, d := range offsets {
		dest := NewSquare(p.Square.Row+d[0], p.Square.Column+d[1])
		if !dest.IsValid() {
			continue
		}
		if target := b.at(dest); target != nil && target.Color == p.Color {
			continue
		}
		out = append(out, pseudoMove{To: dest})
	}
	return out
}

// castlingPseudoMoves implements the four standard preconditions: (a) neither king nor
// the relevant rook has moved, (b) all squares between them are empty, (c) the king is
// not currently in check, (d) neither the square the king crosses nor its destination is
// attacked.
func castlingPseudoMoves(b *Board, king *Piece) []pseudoMove {
	homeRow := 0
	if king.Color == Black {
		homeRow = 7
	}
	if king.Square != NewSquare(homeRow, 4) {
		return nil
	}
	if b.isSquareAttacked(king.Square, king.Color.Opponent()) {
		return nil
	}

	rights := b.castling.rights(king.Color)
	var out []pseudoMove

	if rights.Kingside &&
		b.at(NewSquare(homeRow, 5)) == nil && b.at(NewSquare(homeRow, 6)) == nil &&
		isHomeRook(b, king.Color, homeRow, 7) &&
		!b.isSquareAttacked(NewSquare(homeRow, 5), king.Color.Opponent()) &&
		!b.isSquareAttacked(NewSquare(homeRow, 6), king.Color.Opponent()) {
		out = append(out, pseudoMove{To: NewSquare(homeRow, 6), Castle: kingsideCastle})
	}

	if rights.Queenside &&
		b.at(NewSquare(homeRow, 1)) == nil && b.at(NewSquare(homeRow, 2)) == nil && b.at(NewSquare(homeRow, 3)) == nil &&
		isHomeRook(b, king.Color, homeRow, 0) &&
		!b.isSquareAttacked(NewSquare(homeRow, 3), king.Color.Opponent()) &&
		!b.isSquareAttacked(NewSquare(homeRow, 2), king.Color.Opponent()) {
		out = append(out, pseudoMove{To: NewSquare(homeRow, 2), Castle: queensideCastle})
	}

	return out
}

func isHomeRook(b *Board, c Color, row, col int) bool {
	p := b.at(NewSquare(row, col))
	return p != nil && p.Kind == Rook && p.Color == c
}

// isSquareAttacked returns true iff any piece of color `by` attacks sq on the board as it
// currently stands.
func (b *Board) isSquareAttacked(sq Square, by Color) bool {
	pawnRow := sq.Row - 1
	if by == Black {
		pawnRow = sq.Row + 1
	}
	for _, dc := range [2]int{-1, 1} {
		src := NewSquare(pawnRow, sq.Column+dc)
		if p := b.at(src); p != nil && p.Color == by && p.Kind == Pawn {
			return true
		}
	}

	for _, d := range knightOffsets {
		src := NewSquare(sq.Row+d[0], sq.Column+d[1])
		if p := b.at(src); p != nil && p.Color == by && p.Kind == Knight {
			return true
		}
	}

	for _, d := range kingOffsets {
		src := NewSquare(sq.Row+d[0], sq.Column+d[1])
		if p := b.at(src); p != nil && p.Color == by && p.Kind == King {
			return true
		}
	}

	if b.slideAttacks(sq, by, rookDirs[:], Rook, Queen) {
		return true
	}
	return b.slideAttacks(sq, by, bishopDirs[:], Bishop, Queen)
}

func (b *Board) slideAttacks(sq Square, by Color, dirs [][2]int, kinds ...PieceKind) bool {
	for _, d := range dirs {
		for step := 1; ; step++ {
			cur := NewSquare(sq.Row+d[0]*step, sq.Column+d[1]*step)
			if !cur.IsValid() {
				break
			}
			p := b.at(cur)
			if p == nil {
				continue
			}
			if p.Color == by && containsKind(kinds, p.Kind) {
				return true
			}
			break
		}
	}
	return false
}

func containsKind(kinds []PieceKind, k PieceKind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}

// legalMovesFor filters p's pseudo-moves to those that do not leave p's own king in check,
// by simulating each move on a cloned board. This subsumes the pin filter (a pinned piece's
// illegal destinations always expose the king once actually played), the check filter
// (moves that don't resolve an existing check leave the king in check post-simulation) and
// double-check (every non-king move leaves the king in check, since the second checker is
// untouched).
func (b *Board) legalMovesFor(p *Piece) []pseudoMove {
	var legal []pseudoMove
	for _, pm := range pseudoMovesFor(b, p) {
		clone := b.clone()
		clone.rawApply(p.Square, pm.To, pm.EnPassant)
		if !clone.IsCheck(p.Color) {
			legal = append(legal, pm)
		}
	}
	return legal
}

// LegalMoves returns all legal moves for the color. While a promotion is pending for that
// color, no other move is legal.
func (b *Board) LegalMoves(c Color) []Move {
	if b.pending != nil && b.pending.Color == c {
		return nil
	}

	var out []Move
	for _, p := range b.pieces[c] {
		for _, pm := range b.legalMovesFor(p) {
			out = append(out, Move{From: p.Square, To: pm.To})
		}
	}
	return out
}
