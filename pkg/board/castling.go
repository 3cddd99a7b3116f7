package board

// CastlingRights tracks, per side, whether that side may still castle kingside and/or
// queenside. Rights are monotonically clearable: once lost (king or rook moved, or a rook
// was captured on its home square), they are never regained in a game.
type CastlingRights struct {
	Kingside, Queenside bool
}

// castlingState holds both colors' rights.
type castlingState struct {
	White, Black CastlingRights
}

func fullCastlingState() castlingState {
	return castlingState{
		White: CastlingRights{Kingside: true, Queenside: true},
		Black: CastlingRights{Kingside: true, Queenside: true},
	}
}

func (s *castlingState) rights(c Color) *CastlingRights {
	if c == White {
		return &s.White
	}
	return &s.Black
}

// ClearKingside permanently clears kingside castling rights for the color.
func (r *CastlingRights) ClearKingside() {
	r.Kingside = false
}

// ClearQueenside permanently clears queenside castling rights for the color.
func (r *CastlingRights) ClearQueenside() {
	r.Queenside = false
}

// ClearAll permanently clears all castling rights for the color (the king moved).
func (r *CastlingRights) ClearAll() {
	r.Kingside = false
	r.Queenside = false
}
