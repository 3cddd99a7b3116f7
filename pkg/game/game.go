// Package game defines the per-game metadata record the stores and protocol layer pass
// around: a plain struct with 15 typed fields, plus a GameField enum used only to fix the
// CSV and wire serialization order. No behavior beyond the invariants listed in each
// field's comment lives here; move legality is pkg/board's job.
package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/corrchess/server/pkg/board"
	"github.com/corrchess/server/pkg/field"
	"github.com/seekerror/stdlib/pkg/lang"
)

// GameField orders the 15 high-level fields for CSV rows and wire payloads. Declared once
// so pkg/store/gamestore and pkg/protocol never disagree on field order.
type GameField int

const (
	FieldGameID GameField = iota
	FieldWhite
	FieldBlack
	FieldOpen
	FieldState
	FieldTurn
	FieldWhiteArchived
	FieldBlackArchived
	FieldDrawOffered
	FieldDrawn
	FieldWinner
	FieldForfeit
	FieldWhiteCheck
	FieldBlackCheck
	FieldPromotionNeeded

	numFields
)

// Game is a correspondence game's metadata. The board itself is persisted and loaded
// separately (see pkg/board.Load/SaveTo); Game only tracks what the wire protocol and the
// game store need to answer queries and enforce preconditions without touching the board.
type Game struct {
	ID string

	White lang.Optional[string]
	Black lang.Optional[string]
	Open  bool

	State      board.Color // whose move it is
	TurnNumber uint32      // >= 1

	WhiteArchived bool
	BlackArchived bool

	DrawOffered bool
	Drawn       bool
	Winner      lang.Optional[string]
	Forfeit     bool

	WhiteCheck bool
	BlackCheck bool

	PromotionNeeded bool

	Board *board.Board
}

// NewOpenGame returns a freshly created game owned by white on b, with turn_number=1 per
// the data model invariant. b is typically loaded from the operator-editable standard-board
// template (spec.md §6.3), not hardcoded here, so the opening position used for new games
// stays in the caller's control.
func NewOpenGame(id, white string, open bool, b *board.Board) *Game {
	g := &Game{
		ID:         id,
		White:      lang.Some(white),
		Open:       open,
		State:      board.White,
		TurnNumber: 1,
		Board:      b,
	}
	return g
}

// Player reports whether username is one of the game's two players.
func (g *Game) Player(username string) bool {
	if w, ok := g.White.V(); ok && w == username {
		return true
	}
	if b, ok := g.Black.V(); ok && b == username {
		return true
	}
	return false
}

// ColorOf returns the color username plays in this game.
func (g *Game) ColorOf(username string) (board.Color, bool) {
	if w, ok := g.White.V(); ok && w == username {
		return board.White, true
	}
	if b, ok := g.Black.V(); ok && b == username {
		return board.Black, true
	}
	return board.ZeroColor, false
}

// HasOpponent reports whether both seats are filled.
func (g *Game) HasOpponent() bool {
	_, whiteOk := g.White.V()
	_, blackOk := g.Black.V()
	return whiteOk && blackOk
}

// Terminal reports whether the game has reached a result: checkmate, stalemate, draw or
// forfeit.
func (g *Game) Terminal() bool {
	_, won := g.Winner.V()
	return won || g.Drawn
}

// Archived reports whether username has archived their side of the game.
func (g *Game) Archived(username string) bool {
	if w, ok := g.White.V(); ok && w == username {
		return g.WhiteArchived
	}
	return g.BlackArchived
}

// SetArchived flips the archive bit for username's seat.
func (g *Game) SetArchived(username string, archived bool) {
	if w, ok := g.White.V(); ok && w == username {
		g.WhiteArchived = archived
		return
	}
	g.BlackArchived = archived
}

// Snapshot is the read-only view of a Game's 15 high-level fields returned by the game
// store's query operations; it never exposes the live *Board.
type Snapshot struct {
	GameID          string
	White           string
	Black           string
	Open            bool
	State           board.Color
	TurnNumber      uint32
	WhiteArchived   bool
	BlackArchived   bool
	DrawOffered     bool
	Drawn           bool
	Winner          string
	Forfeit         bool
	WhiteCheck      bool
	BlackCheck      bool
	PromotionNeeded bool
}

// Snapshot copies g's high-level fields into a value safe to read without the store's lock
// held.
func (g *Game) Snapshot() Snapshot {
	white, _ := g.White.V()
	black, _ := g.Black.V()
	winner, _ := g.Winner.V()

	return Snapshot{
		GameID:          g.ID,
		White:           white,
		Black:           black,
		Open:            g.Open,
		State:           g.State,
		TurnNumber:      g.TurnNumber,
		WhiteArchived:   g.WhiteArchived,
		BlackArchived:   g.BlackArchived,
		DrawOffered:     g.DrawOffered,
		Drawn:           g.Drawn,
		Winner:          winner,
		Forfeit:         g.Forfeit,
		WhiteCheck:      g.WhiteCheck,
		BlackCheck:      g.BlackCheck,
		PromotionNeeded: g.PromotionNeeded,
	}
}

// Fields returns the snapshot's 15 values in GameField order, each tagged int or string
// exactly as the wire payload and CSV row send them.
func (s Snapshot) Fields() [numFields]field.Value {
	var out [numFields]field.Value
	out[FieldGameID] = field.Str(s.GameID)
	out[FieldWhite] = field.Str(s.White)
	out[FieldBlack] = field.Str(s.Black)
	out[FieldOpen] = field.Int(boolInt(s.Open))
	out[FieldState] = field.Int(int(s.State))
	out[FieldTurn] = field.Int(int(s.TurnNumber))
	out[FieldWhiteArchived] = field.Int(boolInt(s.WhiteArchived))
	out[FieldBlackArchived] = field.Int(boolInt(s.BlackArchived))
	out[FieldDrawOffered] = field.Int(boolInt(s.DrawOffered))
	out[FieldDrawn] = field.Int(boolInt(s.Drawn))
	out[FieldWinner] = field.Str(s.Winner)
	out[FieldForfeit] = field.Int(boolInt(s.Forfeit))
	out[FieldWhiteCheck] = field.Int(boolInt(s.WhiteCheck))
	out[FieldBlackCheck] = field.Int(boolInt(s.BlackCheck))
	out[FieldPromotionNeeded] = field.Int(boolInt(s.PromotionNeeded))
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// EncodeCSV renders the snapshot as one active_games.csv row: 15 comma-separated fields in
// GameField order. Strings never contain commas (game IDs and usernames are validated on
// the way in), so no quoting is needed.
func (s Snapshot) EncodeCSV() string {
	fields := s.Fields()
	parts := make([]string, numFields)
	for i, f := range fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// DecodeCSVRow parses one active_games.csv row back into a snapshot. The board is not part
// of the row; callers load it separately from the per-game board file.
func DecodeCSVRow(row string) (Snapshot, error) {
	parts := strings.Split(row, ",")
	if len(parts) != int(numFields) {
		return Snapshot{}, fmt.Errorf("game row: want %d fields, got %d", numFields, len(parts))
	}

	asInt := func(i GameField) (int, error) {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, fmt.Errorf("game row: field %d: %w", i, err)
		}
		return n, nil
	}

	open, err := asInt(FieldOpen)
	if err != nil {
		return Snapshot{}, err
	}
	state, err := asInt(FieldState)
	if err != nil {
		return Snapshot{}, err
	}
	turn, err := asInt(FieldTurn)
	if err != nil {
		return Snapshot{}, err
	}
	whiteArchived, err := asInt(FieldWhiteArchived)
	if err != nil {
		return Snapshot{}, err
	}
	blackArchived, err := asInt(FieldBlackArchived)
	if err != nil {
		return Snapshot{}, err
	}
	drawOffered, err := asInt(FieldDrawOffered)
	if err != nil {
		return Snapshot{}, err
	}
	drawn, err := asInt(FieldDrawn)
	if err != nil {
		return Snapshot{}, err
	}
	forfeit, err := asInt(FieldForfeit)
	if err != nil {
		return Snapshot{}, err
	}
	whiteCheck, err := asInt(FieldWhiteCheck)
	if err != nil {
		return Snapshot{}, err
	}
	blackCheck, err := asInt(FieldBlackCheck)
	if err != nil {
		return Snapshot{}, err
	}
	promotionNeeded, err := asInt(FieldPromotionNeeded)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		GameID:          parts[FieldGameID],
		White:           parts[FieldWhite],
		Black:           parts[FieldBlack],
		Open:            open != 0,
		State:           board.Color(state),
		TurnNumber:      uint32(turn),
		WhiteArchived:   whiteArchived != 0,
		BlackArchived:   blackArchived != 0,
		DrawOffered:     drawOffered != 0,
		Drawn:           drawn != 0,
		Winner:          parts[FieldWinner],
		Forfeit:         forfeit != 0,
		WhiteCheck:      whiteCheck != 0,
		BlackCheck:      blackCheck != 0,
		PromotionNeeded: promotionNeeded != 0,
	}, nil
}
