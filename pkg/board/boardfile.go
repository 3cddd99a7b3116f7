package board

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/corrchess/server/pkg/field"
)

// Load reads a board file (13-line format below) and returns the board it
// describes. Corrupt input is rejected with a typed error; the engine never panics on
// untrusted input.
//
// Format (13 lines):
//
//	1: 0|1 white kingside castling right
//	2: 0|1 black kingside castling right
//	3: 0|1 white queenside castling right
//	4: 0|1 black queenside castling right
//	5-12: 8 characters each, rank 8 (Black's back rank) down to rank 1 (White's), left to
//	      right by column; uppercase is White, lowercase is Black, 'x' is empty, 'e' marks
//	      the en-passant target square (always otherwise empty).
//	13: 0|1 side to move (0 = White)
func Load(r io.Reader) (*Board, error) {
	lines, err := readExactly(r, 13)
	if err != nil {
		return nil, err
	}

	whiteKingside, err := parseBit(lines[0], "white kingside castling")
	if err != nil {
		return nil, err
	}
	blackKingside, err := parseBit(lines[1], "black kingside castling")
	if err != nil {
		return nil, err
	}
	whiteQueenside, err := parseBit(lines[2], "white queenside castling")
	if err != nil {
		return nil, err
	}
	blackQueenside, err := parseBit(lines[3], "black queenside castling")
	if err != nil {
		return nil, err
	}

	castling := castlingState{
		White: CastlingRights{Kingside: whiteKingside, Queenside: whiteQueenside},
		Black: CastlingRights{Kingside: blackKingside, Queenside: blackQueenside},
	}

	var placements []Piece
	var ep *Square

	for i := 0; i < 8; i++ {
		row := 7 - i
		line := lines[4+i]
		runes := []rune(line)
		if len(runes) != 8 {
			return nil, fmt.Errorf("board line %d: want 8 characters, got %d", 5+i, len(runes))
		}

		for col, r := range runes {
			sq := NewSquare(row, col)
			switch {
			case r == rune(EmptyMarker):
				// empty square

			case r == rune(EnPassantMarker):
				if ep != nil {
					return nil, fmt.Errorf("board line %d: duplicate en-passant marker", 5+i)
				}
				target := sq
				ep = &target

			default:
				kind, ok := ParsePieceKind(r)
				if !ok {
					return nil, fmt.Errorf("board line %d: invalid character %q", 5+i, r)
				}
				color := White
				if r >= 'a' && r <= 'z' {
					color = Black
				}
				placements = append(placements, Piece{Kind: kind, Color: color, Square: sq})
			}
		}
	}

	turnBit, err := parseBit(lines[12], "side to move")
	if err != nil {
		return nil, err
	}
	turn := White
	if turnBit {
		turn = Black
	}

	return newBoardFrom(placements, turn, ep, castling)
}

// SaveTo writes the board in the board-file format described by Load.
func (b *Board) SaveTo(w io.Writer) error {
	for _, line := range b.saveLines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write board file: %w", err)
		}
	}
	return nil
}

// SaveData returns the board-file contents as 13 typed fields (4 ints, 8 strings, 1 int),
// the same shape the wire protocol sends after loadgame.
func (b *Board) SaveData() []field.Value {
	lines := b.saveLines()
	out := make([]field.Value, 0, 13)
	for i, line := range lines {
		if i >= 4 && i <= 11 {
			out = append(out, field.Str(line))
		} else {
			out = append(out, field.Int(bitValue(line)))
		}
	}
	return out
}

func bitValue(s string) int {
	if s == "1" {
		return 1
	}
	return 0
}

func (b *Board) saveLines() []string {
	lines := make([]string, 0, 13)
	lines = append(lines,
		boolBit(b.castling.White.Kingside),
		boolBit(b.castling.Black.Kingside),
		boolBit(b.castling.White.Queenside),
		boolBit(b.castling.Black.Queenside),
	)

	ep, hasEP := b.EnPassant()
	for i := 0; i < 8; i++ {
		row := 7 - i
		var sb strings.Builder
		for col := 0; col < 8; col++ {
			sq := NewSquare(row, col)
			switch {
			case hasEP && ep == sq:
				sb.WriteRune(rune(EnPassantMarker))
			default:
				if p := b.at(sq); p != nil {
					sb.WriteRune(p.Char())
				} else {
					sb.WriteRune(rune(EmptyMarker))
				}
			}
		}
		lines = append(lines, sb.String())
	}

	turnBit := "0"
	if b.turn == Black {
		turnBit = "1"
	}
	lines = append(lines, turnBit)

	return lines
}

func boolBit(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func parseBit(s, what string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("invalid %s bit: %q", what, s)
	}
}

func readExactly(r io.Reader, n int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	lines := make([]string, 0, n)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read board file: %w", err)
	}
	if len(lines) != n {
		return nil, fmt.Errorf("board file: want %d lines, got %d", n, len(lines))
	}
	return lines, nil
}
