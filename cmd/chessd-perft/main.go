// chessd-perft is a movegen debugging tool. See: https://www.chessprogramming.org/Perft_Results.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/corrchess/server/pkg/board"
	"github.com/seekerror/logw"
)

var (
	depth     = flag.Int("depth", 4, "Search depth")
	boardFile = flag.String("board", "", "Board file in the server's 13-line format (default to the standard starting position)")
	divide    = flag.Bool("divide", false, "Divide counts by initial move")
)

func main() {
	ctx := context.Background()
	flag.Parse()

	b, err := loadBoard(*boardFile)
	if err != nil {
		logw.Exitf(ctx, "Invalid board %v: %v", *boardFile, err)
	}

	for i := 1; i <= *depth; i++ {
		start := time.Now()
		nodes := search(b, i, *divide && i == *depth)
		duration := time.Since(start)

		println(fmt.Sprintf("perft,%v,%v,%v,%v", *boardFile, i, nodes, duration.Microseconds()))
	}
}

func loadBoard(path string) (*board.Board, error) {
	if path == "" {
		return board.NewStandardBoard(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return board.Load(f)
}

// cloneBoard copies b through its own board-file codec, the only public way to duplicate a
// Board: board.Board keeps no exported way to snapshot the grid directly, since callers are
// expected to persist it instead.
func cloneBoard(b *board.Board) *board.Board {
	var buf bytes.Buffer
	if err := b.SaveTo(&buf); err != nil {
		panic(err)
	}
	clone, err := board.Load(&buf)
	if err != nil {
		panic(err)
	}
	return clone
}

func search(b *board.Board, depth int, d bool) int64 {
	if depth == 0 {
		return 1
	}

	var nodes int64
	for _, m := range b.LegalMoves(b.Turn()) {
		clone := cloneBoard(b)
		if clone.Move(m.From, m.To) == board.MovedPromotionRequired {
			clone.Promote('q')
		}

		count := search(clone, depth-1, false)
		if d {
			println(fmt.Sprintf("%v: %v", m, count))
		}
		nodes += count
	}
	return nodes
}
