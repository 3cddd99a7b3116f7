package game_test

import (
	"testing"

	"github.com/corrchess/server/pkg/board"
	"github.com/corrchess/server/pkg/game"
	"github.com/seekerror/stdlib/pkg/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSome(s string) lang.Optional[string] {
	return lang.Some(s)
}

func TestNewOpenGameDefaults(t *testing.T) {
	g := game.NewOpenGame("g1", "alice", true, board.NewStandardBoard())

	assert.True(t, g.Open)
	assert.Equal(t, board.White, g.State)
	assert.EqualValues(t, 1, g.TurnNumber)

	white, ok := g.White.V()
	require.True(t, ok)
	assert.Equal(t, "alice", white)

	_, ok = g.Black.V()
	assert.False(t, ok)
}

func TestPlayerAndColorOf(t *testing.T) {
	g := game.NewOpenGame("g1", "alice", true, board.NewStandardBoard())
	g.Open = false
	g.Black = mustSome("bob")

	assert.True(t, g.Player("alice"))
	assert.True(t, g.Player("bob"))
	assert.False(t, g.Player("carol"))

	c, ok := g.ColorOf("bob")
	require.True(t, ok)
	assert.Equal(t, board.Black, c)

	assert.True(t, g.HasOpponent())
}

func TestSnapshotCSVRoundTrip(t *testing.T) {
	g := game.NewOpenGame("g1", "alice", true, board.NewStandardBoard())
	g.Black = mustSome("bob")
	g.Open = false
	g.WhiteCheck = true
	g.Winner = mustSome("alice")

	row := g.Snapshot().EncodeCSV()

	decoded, err := game.DecodeCSVRow(row)
	require.NoError(t, err)
	assert.Equal(t, "g1", decoded.GameID)
	assert.Equal(t, "alice", decoded.White)
	assert.Equal(t, "bob", decoded.Black)
	assert.False(t, decoded.Open)
	assert.True(t, decoded.WhiteCheck)
	assert.Equal(t, "alice", decoded.Winner)
}

func TestDecodeCSVRowWrongFieldCount(t *testing.T) {
	_, err := game.DecodeCSVRow("g1,alice")
	assert.Error(t, err)
}

func TestTerminalAndArchived(t *testing.T) {
	g := game.NewOpenGame("g1", "alice", true, board.NewStandardBoard())
	g.Black = mustSome("bob")
	assert.False(t, g.Terminal())

	g.Drawn = true
	assert.True(t, g.Terminal())

	g.SetArchived("alice", true)
	assert.True(t, g.Archived("alice"))
	assert.False(t, g.Archived("bob"))
}
