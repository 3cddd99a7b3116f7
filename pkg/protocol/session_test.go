package protocol_test

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/corrchess/server/pkg/protocol"
	"github.com/corrchess/server/pkg/store/account"
	"github.com/corrchess/server/pkg/store/gamestore"
	"github.com/stretchr/testify/require"
)

// client drives one end of a net.Pipe against a live protocol.Session, reading back the
// wire format exactly as a real client would: a 4-byte big-endian status, optionally
// followed by typed fields (ints or CRLF-terminated strings).
type client struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func newClient(t *testing.T, accounts *account.Store, games *gamestore.Store) *client {
	t.Helper()
	server, local := net.Pipe()
	go protocol.Serve(context.Background(), server, accounts, games)
	t.Cleanup(func() { local.Close() })
	return &client{t: t, conn: local, r: bufio.NewReader(local)}
}

func newStores(t *testing.T) (*account.Store, *gamestore.Store) {
	t.Helper()
	accounts, err := account.New(context.Background(), filepath.Join(t.TempDir(), "accounts.csv"))
	require.NoError(t, err)
	games, err := gamestore.New(context.Background(), t.TempDir())
	require.NoError(t, err)
	return accounts, games
}

func (c *client) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

func (c *client) readInt() int32 {
	c.t.Helper()
	var buf [4]byte
	_, err := io.ReadFull(c.r, buf[:])
	require.NoError(c.t, err)
	return int32(binary.BigEndian.Uint32(buf[:]))
}

func (c *client) readString() string {
	c.t.Helper()
	s, err := c.r.ReadString('\n')
	require.NoError(c.t, err)
	return strings.TrimRight(s, "\r\n")
}

// readGameFields reads the 15 ordered high-level fields sent after loadgame/getgamedata/
// loadgames success, matching game.GameField order.
type gameFields struct {
	gameID, white, black, winner string
	open, state, turn            int32
	whiteArchived, blackArchived int32
	drawOffered, drawn           int32
	forfeit                      int32
	whiteCheck, blackCheck       int32
	promotionNeeded              int32
}

func (c *client) readGameFields() gameFields {
	c.t.Helper()
	var f gameFields
	f.gameID = c.readString()
	f.white = c.readString()
	f.black = c.readString()
	f.open = c.readInt()
	f.state = c.readInt()
	f.turn = c.readInt()
	f.whiteArchived = c.readInt()
	f.blackArchived = c.readInt()
	f.drawOffered = c.readInt()
	f.drawn = c.readInt()
	f.winner = c.readString()
	f.forfeit = c.readInt()
	f.whiteCheck = c.readInt()
	f.blackCheck = c.readInt()
	f.promotionNeeded = c.readInt()
	return f
}

// readBoardFields drains the 13 board-file fields (4 ints, 8 row strings, 1 int) following
// a successful loadgame.
func (c *client) readBoardFields() (castling [4]int32, rows [8]string, sideToMove int32) {
	c.t.Helper()
	for i := range castling {
		castling[i] = c.readInt()
	}
	for i := range rows {
		rows[i] = c.readString()
	}
	sideToMove = c.readInt()
	return
}

func TestCreateAccountThenLogin(t *testing.T) {
	accounts, games := newStores(t)
	c := newClient(t, accounts, games)

	c.send("create alice hunter2")
	require.EqualValues(t, protocol.CreateSuccess, c.readInt())

	c.send("create alice hunter2")
	require.EqualValues(t, protocol.CreateUsernameInUse, c.readInt())

	c.send("login alice wrongpw")
	require.EqualValues(t, protocol.LoginPasswordInvalid, c.readInt())

	c.send("login alice hunter2")
	require.EqualValues(t, protocol.LoginSuccess, c.readInt())
	require.EqualValues(t, 0, c.readInt(), "freshly created account has no games")
}

func TestVerbsRequireLogin(t *testing.T) {
	accounts, games := newStores(t)
	c := newClient(t, accounts, games)

	c.send("creategame g1 1")
	require.EqualValues(t, protocol.NoUser, c.readInt())
}

func TestCreateGameAndLoadGame(t *testing.T) {
	accounts, games := newStores(t)
	c := newClient(t, accounts, games)

	c.send("create alice hunter2")
	require.EqualValues(t, protocol.CreateSuccess, c.readInt())
	c.send("login alice hunter2")
	require.EqualValues(t, protocol.LoginSuccess, c.readInt())
	require.EqualValues(t, 0, c.readInt())

	c.send("creategame g1 1")
	require.EqualValues(t, protocol.CreateGameSuccess, c.readInt())

	c.send("loadgame g1")
	require.EqualValues(t, protocol.LoadGameSuccess, c.readInt())

	fields := c.readGameFields()
	require.Equal(t, "g1", fields.gameID)
	require.Equal(t, "alice", fields.white)
	require.Equal(t, "", fields.black)
	require.EqualValues(t, 1, fields.open)
	require.EqualValues(t, 0, fields.state, "white to move")
	require.EqualValues(t, 1, fields.turn)

	castling, rows, sideToMove := c.readBoardFields()
	require.Equal(t, [4]int32{1, 1, 1, 1}, castling, "fresh board keeps all four castling rights")
	require.Equal(t, "rnbqkbnr", rows[0], "first board line is black's back rank")
	require.Equal(t, "RNBQKBNR", rows[7], "last board line is white's back rank")
	require.EqualValues(t, 0, sideToMove)
}

func TestMoveBeforeOpponentJoinsIsNoOpponent(t *testing.T) {
	accounts, games := newStores(t)
	c := newClient(t, accounts, games)

	c.send("create alice hunter2")
	require.EqualValues(t, protocol.CreateSuccess, c.readInt())
	c.send("login alice hunter2")
	require.EqualValues(t, protocol.LoginSuccess, c.readInt())
	require.EqualValues(t, 0, c.readInt())

	c.send("creategame g1 1")
	require.EqualValues(t, protocol.CreateGameSuccess, c.readInt())

	c.send("move g1 1,4->3,4")
	require.EqualValues(t, protocol.MoveNoOpponent, c.readInt())
}

func TestMalformedLineIsFormatInvalid(t *testing.T) {
	accounts, games := newStores(t)
	c := newClient(t, accounts, games)

	c.send("create alice")
	require.EqualValues(t, protocol.FormatInvalid, c.readInt())

	c.send("bogusverb whatever")
	require.EqualValues(t, protocol.FormatInvalid, c.readInt())
}

func TestFoolsMateEndToEnd(t *testing.T) {
	accounts, games := newStores(t)
	white := newClient(t, accounts, games)
	black := newClient(t, accounts, games)

	white.send("create w pw")
	require.EqualValues(t, protocol.CreateSuccess, white.readInt())
	white.send("login w pw")
	require.EqualValues(t, protocol.LoginSuccess, white.readInt())
	require.EqualValues(t, 0, white.readInt())

	black.send("create b pw")
	require.EqualValues(t, protocol.CreateSuccess, black.readInt())
	black.send("login b pw")
	require.EqualValues(t, protocol.LoginSuccess, black.readInt())
	require.EqualValues(t, 0, black.readInt())

	white.send("creategame fm 1")
	require.EqualValues(t, protocol.CreateGameSuccess, white.readInt())
	black.send("joingame fm")
	require.EqualValues(t, protocol.JoinGameSuccess, black.readInt())

	white.send("move fm 1,5->2,5")
	require.EqualValues(t, protocol.MoveSuccess, white.readInt())
	black.send("move fm 6,4->4,4")
	require.EqualValues(t, protocol.MoveSuccess, black.readInt())
	white.send("move fm 1,6->3,6")
	require.EqualValues(t, protocol.MoveSuccess, white.readInt())
	black.send("move fm 7,3->3,7")
	require.EqualValues(t, protocol.MoveSuccess, black.readInt())

	white.send("getgamedata fm")
	require.EqualValues(t, protocol.GetGameDataSuccess, white.readInt())
	fields := white.readGameFields()
	require.Equal(t, "b", fields.winner)
	require.EqualValues(t, 0, fields.forfeit)
	require.EqualValues(t, 1, fields.whiteCheck)
	require.EqualValues(t, 0, fields.blackCheck)
}

func TestDrawOfferRejectThenResume(t *testing.T) {
	accounts, games := newStores(t)
	white := newClient(t, accounts, games)
	black := newClient(t, accounts, games)

	white.send("create w pw")
	require.EqualValues(t, protocol.CreateSuccess, white.readInt())
	white.send("login w pw")
	require.EqualValues(t, protocol.LoginSuccess, white.readInt())
	require.EqualValues(t, 0, white.readInt())

	black.send("create b pw")
	require.EqualValues(t, protocol.CreateSuccess, black.readInt())
	black.send("login b pw")
	require.EqualValues(t, protocol.LoginSuccess, black.readInt())
	require.EqualValues(t, 0, black.readInt())

	white.send("creategame g1 1")
	require.EqualValues(t, protocol.CreateGameSuccess, white.readInt())
	black.send("joingame g1")
	require.EqualValues(t, protocol.JoinGameSuccess, black.readInt())

	white.send("draw g1")
	require.EqualValues(t, protocol.DrawSuccess, white.readInt())

	black.send("move g1 6,4->4,4")
	require.EqualValues(t, protocol.MoveRespondToDraw, black.readInt())

	black.send("reject g1")
	require.EqualValues(t, protocol.RejectSuccess, black.readInt())

	white.send("move g1 1,4->3,4")
	require.EqualValues(t, protocol.MoveSuccess, white.readInt())
}

func TestDrawOfferThenAccept(t *testing.T) {
	accounts, games := newStores(t)
	white := newClient(t, accounts, games)
	black := newClient(t, accounts, games)

	white.send("create w pw")
	require.EqualValues(t, protocol.CreateSuccess, white.readInt())
	white.send("login w pw")
	require.EqualValues(t, protocol.LoginSuccess, white.readInt())
	require.EqualValues(t, 0, white.readInt())

	black.send("create b pw")
	require.EqualValues(t, protocol.CreateSuccess, black.readInt())
	black.send("login b pw")
	require.EqualValues(t, protocol.LoginSuccess, black.readInt())
	require.EqualValues(t, 0, black.readInt())

	white.send("creategame g1 1")
	require.EqualValues(t, protocol.CreateGameSuccess, white.readInt())
	black.send("joingame g1")
	require.EqualValues(t, protocol.JoinGameSuccess, black.readInt())

	white.send("draw g1")
	require.EqualValues(t, protocol.DrawSuccess, white.readInt())
	black.send("draw g1")
	require.EqualValues(t, protocol.DrawSuccess, black.readInt())

	white.send("getgamedata g1")
	require.EqualValues(t, protocol.GetGameDataSuccess, white.readInt())
	fields := white.readGameFields()
	require.EqualValues(t, 1, fields.drawn)
	require.EqualValues(t, 0, fields.drawOffered)
}

func TestOpenGamesListsUnjoinedGamesOnly(t *testing.T) {
	accounts, games := newStores(t)
	c := newClient(t, accounts, games)

	c.send("create alice hunter2")
	require.EqualValues(t, protocol.CreateSuccess, c.readInt())
	c.send("login alice hunter2")
	require.EqualValues(t, protocol.LoginSuccess, c.readInt())
	require.EqualValues(t, 0, c.readInt())

	c.send("creategame open1 1")
	require.EqualValues(t, protocol.CreateGameSuccess, c.readInt())
	c.send("creategame closed1 0")
	require.EqualValues(t, protocol.CreateGameSuccess, c.readInt())

	c.send("opengames")
	n := c.readInt()
	require.EqualValues(t, 1, n)
	fields := c.readGameFields()
	require.Equal(t, "open1", fields.gameID)
}

func TestLogoutClearsSession(t *testing.T) {
	accounts, games := newStores(t)
	c := newClient(t, accounts, games)

	c.send("create alice hunter2")
	require.EqualValues(t, protocol.CreateSuccess, c.readInt())
	c.send("login alice hunter2")
	require.EqualValues(t, protocol.LoginSuccess, c.readInt())
	require.EqualValues(t, 0, c.readInt())

	c.send("logout")
	c.send("creategame g1 1")
	require.EqualValues(t, protocol.NoUser, c.readInt())
}
