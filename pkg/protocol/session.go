// Package protocol implements the line-oriented wire protocol described in spec.md §6.1: one
// Session per connection, dispatching LF-terminated request lines to the account and game
// stores and encoding their results as a status code plus an optional payload.
package protocol

import (
	"bufio"
	"context"
	"encoding/binary"
	"net"
	"strconv"
	"strings"

	"github.com/corrchess/server/pkg/board"
	"github.com/corrchess/server/pkg/field"
	"github.com/corrchess/server/pkg/game"
	"github.com/corrchess/server/pkg/store/account"
	"github.com/corrchess/server/pkg/store/gamestore"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
	"github.com/seekerror/stdlib/pkg/util/iox"
)

// readConnLines reads LF-terminated lines from conn into a chan, the same shape as
// engine.ReadStdinLines generalized from stdin to a network connection. The chan closes
// when the connection is gone.
func readConnLines(ctx context.Context, conn net.Conn) <-chan string {
	ret := make(chan string, 1)
	go func() {
		defer close(ret)

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			logw.Debugf(ctx, "<< %v", scanner.Text())
			ret <- scanner.Text()
		}
	}()
	return ret
}

// Session is one client connection: {writer, logged_in_user}. No other mutable state, per
// spec.md §4.4.
type Session struct {
	iox.AsyncCloser

	w *bufio.Writer

	accounts *account.Store
	games    *gamestore.Store

	loggedInUser lang.Optional[string]
}

// Serve drives conn to completion: reads request lines, dispatches each to the account or
// game store, and writes the response, until the connection closes or a write fails.
func Serve(ctx context.Context, conn net.Conn, accounts *account.Store, games *gamestore.Store) {
	s := &Session{
		AsyncCloser: iox.NewAsyncCloser(),
		w:           bufio.NewWriter(conn),
		accounts:    accounts,
		games:       games,
	}
	defer s.Close()
	defer conn.Close()

	s.process(ctx, readConnLines(ctx, conn))
}

func (s *Session) process(ctx context.Context, in <-chan string) {
	logw.Infof(ctx, "Session started")
	for {
		select {
		case line, ok := <-in:
			if !ok {
				logw.Infof(ctx, "Session input closed")
				return
			}
			if err := s.dispatch(ctx, line); err != nil {
				logw.Debugf(ctx, "Session write failed, closing: %v", err)
				return
			}
		case <-s.Closed():
			return
		}
	}
}

// dispatch handles one request line: parse the verb, run its handler (which buffers a
// status code and, on success, a payload), then flush. A flush failure is a broken pipe --
// the client is gone and the session ends quietly, per spec.md §7 error kind 6.
func (s *Session) dispatch(ctx context.Context, line string) error {
	verb, rest := splitVerb(line)

	switch verb {
	case "login":
		s.handleLogin(rest)
	case "create":
		s.handleCreate(ctx, rest)
	case "creategame":
		s.handleCreateGame(ctx, rest)
	case "joingame":
		s.handleJoinGame(ctx, rest)
	case "loadgame":
		s.handleLoadGame(ctx, rest)
	case "loadgames":
		s.handleLoadGames(rest)
	case "getgamedata":
		s.handleGetGameData(rest)
	case "opengames":
		s.handleOpenGames(rest)
	case "move":
		s.handleMove(ctx, rest)
	case "promote":
		s.handlePromote(ctx, rest)
	case "draw":
		s.handleDraw(ctx, rest)
	case "reject":
		s.handleReject(ctx, rest)
	case "forfeit":
		s.handleForfeit(ctx, rest)
	case "archive":
		s.handleArchive(ctx, rest)
	case "restore":
		s.handleRestore(ctx, rest)
	case "logout":
		if rest != "" {
			s.writeInt(FormatInvalid)
			break
		}
		s.loggedInUser = lang.Optional[string]{}
	default:
		s.writeInt(FormatInvalid)
	}

	return s.w.Flush()
}

func splitVerb(line string) (string, string) {
	line = strings.TrimRight(line, "\r")
	i := strings.IndexByte(line, ' ')
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i+1:])
}

// user returns the logged-in username, writing NoUser and reporting false if none is set.
func (s *Session) user() (string, bool) {
	u, ok := s.loggedInUser.V()
	if !ok {
		s.writeInt(NoUser)
	}
	return u, ok
}

func (s *Session) handleLogin(rest string) {
	args := strings.Fields(rest)
	if len(args) != 2 {
		s.writeInt(FormatInvalid)
		return
	}
	username, password := args[0], args[1]

	exists := s.accounts.UsernameExists(username)
	valid := exists && s.accounts.ValidCredentials(username, password)
	code := loginCode(exists, valid)
	s.writeInt(code)
	if code != LoginSuccess {
		return
	}

	s.loggedInUser = lang.Some(username)
	s.writeSnapshots(s.games.GetGamesFor(username))
}

func (s *Session) handleCreate(ctx context.Context, rest string) {
	args := strings.Fields(rest)
	if len(args) != 2 {
		s.writeInt(FormatInvalid)
		return
	}
	username, password := args[0], args[1]

	if !account.ValidUsername(username) || !account.ValidPassword(password) {
		s.writeInt(CreateFormatInvalid)
		return
	}
	if s.accounts.UsernameExists(username) {
		s.writeInt(CreateUsernameInUse)
		return
	}

	// AddAccount re-validates internally; the checks above exist to produce the verb's own
	// FormatInvalid/UsernameInUse codes rather than a generic failure.
	s.accounts.AddAccount(ctx, username, password)
	s.writeInt(CreateSuccess)
}

func (s *Session) handleCreateGame(ctx context.Context, rest string) {
	username, ok := s.user()
	if !ok {
		return
	}

	args := strings.Fields(rest)
	if len(args) != 2 {
		s.writeInt(FormatInvalid)
		return
	}
	gameID, openFlag := args[0], args[1]

	if !gamestore.ValidGameID(gameID) {
		s.writeInt(CreateGameFormatInvalid)
		return
	}
	var open bool
	switch openFlag {
	case "0":
		open = false
	case "1":
		open = true
	default:
		s.writeInt(CreateGameFormatInvalid)
		return
	}

	result := s.games.Create(ctx, gameID, username, open)
	s.writeInt(createGameCode(result))
}

// createGameCode maps CreateResult onto CreateGame*'s numeric taxonomy without relying on
// iota alignment between the two packages.
func createGameCode(r gamestore.CreateResult) int32 {
	switch r {
	case gamestore.CreateIdInUse:
		return CreateGameIdInUse
	case gamestore.CreateServerError:
		return ServerError
	default:
		return CreateGameSuccess
	}
}

func (s *Session) handleJoinGame(ctx context.Context, rest string) {
	username, ok := s.user()
	if !ok {
		return
	}

	args := strings.Fields(rest)
	if len(args) != 1 {
		s.writeInt(FormatInvalid)
		return
	}

	result := s.games.Join(ctx, args[0], username)
	s.writeInt(joinGameCode(result))
}

func (s *Session) handleLoadGame(ctx context.Context, rest string) {
	username, ok := s.user()
	if !ok {
		return
	}

	args := strings.Fields(rest)
	if len(args) != 1 {
		s.writeInt(FormatInvalid)
		return
	}
	gameID := args[0]

	can := s.games.CanLoad(gameID, username)
	code := loadGameCode(can)
	s.writeInt(code)
	if code != LoadGameSuccess {
		return
	}

	snap, result := s.games.GameData(gameID, username)
	if result != gamestore.GameDataOk {
		logw.Errorf(ctx, "protocol: loadgame %v: CanLoad succeeded but GameData returned %v", gameID, result)
		return
	}
	s.writeSnapshot(snap)

	b, ok := s.games.LoadBoard(gameID)
	if !ok {
		logw.Errorf(ctx, "protocol: loadgame %v: CanLoad succeeded but LoadBoard found nothing", gameID)
		return
	}
	s.writeBoard(b)
}

func (s *Session) handleLoadGames(rest string) {
	username, ok := s.user()
	if !ok {
		return
	}
	if strings.TrimSpace(rest) != "" {
		s.writeInt(FormatInvalid)
		return
	}

	s.writeInt(LoadGamesSuccess)
	s.writeSnapshots(s.games.GetGamesFor(username))
}

func (s *Session) handleGetGameData(rest string) {
	username, ok := s.user()
	if !ok {
		return
	}

	args := strings.Fields(rest)
	if len(args) != 1 {
		s.writeInt(FormatInvalid)
		return
	}

	snap, result := s.games.GameData(args[0], username)
	code := getGameDataCode(result)
	s.writeInt(code)
	if code != GetGameDataSuccess {
		return
	}
	s.writeSnapshot(snap)
}

func (s *Session) handleOpenGames(rest string) {
	_, ok := s.user()
	if !ok {
		return
	}
	if strings.TrimSpace(rest) != "" {
		s.writeInt(FormatInvalid)
		return
	}

	s.writeSnapshots(s.games.OpenGames())
}

func (s *Session) handleMove(ctx context.Context, rest string) {
	username, ok := s.user()
	if !ok {
		return
	}

	args := strings.Fields(rest)
	if len(args) != 2 {
		s.writeInt(FormatInvalid)
		return
	}
	gameID := args[0]

	src, dest, ok := parseMoveCoords(args[1])
	if !ok {
		s.writeInt(FormatInvalid)
		return
	}

	result := s.games.MakeMove(ctx, gameID, src, dest, username, true)
	s.writeInt(moveCode(result))
}

func (s *Session) handlePromote(ctx context.Context, rest string) {
	username, ok := s.user()
	if !ok {
		return
	}

	args := strings.Fields(rest)
	if len(args) != 2 || len([]rune(args[1])) != 1 {
		s.writeInt(FormatInvalid)
		return
	}
	gameID := args[0]
	kind := []rune(args[1])[0]
	if !validKindChar(kind) {
		s.writeInt(FormatInvalid)
		return
	}

	result := s.games.Promote(ctx, gameID, kind, username, true)
	s.writeInt(promoteCode(result))
}

func (s *Session) handleDraw(ctx context.Context, rest string) {
	username, ok := s.user()
	if !ok {
		return
	}
	args := strings.Fields(rest)
	if len(args) != 1 {
		s.writeInt(FormatInvalid)
		return
	}

	result := s.games.Draw(ctx, args[0], username, true)
	s.writeInt(drawCode(result))
}

func (s *Session) handleReject(ctx context.Context, rest string) {
	username, ok := s.user()
	if !ok {
		return
	}
	args := strings.Fields(rest)
	if len(args) != 1 {
		s.writeInt(FormatInvalid)
		return
	}

	result := s.games.Reject(ctx, args[0], username, true)
	s.writeInt(rejectCode(result))
}

func (s *Session) handleForfeit(ctx context.Context, rest string) {
	username, ok := s.user()
	if !ok {
		return
	}
	args := strings.Fields(rest)
	if len(args) != 1 {
		s.writeInt(FormatInvalid)
		return
	}

	result := s.games.Forfeit(ctx, args[0], username, true)
	s.writeInt(forfeitCode(result))
}

func (s *Session) handleArchive(ctx context.Context, rest string) {
	username, ok := s.user()
	if !ok {
		return
	}
	args := strings.Fields(rest)
	if len(args) != 1 {
		s.writeInt(FormatInvalid)
		return
	}

	result := s.games.Archive(ctx, args[0], username, true)
	s.writeInt(archiveCode(result))
}

func (s *Session) handleRestore(ctx context.Context, rest string) {
	username, ok := s.user()
	if !ok {
		return
	}
	args := strings.Fields(rest)
	if len(args) != 1 {
		s.writeInt(FormatInvalid)
		return
	}

	result := s.games.Restore(ctx, args[0], username, true)
	s.writeInt(archiveCode(result))
}

// parseMoveCoords parses "<sr>,<sc>-><dr>,<dc>" with each component a decimal integer 0..=7.
func parseMoveCoords(s string) (board.Square, board.Square, bool) {
	halves := strings.Split(s, "->")
	if len(halves) != 2 {
		return board.Square{}, board.Square{}, false
	}
	src, ok := parseSquare(halves[0])
	if !ok {
		return board.Square{}, board.Square{}, false
	}
	dest, ok := parseSquare(halves[1])
	if !ok {
		return board.Square{}, board.Square{}, false
	}
	return src, dest, true
}

func parseSquare(s string) (board.Square, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return board.Square{}, false
	}
	row, err := strconv.Atoi(parts[0])
	if err != nil || row < 0 || row > 7 {
		return board.Square{}, false
	}
	col, err := strconv.Atoi(parts[1])
	if err != nil || col < 0 || col > 7 {
		return board.Square{}, false
	}
	return board.NewSquare(row, col), true
}

// writeInt writes a status or field integer as a 4-byte big-endian signed value. Errors are
// sticky on s.w (bufio.Writer) and surface from the Flush call in dispatch.
func (s *Session) writeInt(n int32) {
	_ = binary.Write(s.w, binary.BigEndian, n)
}

// writeString writes a field string as raw bytes followed by CRLF.
func (s *Session) writeString(str string) {
	s.w.WriteString(str)
	s.w.WriteString("\r\n")
}

func (s *Session) writeField(f field.Value) {
	if f.IsStr() {
		s.writeString(f.AsStr())
	} else {
		s.writeInt(int32(f.AsInt()))
	}
}

func (s *Session) writeSnapshot(snap game.Snapshot) {
	for _, f := range snap.Fields() {
		s.writeField(f)
	}
}

func (s *Session) writeSnapshots(snaps []game.Snapshot) {
	s.writeInt(int32(len(snaps)))
	for _, snap := range snaps {
		s.writeSnapshot(snap)
	}
}

func (s *Session) writeBoard(b *board.Board) {
	for _, f := range b.SaveData() {
		s.writeField(f)
	}
}
