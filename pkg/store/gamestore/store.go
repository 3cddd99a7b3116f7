// Package gamestore implements the in-memory game store: a gameID -> *game.Game map, a
// per-user index, an open-game index, unsaved-set tracking, and the precondition chain
// shared by every game-mutating operation. Like pkg/store/account, every public method
// holds the store's lock for its entire duration, including nested disk writes.
package gamestore

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/corrchess/server/pkg/board"
	"github.com/corrchess/server/pkg/game"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
	"golang.org/x/exp/slices"
)

// requestsBeforeSave is the mutation count that triggers a full-rewrite batched save.
const requestsBeforeSave = 20

const (
	activeGamesFile   = "active_games.csv"
	gamesDir          = "games"
	standardBoardDir  = "standard"
	standardBoardFile = "new_board.txt"
	disasterSuffix    = ".disaster"
)

// Store is the game store. Board state lives inside each *game.Game; the store only adds
// the indices and persistence machinery around it.
type Store struct {
	mu sync.Mutex

	root string // persistence root directory

	games    map[string]*game.Game
	byUser   map[string]map[string]bool // username -> set of game IDs
	openGame map[string]bool            // game IDs with open=true

	unsaved       map[string]bool // game IDs mutated since the last save
	sinceLastSave int
}

// New returns a store rooted at dir, loading any previously persisted games. A missing
// active_games.csv means a fresh install; the games/ subdirectory is created if absent.
func New(ctx context.Context, dir string) (*Store, error) {
	s := &Store{
		root:     dir,
		games:    map[string]*game.Game{},
		byUser:   map[string]map[string]bool{},
		openGame: map[string]bool{},
		unsaved:  map[string]bool{},
	}

	if err := os.MkdirAll(filepath.Join(dir, gamesDir, standardBoardDir), 0755); err != nil {
		return nil, fmt.Errorf("create games directory: %w", err)
	}
	if err := s.ensureStandardBoard(); err != nil {
		return nil, err
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	logw.Infof(ctx, "Loaded %v games from %v", len(s.games), dir)
	return s, nil
}

// standardBoardPath is the operator-editable template new games are dealt from (spec.md
// §6.3): serverdata/games/standard/new_board.txt, in the same 13-line board-file format as
// every other board file.
func (s *Store) standardBoardPath() string {
	return filepath.Join(s.root, gamesDir, standardBoardDir, standardBoardFile)
}

// ensureStandardBoard installs the standard-board template on first boot, if it isn't
// already there. Later boots leave an operator's edits alone.
func (s *Store) ensureStandardBoard() error {
	path := s.standardBoardPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %v: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %v: %w", path, err)
	}
	defer f.Close()

	if err := board.NewStandardBoard().SaveTo(f); err != nil {
		return fmt.Errorf("write %v: %w", path, err)
	}
	return nil
}

// loadStandardBoard returns a fresh board loaded from the standard-board template, one per
// call since board.Board is mutable and never shared between games.
func (s *Store) loadStandardBoard() (*board.Board, error) {
	f, err := os.Open(s.standardBoardPath())
	if err != nil {
		return nil, fmt.Errorf("open %v: %w", s.standardBoardPath(), err)
	}
	defer f.Close()
	return board.Load(f)
}

func (s *Store) load() error {
	f, err := os.Open(filepath.Join(s.root, activeGamesFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %v: %w", activeGamesFile, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		snap, err := game.DecodeCSVRow(line)
		if err != nil {
			return fmt.Errorf("%v: %w", activeGamesFile, err)
		}

		b, err := s.loadBoard(snap.GameID)
		if err != nil {
			return fmt.Errorf("load board for %v: %w", snap.GameID, err)
		}

		s.index(gameFromSnapshot(snap, b))
	}
	return scanner.Err()
}

func gameFromSnapshot(snap game.Snapshot, b *board.Board) *game.Game {
	g := &game.Game{
		ID:              snap.GameID,
		White:           someIfNotEmpty(snap.White),
		Black:           someIfNotEmpty(snap.Black),
		Open:            snap.Open,
		State:           snap.State,
		TurnNumber:      snap.TurnNumber,
		WhiteArchived:   snap.WhiteArchived,
		BlackArchived:   snap.BlackArchived,
		DrawOffered:     snap.DrawOffered,
		Drawn:           snap.Drawn,
		Winner:          someIfNotEmpty(snap.Winner),
		Forfeit:         snap.Forfeit,
		WhiteCheck:      snap.WhiteCheck,
		BlackCheck:      snap.BlackCheck,
		PromotionNeeded: snap.PromotionNeeded,
		Board:           b,
	}
	return g
}

func someIfNotEmpty(s string) lang.Optional[string] {
	if s == "" {
		return lang.Optional[string]{}
	}
	return lang.Some(s)
}

func (s *Store) loadBoard(gameID string) (*board.Board, error) {
	f, err := os.Open(s.boardPath(gameID))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return board.Load(f)
}

func (s *Store) boardPath(gameID string) string {
	return filepath.Join(s.root, gamesDir, gameID+".txt")
}

func (s *Store) index(g *game.Game) {
	s.games[g.ID] = g
	if w, ok := g.White.V(); ok {
		s.addUserGame(w, g.ID)
	}
	if b, ok := g.Black.V(); ok {
		s.addUserGame(b, g.ID)
	}
	if g.Open {
		s.openGame[g.ID] = true
	}
}

func (s *Store) addUserGame(username, gameID string) {
	set, ok := s.byUser[username]
	if !ok {
		set = map[string]bool{}
		s.byUser[username] = set
	}
	set[gameID] = true
}

// ValidGameID reports whether id is non-empty and free of commas and whitespace, the same
// rule the wire protocol applies to a gameID argument before even consulting the store.
func ValidGameID(id string) bool {
	if id == "" {
		return false
	}
	return !strings.ContainsAny(id, ", \t\r\n")
}

// GetGamesFor returns every game username is a player in, sorted by game ID for
// deterministic wire output.
func (s *Store) GetGamesFor(username string) []game.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotsFor(s.byUser[username])
}

// OpenGames returns every open, unjoined game, sorted by game ID.
func (s *Store) OpenGames() []game.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotsFor(s.openGame)
}

func (s *Store) snapshotsFor(ids map[string]bool) []game.Snapshot {
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	slices.Sort(sorted)

	out := make([]game.Snapshot, 0, len(sorted))
	for _, id := range sorted {
		out = append(out, s.games[id].Snapshot())
	}
	return out
}

// GameDataResult is the outcome of GameData.
type GameDataResult int

const (
	GameDataOk GameDataResult = iota
	GameDataGameMissing
	GameDataNotInGame
)

// GameData returns the snapshot for id, provided username is one of its players.
func (s *Store) GameData(id, username string) (game.Snapshot, GameDataResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return game.Snapshot{}, GameDataGameMissing
	}
	if !g.Player(username) {
		return game.Snapshot{}, GameDataNotInGame
	}
	return g.Snapshot(), GameDataOk
}

// CanLoadResult is the outcome of CanLoad.
type CanLoadResult int

const (
	CanLoadOk CanLoadResult = iota
	CanLoadGameMissing
	CanLoadNotInGame
)

// CanLoad reports whether username may load id. Deliberately returns CanLoadGameMissing
// (loadgame's own taxonomy), never a different verb's constant, for an unknown id --
// spec.md §9 calls out exactly this as a bug in the source to not repeat.
func (s *Store) CanLoad(id, username string) CanLoadResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return CanLoadGameMissing
	}
	if !g.Player(username) {
		return CanLoadNotInGame
	}
	return CanLoadOk
}

// LoadBoard returns a copy of the board for id, assuming CanLoad already returned
// CanLoadOk. The copy is taken under the store's lock, so callers may read it freely.
func (s *Store) LoadBoard(id string) (*board.Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return nil, false
	}
	var buf bytes.Buffer
	if err := g.Board.SaveTo(&buf); err != nil {
		return nil, false
	}
	b, err := board.Load(&buf)
	if err != nil {
		return nil, false
	}
	return b, true
}

// CreateResult is the outcome of Create.
type CreateResult int

const (
	CreateOk CreateResult = iota
	CreateIdInUse
	CreateServerError
)

// Create makes a new game with id owned by username (as White), dealing the board from the
// standard-board template (spec.md §6.3) rather than a hardcoded position.
func (s *Store) Create(ctx context.Context, id, username string, open bool) CreateResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[id]; exists {
		return CreateIdInUse
	}

	b, err := s.loadStandardBoard()
	if err != nil {
		logw.Errorf(ctx, "gamestore: load standard board template: %v", err)
		return CreateServerError
	}

	s.index(game.NewOpenGame(id, username, open, b))
	s.markUnsaved(ctx, id)
	return CreateOk
}

// JoinResult is the outcome of Join.
type JoinResult int

const (
	JoinOk JoinResult = iota
	JoinGameMissing
	JoinFull
	JoinAlreadyIn
)

// Join seats username as Black in an open game, clearing its open flag. Linearizable: two
// concurrent Join calls against the same game can never both return JoinOk, since the whole
// operation runs under the store's lock.
func (s *Store) Join(ctx context.Context, id, username string) JoinResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return JoinGameMissing
	}
	if g.Player(username) {
		return JoinAlreadyIn
	}
	if !g.Open {
		return JoinFull
	}

	g.Black = lang.Some(username)
	g.Open = false
	delete(s.openGame, id)
	s.addUserGame(username, id)
	s.markUnsaved(ctx, id)
	return JoinOk
}

// preStage names which step of the shared precondition chain failed, or that every
// applicable step passed.
type preStage int

const (
	preOk preStage = iota
	preServerError
	preGameMissing
	preNotInGame
	preNoOpponent
	preGameOver
	preNotYourTurn
	preMustPromote
	preNoPromotionPending
	preRespondToDraw
)

// promoteMode controls how step 7 (pending promotion) is interpreted: every op except
// promote requires the caller does NOT owe a promotion; promote requires the opposite.
type promoteMode int

const (
	promotionMustNotBePending promoteMode = iota
	promotionMustBePending
)

// checkDrawOffer controls whether step 8 (pending draw offer) is enforced. Only move
// enforces it; promote, draw, reject, forfeit, archive and restore each handle (or are
// unaffected by) a draw offer in their own right and skip the generic check.
type checkDrawOffer bool

const (
	enforceDrawCheck checkDrawOffer = true
	skipDrawCheck    checkDrawOffer = false
)

// precondition runs steps 1-8 of the shared chain (skipping 4-8 when skipTurnChecks is
// true, for archive/restore) and returns the game plus the first failing stage, or preOk.
// accountExists is passed in by the caller (gamestore has no dependency on pkg/store/account).
func (s *Store) precondition(id, username string, accountExists bool, skipTurnChecks bool, pm promoteMode, cd checkDrawOffer) (*game.Game, preStage) {
	if !accountExists {
		return nil, preServerError
	}
	g, ok := s.games[id]
	if !ok {
		return nil, preGameMissing
	}
	if !g.Player(username) {
		return nil, preNotInGame
	}
	if skipTurnChecks {
		return g, preOk
	}

	if !g.HasOpponent() {
		return nil, preNoOpponent
	}
	if g.Terminal() {
		return nil, preGameOver
	}

	color, _ := g.ColorOf(username)
	if color != g.State {
		return nil, preNotYourTurn
	}

	owesPromotion := g.PromotionNeeded
	switch pm {
	case promotionMustNotBePending:
		if owesPromotion {
			return nil, preMustPromote
		}
	case promotionMustBePending:
		if !owesPromotion {
			return nil, preNoPromotionPending
		}
	}

	if cd == enforceDrawCheck && g.DrawOffered {
		return nil, preRespondToDraw
	}

	return g, preOk
}

// MoveResult is the outcome of MakeMove.
type MoveResult int

const (
	MoveSuccess MoveResult = iota
	MoveSuccessPromotionNeeded
	MoveGameMissing
	MoveNotInGame
	MoveNoOpponent
	MoveGameOver
	MoveNotYourTurn
	MoveMustPromote
	MoveRespondToDraw
	MoveInvalid
	MoveServerError
)

// MakeMove runs the full precondition chain, then delegates to the board and updates the
// game's derived fields (turn number, check flags, winner/drawn) per the move-sequencing
// rules in spec.md §4.3.
func (s *Store) MakeMove(ctx context.Context, id string, src, dest board.Square, username string, accountExists bool) MoveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, stage := s.precondition(id, username, accountExists, false, promotionMustNotBePending, enforceDrawCheck)
	if stage != preOk {
		return movePreFailure(stage)
	}

	mover, _ := g.ColorOf(username)

	switch outcome := g.Board.Move(src, dest); outcome {
	case board.Invalid:
		return MoveInvalid
	case board.WrongTurn:
		// Precondition already confirmed it's this color's turn; a mismatch here means the
		// engine and the game record have drifted out of sync.
		logw.Errorf(ctx, "gamestore: board rejected %v as wrong-turn for %v in %v despite passing preconditions", board.Move{From: src, To: dest}, username, id)
		return MoveServerError
	case board.MustPromoteFirst:
		return MoveMustPromote
	case board.MovedPromotionRequired:
		g.PromotionNeeded = true
		s.markUnsaved(ctx, id)
		return MoveSuccessPromotionNeeded
	case board.MovedNormally:
		s.applyMoveResult(g, mover)
		s.markUnsaved(ctx, id)
		return MoveSuccess
	default:
		logw.Errorf(ctx, "gamestore: unhandled move outcome %v", outcome)
		return MoveServerError
	}
}

func movePreFailure(stage preStage) MoveResult {
	switch stage {
	case preServerError:
		return MoveServerError
	case preGameMissing:
		return MoveGameMissing
	case preNotInGame:
		return MoveNotInGame
	case preNoOpponent:
		return MoveNoOpponent
	case preGameOver:
		return MoveGameOver
	case preNotYourTurn:
		return MoveNotYourTurn
	case preMustPromote:
		return MoveMustPromote
	case preRespondToDraw:
		return MoveRespondToDraw
	default:
		return MoveServerError
	}
}

// applyMoveResult updates check flags, turn number and terminal state after a
// board.MovedNormally outcome, per spec.md §4.3's move-sequencing rules. mover is the color
// that just moved (the board has already flipped Turn() to the opponent).
func (s *Store) applyMoveResult(g *game.Game, mover board.Color) {
	opponent := mover.Opponent()

	if mover == board.Black {
		g.TurnNumber++
	}

	switch {
	case g.Board.IsCheckmate(opponent):
		g.Winner = lang.Some(playerName(g, mover))
	case g.Board.IsStalemate():
		g.Drawn = true
	default:
		g.State = opponent
	}

	g.WhiteCheck = g.Board.IsCheck(board.White)
	g.BlackCheck = g.Board.IsCheck(board.Black)
}

func playerName(g *game.Game, c board.Color) string {
	if c == board.White {
		name, _ := g.White.V()
		return name
	}
	name, _ := g.Black.V()
	return name
}

// PromoteResult is the outcome of Promote.
type PromoteResult int

const (
	PromoteSuccess PromoteResult = iota
	PromoteGameMissing
	PromoteNotInGame
	PromoteNoOpponent
	PromoteGameOver
	PromoteNotYourTurn
	PromoteNoPromotionPending
	PromoteCharInvalid
	PromoteServerError
)

// Promote resolves a pending promotion, then runs the same post-move bookkeeping as
// MakeMove (turn number, checkmate/stalemate, check flags), since spec.md §9 requires a
// promotion that completes Black's half-move to increment the turn counter exactly like
// any other move.
func (s *Store) Promote(ctx context.Context, id string, kindChar rune, username string, accountExists bool) PromoteResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, stage := s.precondition(id, username, accountExists, false, promotionMustBePending, skipDrawCheck)
	if stage != preOk {
		return promotePreFailure(stage)
	}

	mover, _ := g.ColorOf(username)

	switch outcome := g.Board.Promote(kindChar); outcome {
	case board.NoPromotionPending:
		return PromoteNoPromotionPending
	case board.InvalidPieceChar:
		return PromoteCharInvalid
	case board.PromotedOk:
		g.PromotionNeeded = false
		s.applyMoveResult(g, mover)
		s.markUnsaved(ctx, id)
		return PromoteSuccess
	default:
		return PromoteServerError
	}
}

func promotePreFailure(stage preStage) PromoteResult {
	switch stage {
	case preServerError:
		return PromoteServerError
	case preGameMissing:
		return PromoteGameMissing
	case preNotInGame:
		return PromoteNotInGame
	case preNoOpponent:
		return PromoteNoOpponent
	case preGameOver:
		return PromoteGameOver
	case preNotYourTurn:
		return PromoteNotYourTurn
	case preNoPromotionPending:
		return PromoteNoPromotionPending
	default:
		return PromoteServerError
	}
}

// DrawResult is the outcome of Draw.
type DrawResult int

const (
	DrawSuccess DrawResult = iota
	DrawGameMissing
	DrawNotInGame
	DrawNoOpponent
	DrawGameOver
	DrawNotYourTurn
	DrawMustPromote
	DrawServerError
)

// Draw implements the draw state machine: the first call offers a draw and passes the turn
// to the opponent; the opponent's own call to Draw (while an offer stands) accepts it.
func (s *Store) Draw(ctx context.Context, id, username string, accountExists bool) DrawResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, stage := s.precondition(id, username, accountExists, false, promotionMustNotBePending, skipDrawCheck)
	if stage != preOk {
		return drawPreFailure(stage)
	}

	if g.DrawOffered {
		g.DrawOffered = false
		g.Drawn = true
	} else {
		g.DrawOffered = true
		g.State = g.State.Opponent()
	}
	s.markUnsaved(ctx, id)
	return DrawSuccess
}

func drawPreFailure(stage preStage) DrawResult {
	switch stage {
	case preServerError:
		return DrawServerError
	case preGameMissing:
		return DrawGameMissing
	case preNotInGame:
		return DrawNotInGame
	case preNoOpponent:
		return DrawNoOpponent
	case preGameOver:
		return DrawGameOver
	case preNotYourTurn:
		return DrawNotYourTurn
	case preMustPromote:
		return DrawMustPromote
	default:
		return DrawServerError
	}
}

// RejectResult is the outcome of Reject.
type RejectResult int

const (
	RejectSuccess RejectResult = iota
	RejectGameMissing
	RejectNotInGame
	RejectNoOpponent
	RejectGameOver
	RejectNotYourTurn
	RejectMustPromote
	RejectNoDrawOffer
	RejectServerError
)

// Reject declines a standing draw offer, returning the turn to the original offerer.
func (s *Store) Reject(ctx context.Context, id, username string, accountExists bool) RejectResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, stage := s.precondition(id, username, accountExists, false, promotionMustNotBePending, skipDrawCheck)
	if stage != preOk {
		return rejectPreFailure(stage)
	}
	if !g.DrawOffered {
		return RejectNoDrawOffer
	}

	g.DrawOffered = false
	g.State = g.State.Opponent()
	s.markUnsaved(ctx, id)
	return RejectSuccess
}

func rejectPreFailure(stage preStage) RejectResult {
	switch stage {
	case preServerError:
		return RejectServerError
	case preGameMissing:
		return RejectGameMissing
	case preNotInGame:
		return RejectNotInGame
	case preNoOpponent:
		return RejectNoOpponent
	case preGameOver:
		return RejectGameOver
	case preNotYourTurn:
		return RejectNotYourTurn
	case preMustPromote:
		return RejectMustPromote
	default:
		return RejectServerError
	}
}

// ForfeitResult is the outcome of Forfeit.
type ForfeitResult int

const (
	ForfeitSuccess ForfeitResult = iota
	ForfeitGameMissing
	ForfeitNotInGame
	ForfeitNoOpponent
	ForfeitGameOver
	ForfeitNotYourTurn
	ForfeitMustPromote
	ForfeitServerError
)

// Forfeit ends the game immediately in the caller's opponent's favor. Its taxonomy mirrors
// Draw's (spec.md §6.2: "draw / reject / forfeit: symmetric taxonomy"), so it runs the same
// steps 1-7 of the precondition chain -- including whose turn it is and any pending
// promotion -- before conceding.
func (s *Store) Forfeit(ctx context.Context, id, username string, accountExists bool) ForfeitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, stage := s.precondition(id, username, accountExists, false, promotionMustNotBePending, skipDrawCheck)
	if stage != preOk {
		return forfeitPreFailure(stage)
	}

	mover, _ := g.ColorOf(username)
	g.Winner = lang.Some(playerName(g, mover.Opponent()))
	g.Forfeit = true
	s.markUnsaved(ctx, id)
	return ForfeitSuccess
}

func forfeitPreFailure(stage preStage) ForfeitResult {
	switch stage {
	case preServerError:
		return ForfeitServerError
	case preGameMissing:
		return ForfeitGameMissing
	case preNotInGame:
		return ForfeitNotInGame
	case preNoOpponent:
		return ForfeitNoOpponent
	case preGameOver:
		return ForfeitGameOver
	case preNotYourTurn:
		return ForfeitNotYourTurn
	case preMustPromote:
		return ForfeitMustPromote
	default:
		return ForfeitServerError
	}
}

// ArchiveResult is the outcome of Archive and Restore.
type ArchiveResult int

const (
	ArchiveSuccess ArchiveResult = iota
	ArchiveGameMissing
	ArchiveNotInGame
	ArchiveServerError
)

// Archive sets username's archive bit on id; Restore clears it. Both skip steps 4-8 of the
// precondition chain: archiving is a per-user metadata bit allowed on any game the user is
// in, including terminal games.
func (s *Store) Archive(ctx context.Context, id, username string, accountExists bool) ArchiveResult {
	return s.setArchived(ctx, id, username, accountExists, true)
}

func (s *Store) Restore(ctx context.Context, id, username string, accountExists bool) ArchiveResult {
	return s.setArchived(ctx, id, username, accountExists, false)
}

func (s *Store) setArchived(ctx context.Context, id, username string, accountExists bool, archived bool) ArchiveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, stage := s.precondition(id, username, accountExists, true, promotionMustNotBePending, skipDrawCheck)
	if stage != preOk {
		return archivePreFailure(stage)
	}

	g.SetArchived(username, archived)
	s.markUnsaved(ctx, id)
	return ArchiveSuccess
}

func archivePreFailure(stage preStage) ArchiveResult {
	switch stage {
	case preServerError:
		return ArchiveServerError
	case preGameMissing:
		return ArchiveGameMissing
	case preNotInGame:
		return ArchiveNotInGame
	default:
		return ArchiveServerError
	}
}

// markUnsaved records id as mutated and ticks the save counter, flushing a full batched
// save once requestsBeforeSave mutations have accumulated. Must be called with s.mu held.
func (s *Store) markUnsaved(ctx context.Context, id string) {
	s.unsaved[id] = true
	s.sinceLastSave++
	if s.sinceLastSave >= requestsBeforeSave {
		s.save(ctx)
	}
}

// Save flushes every unsaved game to disk unconditionally; called from the shutdown hook.
func (s *Store) Save(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save(ctx)
}

// save performs a full rewrite of active_games.csv plus a write of every unsaved board
// file. Must be called with s.mu held. On failure the affected games stay in the unsaved
// set and a disaster dump of the CSV rewrite is attempted.
func (s *Store) save(ctx context.Context) {
	for id := range s.unsaved {
		g, ok := s.games[id]
		if !ok {
			continue
		}
		if err := s.saveBoard(g); err != nil {
			logw.Errorf(ctx, "gamestore: save board for %v: %v", id, err)
			continue
		}
		delete(s.unsaved, id)
	}
	s.sinceLastSave = 0

	if err := s.saveActiveGames(); err != nil {
		logw.Errorf(ctx, "gamestore: save %v: %v", activeGamesFile, err)
		s.dumpActiveGames(ctx)
	}
}

func (s *Store) saveBoard(g *game.Game) error {
	f, err := os.Create(s.boardPath(g.ID))
	if err != nil {
		return err
	}
	defer f.Close()
	return g.Board.SaveTo(f)
}

func (s *Store) saveActiveGames() error {
	path := filepath.Join(s.root, activeGamesFile)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, row := range s.activeGamesRows() {
		if _, err := fmt.Fprintln(w, row); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (s *Store) activeGamesRows() []string {
	ids := make([]string, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	rows := make([]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, s.games[id].Snapshot().EncodeCSV())
	}
	return rows
}

// dumpActiveGames emits the CSV rewrite that would have been written, to the error log, so
// a human can recover state after a persistence failure. Must be called with s.mu held.
func (s *Store) dumpActiveGames(ctx context.Context) {
	rows := s.activeGamesRows()
	dump := strings.Join(rows, "\n")

	path := filepath.Join(s.root, activeGamesFile+disasterSuffix)
	if err := os.WriteFile(path, []byte(dump+"\n"), 0644); err != nil {
		logw.Errorf(ctx, "gamestore: disaster dump to %v failed: %v; active games follow:\n%v", path, err, dump)
		return
	}
	logw.Errorf(ctx, "gamestore: wrote disaster dump of %d games to %v", len(rows), path)
}
