package protocol

import (
	"github.com/corrchess/server/pkg/store/gamestore"
)

// Global codes apply regardless of verb: a line whose verb isn't recognized, or whose
// argument count doesn't match the verb's schema, gets FormatInvalid; a verb that requires a
// logged-in user gets NoUser when none is set; an integrity violation (a precondition the
// store itself failed to uphold) gets ServerError.
const (
	ServerError   int32 = -1
	FormatInvalid int32 = -2
	NoUser        int32 = -3
)

const (
	LoginSuccess         int32 = 0
	LoginUsernameUnknown int32 = 1
	LoginPasswordInvalid int32 = 2
)

func loginCode(usernameExists, validCredentials bool) int32 {
	switch {
	case !usernameExists:
		return LoginUsernameUnknown
	case !validCredentials:
		return LoginPasswordInvalid
	default:
		return LoginSuccess
	}
}

const (
	CreateSuccess       int32 = 0
	CreateUsernameInUse int32 = 1
	// CreateFormatInvalid is create's own taxonomy entry (spec.md §6.2), distinct from the
	// protocol-wide FormatInvalid: it covers a well-formed two-token line whose username or
	// password fails the account store's character rules.
	CreateFormatInvalid int32 = 2
)

const (
	CreateGameSuccess       int32 = 0
	CreateGameIdInUse       int32 = 1
	CreateGameFormatInvalid int32 = 2
)

const (
	JoinGameSuccess     int32 = 0
	JoinGameGameMissing int32 = 1
	JoinGameFull        int32 = 2
	JoinGameAlreadyIn   int32 = 3
)

func joinGameCode(r gamestore.JoinResult) int32 {
	switch r {
	case gamestore.JoinOk:
		return JoinGameSuccess
	case gamestore.JoinGameMissing:
		return JoinGameGameMissing
	case gamestore.JoinFull:
		return JoinGameFull
	case gamestore.JoinAlreadyIn:
		return JoinGameAlreadyIn
	default:
		return ServerError
	}
}

const (
	LoadGameSuccess     int32 = 0
	LoadGameGameMissing int32 = 1
	LoadGameNotInGame   int32 = 2
)

// loadGameCode translates CanLoad's own result, never another verb's constant -- spec.md §9
// calls out the source's habit of returning a different verb's GameMissing code here as a
// bug to avoid.
func loadGameCode(r gamestore.CanLoadResult) int32 {
	switch r {
	case gamestore.CanLoadOk:
		return LoadGameSuccess
	case gamestore.CanLoadGameMissing:
		return LoadGameGameMissing
	case gamestore.CanLoadNotInGame:
		return LoadGameNotInGame
	default:
		return ServerError
	}
}

const LoadGamesSuccess int32 = 0

const (
	GetGameDataSuccess     int32 = 0
	GetGameDataGameMissing int32 = 1
	GetGameDataNotInGame   int32 = 2
)

func getGameDataCode(r gamestore.GameDataResult) int32 {
	switch r {
	case gamestore.GameDataOk:
		return GetGameDataSuccess
	case gamestore.GameDataGameMissing:
		return GetGameDataGameMissing
	case gamestore.GameDataNotInGame:
		return GetGameDataNotInGame
	default:
		return ServerError
	}
}

// move's SuccessPromotionNeeded sits outside the small-int taxonomy by design (spec.md
// §6.2: "implementation-chosen code distinct from success").
const (
	MoveSuccess                int32 = 0
	MoveSuccessPromotionNeeded int32 = -4
	MoveGameMissing            int32 = 1
	MoveNotInGame              int32 = 2
	MoveNoOpponent             int32 = 3
	MoveGameOver               int32 = 4
	MoveNotYourTurn            int32 = 5
	MoveMustPromote            int32 = 6
	MoveRespondToDraw          int32 = 7
	MoveInvalid                int32 = 8
)

func moveCode(r gamestore.MoveResult) int32 {
	switch r {
	case gamestore.MoveSuccess:
		return MoveSuccess
	case gamestore.MoveSuccessPromotionNeeded:
		return MoveSuccessPromotionNeeded
	case gamestore.MoveGameMissing:
		return MoveGameMissing
	case gamestore.MoveNotInGame:
		return MoveNotInGame
	case gamestore.MoveNoOpponent:
		return MoveNoOpponent
	case gamestore.MoveGameOver:
		return MoveGameOver
	case gamestore.MoveNotYourTurn:
		return MoveNotYourTurn
	case gamestore.MoveMustPromote:
		return MoveMustPromote
	case gamestore.MoveRespondToDraw:
		return MoveRespondToDraw
	case gamestore.MoveInvalid:
		return MoveInvalid
	default:
		return ServerError
	}
}

const (
	PromoteSuccess            int32 = 0
	PromoteGameMissing        int32 = 1
	PromoteNotInGame          int32 = 2
	PromoteNoOpponent         int32 = 3
	PromoteGameOver           int32 = 4
	PromoteNotYourTurn        int32 = 5
	PromoteNoPromotionPending int32 = 6
	PromoteCharInvalid        int32 = 7
)

func promoteCode(r gamestore.PromoteResult) int32 {
	switch r {
	case gamestore.PromoteSuccess:
		return PromoteSuccess
	case gamestore.PromoteGameMissing:
		return PromoteGameMissing
	case gamestore.PromoteNotInGame:
		return PromoteNotInGame
	case gamestore.PromoteNoOpponent:
		return PromoteNoOpponent
	case gamestore.PromoteGameOver:
		return PromoteGameOver
	case gamestore.PromoteNotYourTurn:
		return PromoteNotYourTurn
	case gamestore.PromoteNoPromotionPending:
		return PromoteNoPromotionPending
	case gamestore.PromoteCharInvalid:
		return PromoteCharInvalid
	default:
		return ServerError
	}
}

// draw, reject and forfeit share a taxonomy (spec.md §6.2), with NoDrawOffer specific to
// reject.
const (
	DrawSuccess     int32 = 0
	DrawGameMissing int32 = 1
	DrawNotInGame   int32 = 2
	DrawNoOpponent  int32 = 3
	DrawGameOver    int32 = 4
	DrawNotYourTurn int32 = 5
	DrawMustPromote int32 = 6
)

func drawCode(r gamestore.DrawResult) int32 {
	switch r {
	case gamestore.DrawSuccess:
		return DrawSuccess
	case gamestore.DrawGameMissing:
		return DrawGameMissing
	case gamestore.DrawNotInGame:
		return DrawNotInGame
	case gamestore.DrawNoOpponent:
		return DrawNoOpponent
	case gamestore.DrawGameOver:
		return DrawGameOver
	case gamestore.DrawNotYourTurn:
		return DrawNotYourTurn
	case gamestore.DrawMustPromote:
		return DrawMustPromote
	default:
		return ServerError
	}
}

const (
	RejectSuccess     int32 = 0
	RejectGameMissing int32 = 1
	RejectNotInGame   int32 = 2
	RejectNoOpponent  int32 = 3
	RejectGameOver    int32 = 4
	RejectNotYourTurn int32 = 5
	RejectMustPromote int32 = 6
	RejectNoDrawOffer int32 = 7
)

func rejectCode(r gamestore.RejectResult) int32 {
	switch r {
	case gamestore.RejectSuccess:
		return RejectSuccess
	case gamestore.RejectGameMissing:
		return RejectGameMissing
	case gamestore.RejectNotInGame:
		return RejectNotInGame
	case gamestore.RejectNoOpponent:
		return RejectNoOpponent
	case gamestore.RejectGameOver:
		return RejectGameOver
	case gamestore.RejectNotYourTurn:
		return RejectNotYourTurn
	case gamestore.RejectMustPromote:
		return RejectMustPromote
	case gamestore.RejectNoDrawOffer:
		return RejectNoDrawOffer
	default:
		return ServerError
	}
}

const (
	ForfeitSuccess     int32 = 0
	ForfeitGameMissing int32 = 1
	ForfeitNotInGame   int32 = 2
	ForfeitNoOpponent  int32 = 3
	ForfeitGameOver    int32 = 4
	ForfeitNotYourTurn int32 = 5
	ForfeitMustPromote int32 = 6
)

func forfeitCode(r gamestore.ForfeitResult) int32 {
	switch r {
	case gamestore.ForfeitSuccess:
		return ForfeitSuccess
	case gamestore.ForfeitGameMissing:
		return ForfeitGameMissing
	case gamestore.ForfeitNotInGame:
		return ForfeitNotInGame
	case gamestore.ForfeitNoOpponent:
		return ForfeitNoOpponent
	case gamestore.ForfeitGameOver:
		return ForfeitGameOver
	case gamestore.ForfeitNotYourTurn:
		return ForfeitNotYourTurn
	case gamestore.ForfeitMustPromote:
		return ForfeitMustPromote
	default:
		return ServerError
	}
}

const (
	ArchiveSuccess     int32 = 0
	ArchiveGameMissing int32 = 1
	ArchiveNotInGame   int32 = 2
)

func archiveCode(r gamestore.ArchiveResult) int32 {
	switch r {
	case gamestore.ArchiveSuccess:
		return ArchiveSuccess
	case gamestore.ArchiveGameMissing:
		return ArchiveGameMissing
	case gamestore.ArchiveNotInGame:
		return ArchiveNotInGame
	default:
		return ServerError
	}
}

// validKindChar reports whether r is one of the four promotable piece letters the wire
// protocol accepts.
func validKindChar(r rune) bool {
	switch r {
	case 'r', 'n', 'b', 'q':
		return true
	default:
		return false
	}
}
