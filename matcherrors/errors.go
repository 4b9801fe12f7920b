package matcherrors

import "errors"

// Match and session sentinel errors. Shared by variant, game, lobby and ws
// to avoid circular imports.
var (
	ErrUnknownVariant  = errors.New("unknown game variant")
	ErrInvalidPlayers  = errors.New("invalid player list")
	ErrTurnFull        = errors.New("turn already has three darts")
	ErrDartIndex       = errors.New("no dart at that index")
	ErrMatchOver       = errors.New("match is over")
	ErrNoMatch         = errors.New("no match in progress")
	ErrInvalidToken    = errors.New("invalid token")
)
