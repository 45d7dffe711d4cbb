package brackets

import "errors"

var (
	// ErrInsufficientRounds means the builder asked for a matchup with fewer
	// than two rounds left. It indicates a defect, not bad input.
	ErrInsufficientRounds = errors.New("at least two rounds are required for a matchup")
	ErrInvalidWinner      = errors.New("winner must be one of the round's previous rounds")
	ErrLeafImmutable      = errors.New("leaf rounds have no settable winner")
	ErrUndecidedWinner    = errors.New("winning round has no result yet")
	ErrMalformedBracket   = errors.New("bracket structure is inconsistent")
)
