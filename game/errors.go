package game

import (
	"errors"
	"fmt"
)

// ErrInconsistent is wrapped by every invariant violation.
var ErrInconsistent = errors.New("inconsistent game")

var (
	ErrOrderSet            = fmt.Errorf("%w: order already set", ErrInconsistent)
	ErrAvalonSet           = fmt.Errorf("%w: avalon already announced", ErrInconsistent)
	ErrRosterSet           = fmt.Errorf("%w: roster already set", ErrInconsistent)
	ErrMissionsShrunk      = fmt.Errorf("%w: mission results shrunk", ErrInconsistent)
	ErrMissionsConflict    = fmt.Errorf("%w: mission results conflict", ErrInconsistent)
	ErrMissionsEnded       = fmt.Errorf("%w: missions already ended", ErrInconsistent)
	ErrAlreadyWon          = fmt.Errorf("%w: winner already set", ErrInconsistent)
	ErrAlreadyAssassinated = fmt.Errorf("%w: already assassinated", ErrInconsistent)
	ErrNotAvalon           = fmt.Errorf("%w: assassination in a base game", ErrInconsistent)
)

// ErrBadRosterEntry is returned for a roster entry without a player name.
var ErrBadRosterEntry = errors.New("bad roster entry")

func inconsistent(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{kind}, args...)...)
}
