package session

import "fmt"

// State is the position of the parser within the narration of one game.
type State int

const (
	// StateIdle: no game. Reached when a game completes or is reset.
	StateIdle State = iota
	// StateStartedAny: started, waiting for the Avalon or the order line.
	StateStartedAny
	// StateStartedAvalon: Avalon announced, waiting for the order line.
	StateStartedAvalon
	// StateInProgress: missions are being played.
	StateInProgress
	// StateAssassination: the assassin is choosing. Older logs reveal the
	// spies next, newer logs go straight to the result.
	StateAssassination
	// StateAssassinationRevealed: spies were revealed at assassination time (older logs).
	StateAssassinationRevealed
	// StateWaitingSpyLine: waiting for "The spies were: ".
	StateWaitingSpyLine
	// StateWaitingResLine: waiting for "The resistance were: ".
	StateWaitingResLine
)

var stateNames = [...]string{
	StateIdle:                  "idle",
	StateStartedAny:            "started_any",
	StateStartedAvalon:         "started_avalon",
	StateInProgress:            "in_progress",
	StateAssassination:         "assassination",
	StateAssassinationRevealed: "assassination_revealed",
	StateWaitingSpyLine:        "waiting_spy_line",
	StateWaitingResLine:        "waiting_res_line",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}
