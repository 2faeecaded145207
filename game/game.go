// Package game describes one play of The Resistance reconstructed from a
// moderator bot transcript.
package game

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Side is the team that won a game.
type Side int

const (
	SideNone Side = iota
	SideResistance
	SideSpies
)

func (s Side) String() string {
	switch s {
	case SideNone:
		return "none"
	case SideResistance:
		return "resistance"
	case SideSpies:
		return "spies"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Game is a single game. Write-once fields are guarded by its mutation
// methods; a rejected write leaves the game unchanged and returns an error
// wrapping ErrInconsistent.
type Game struct {
	startTime time.Time

	numPlayers   int
	numSpies     int
	fullyStarted bool

	order slot[[]string]

	avalon         bool
	avalonRoles    slot[[]string]
	avalonVariants []string

	missionSuccess []bool

	// map[player_name]role
	roles map[string]string

	resistancePlayers []string
	spyPlayers        []string

	winningSide    Side
	assassinTarget slot[string]

	missionEndTime       slot[time.Time]
	assassinationEndTime slot[time.Time]
}

// New creates a game announced by an explicit start line.
func New(start time.Time, numPlayers, numSpies int) *Game {
	return &Game{
		startTime:    start,
		numPlayers:   numPlayers,
		numSpies:     numSpies,
		fullyStarted: true,
		roles:        make(map[string]string),
	}
}

// NewPartial creates a game synthesized mid-stream, without player counts.
func NewPartial(start time.Time) *Game {
	return &Game{
		startTime: start,
		roles:     make(map[string]string),
	}
}

func (g *Game) StartTime() time.Time { return g.startTime }

// Players returns the announced player and spy counts. ok is false for
// synthesized games.
func (g *Game) Players() (players, spies int, ok bool) {
	return g.numPlayers, g.numSpies, g.fullyStarted
}

func (g *Game) Order() []string {
	order, _ := g.order.get()
	return clone(order)
}

func (g *Game) Avalon() bool { return g.avalon }

func (g *Game) AvalonRoles() []string {
	roles, _ := g.avalonRoles.get()
	return clone(roles)
}

func (g *Game) AvalonVariants() []string { return clone(g.avalonVariants) }

func (g *Game) MissionSuccess() []bool { return append([]bool(nil), g.missionSuccess...) }

// Roles returns a copy of the player to role mapping.
func (g *Game) Roles() map[string]string {
	res := make(map[string]string, len(g.roles))
	for name, role := range g.roles {
		res[name] = role
	}
	return res
}

// Role returns the special role of a player, if any was revealed.
func (g *Game) Role(name string) (string, bool) {
	role, ok := g.roles[name]
	return role, ok
}

func (g *Game) ResistancePlayers() []string { return clone(g.resistancePlayers) }
func (g *Game) SpyPlayers() []string        { return clone(g.spyPlayers) }
func (g *Game) WinningSide() Side           { return g.winningSide }

func (g *Game) AssassinTarget() (string, bool)           { return g.assassinTarget.get() }
func (g *Game) MissionEndTime() (time.Time, bool)       { return g.missionEndTime.get() }
func (g *Game) AssassinationEndTime() (time.Time, bool) { return g.assassinationEndTime.get() }

// ResScore is the number of missions won by the resistance.
func (g *Game) ResScore() int { return countMissions(g.missionSuccess, true) }

// SpyScore is the number of missions won by the spies.
func (g *Game) SpyScore() int { return countMissions(g.missionSuccess, false) }

// WinningPlayers returns the roster of the winning side.
func (g *Game) WinningPlayers() []string {
	switch g.winningSide {
	case SideResistance:
		return g.ResistancePlayers()
	case SideSpies:
		return g.SpyPlayers()
	default:
		return nil
	}
}

// EndTime is the assassination end for Avalon games and the mission end otherwise.
func (g *Game) EndTime() (time.Time, bool) {
	if g.avalon {
		return g.assassinationEndTime.get()
	}
	return g.missionEndTime.get()
}

// Duration is zero while the game has no end time.
func (g *Game) Duration() time.Duration {
	end, ok := g.EndTime()
	if !ok {
		return 0
	}
	return end.Sub(g.startTime)
}

// AssassinationDuration is only defined for Avalon games that reached three
// resistance successes; it is zero otherwise.
func (g *Game) AssassinationDuration() time.Duration {
	if !g.avalon || g.ResScore() != 3 {
		return 0
	}
	missionEnd, ok := g.missionEndTime.get()
	if !ok {
		return 0
	}
	assassinationEnd, ok := g.assassinationEndTime.get()
	if !ok {
		return 0
	}
	return assassinationEnd.Sub(missionEnd)
}

// Complete reports whether the game was fully started and has a winner.
func (g *Game) Complete() bool {
	return g.winningSide != SideNone && g.fullyStarted
}

func (g *Game) String() string {
	kind := "Base"
	if g.avalon {
		kind = "Avalon"
	}
	players := "?"
	if g.fullyStarted {
		players = fmt.Sprint(g.numPlayers)
	}
	return fmt.Sprintf("Game %s %s %s %d-%d R: %v S: %v W: %v",
		g.startTime.Format(TimeLayout), players, kind,
		g.ResScore(), g.SpyScore(),
		g.resistancePlayers, g.spyPlayers, g.WinningPlayers(),
	)
}

// TimeLayout is the timestamp layout of transcript lines.
const TimeLayout = "2006-01-02 15:04:05"

// SetOrder sets the turn order. It may be called once.
func (g *Game) SetOrder(order []string) error {
	if prev, ok := g.order.get(); ok {
		return inconsistent(ErrOrderSet, "order is %v on %s, can't set to %v", prev, g, order)
	}
	g.order.put(clone(order))
	return nil
}

// MarkAvalon records the Avalon announcement. It may be called once.
func (g *Game) MarkAvalon(roles, variants []string) error {
	if prev, ok := g.avalonRoles.get(); ok {
		return inconsistent(ErrAvalonSet, "avalon roles are %v on %s, can't set to %v", prev, g, roles)
	}
	g.avalon = true
	g.avalonRoles.put(clone(roles))
	g.avalonVariants = clone(variants)
	return nil
}

// SetMissionSuccess replaces the mission results with a sequence that extends
// the current one.
func (g *Game) SetMissionSuccess(success []bool) error {
	if len(success) < len(g.missionSuccess) {
		return inconsistent(ErrMissionsShrunk,
			"can't replace %s mission success %v with smaller %v", g, g.missionSuccess, success)
	}
	for i, s := range g.missionSuccess {
		if success[i] != s {
			return inconsistent(ErrMissionsConflict,
				"can't replace %s mission success %v with inconsistent %v", g, g.missionSuccess, success)
		}
	}
	g.missionSuccess = append([]bool(nil), success...)
	return nil
}

// SetSpies parses a roster list and sets the spy roster.
func (g *Game) SetSpies(list string) error {
	if len(g.spyPlayers) != 0 {
		return inconsistent(ErrRosterSet, "spies are %v on %s, can't set to %q", g.spyPlayers, g, list)
	}
	names, err := g.parseRoster(list)
	if err != nil {
		return err
	}
	g.spyPlayers = names
	return nil
}

// SetResistance parses a roster list and sets the resistance roster.
func (g *Game) SetResistance(list string) error {
	if len(g.resistancePlayers) != 0 {
		return inconsistent(ErrRosterSet, "resistance are %v on %s, can't set to %q", g.resistancePlayers, g, list)
	}
	names, err := g.parseRoster(list)
	if err != nil {
		return err
	}
	g.resistancePlayers = names
	return nil
}

// BeginAssassination ends the mission phase of an Avalon game. A synthesized
// game that never saw its Avalon announcement is promoted to Avalon.
func (g *Game) BeginAssassination(at time.Time) error {
	if !g.avalon {
		if g.fullyStarted {
			return inconsistent(ErrNotAvalon, "assassination in a non-avalon game %s", g)
		}
		g.avalon = true
	}
	if end, ok := g.missionEndTime.get(); ok {
		return inconsistent(ErrMissionsEnded,
			"missions already ended at %s on %s, can't assassinate", end.Format(TimeLayout), g)
	}
	g.missionEndTime.put(at)
	return nil
}

// WinOnMissions ends the mission phase with a winner.
func (g *Game) WinOnMissions(winner Side, at time.Time) error {
	if end, ok := g.missionEndTime.get(); ok {
		return inconsistent(ErrMissionsEnded,
			"missions already ended at %s on %s, can't let %s win on missions", end.Format(TimeLayout), g, winner)
	}
	if g.winningSide != SideNone {
		return inconsistent(ErrAlreadyWon,
			"%s already won on %s, can't let %s win on missions", g.winningSide, g, winner)
	}
	g.winningSide = winner
	g.missionEndTime.put(at)
	return nil
}

// Assassinate records the assassin's target and the resulting winner.
// An earlier winning side is not checked.
func (g *Game) Assassinate(target string, at time.Time, winner Side) error {
	if prev, ok := g.assassinTarget.get(); ok {
		return inconsistent(ErrAlreadyAssassinated,
			"already assassinated %s on %s, can't assassinate %s", prev, g, target)
	}
	g.assassinTarget.put(target)
	g.assassinationEndTime.put(at)
	g.winningSide = winner
	return nil
}

// NAME or NAME (ROLE)
var nameAndRoleRe = regexp.MustCompile(`(\w+)(?: \((.*)\))?`)

const (
	fieldName = iota + 1
	fieldRole
)

// parseRoster splits a roster list and merges role annotations into the
// game's roles. Roles already known for a player are kept.
func (g *Game) parseRoster(list string) ([]string, error) {
	if list == "" {
		return nil, nil
	}

	entries := strings.Split(list, ", ")
	names := make([]string, 0, len(entries))
	roles := make(map[string]string)

	for _, entry := range entries {
		fields := nameAndRoleRe.FindStringSubmatch(entry)
		if fields == nil {
			return nil, fmt.Errorf("%w: %q in %q on %s", ErrBadRosterEntry, entry, list, g)
		}
		names = append(names, fields[fieldName])
		if role := fields[fieldRole]; role != "" {
			roles[fields[fieldName]] = role
		}
	}

	for name, role := range roles {
		if _, ok := g.roles[name]; !ok {
			g.roles[name] = role
		}
	}
	return names, nil
}

func countMissions(missions []bool, want bool) (n int) {
	for _, m := range missions {
		if m == want {
			n++
		}
	}
	return n
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
