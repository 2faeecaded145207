// Package parse classifies moderator bot lines.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the grammar a line matched.
type Kind int

const (
	KindNone Kind = iota
	KindStart
	KindAvalon
	KindOrder
	KindMissions
	KindResistanceWin
	KindSpyWin
	KindAssassinationStart
	KindAssassinList
	KindAssassinKill
	KindAssassinMiss
	KindSpyList
	KindResistanceList
	KindReset
)

var kindNames = [...]string{
	KindNone:               "none",
	KindStart:              "start",
	KindAvalon:             "avalon",
	KindOrder:              "order",
	KindMissions:           "missions",
	KindResistanceWin:      "resistance_win",
	KindSpyWin:             "spy_win",
	KindAssassinationStart: "assassination_start",
	KindAssassinList:       "assassin_list",
	KindAssassinKill:       "assassin_kill",
	KindAssassinMiss:       "assassin_miss",
	KindSpyList:            "spy_list",
	KindResistanceList:     "resistance_list",
	KindReset:              "reset",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is a recognized line with its captured fields. Only the fields of
// the matched grammar are set.
type Event struct {
	Kind Kind

	// KindStart
	NumPlayers int
	NumSpies   int

	// KindAvalon
	Roles    []string
	Variants []string

	// KindOrder
	Order []string

	// KindMissions, true is a resistance success
	Missions []bool

	// KindAssassinKill, KindAssassinMiss
	Target string

	// KindAssassinList, KindSpyList, KindResistanceList. Raw roster list.
	List string
}

type grammar struct {
	kind    Kind
	re      *regexp.Regexp
	extract func(ev *Event, fields []string) error
}

// Grammars in priority order. The first match wins.
var grammars = []grammar{
	{
		kind: KindStart,
		// The game has started. There are 5 players, with 2 spies.
		re:      regexp.MustCompile(`^The game has started\. There are (\d+) players, with (\d+) spies\.`),
		extract: extractStart,
	},
	{
		kind: KindAvalon,
		// "Using variants" is missing from older logs.
		re:      regexp.MustCompile(`^This is Resistance: Avalon, with (.*)\.(?: Using variants:(.*))?$`),
		extract: extractAvalon,
	},
	{
		kind: KindOrder,
		re:   regexp.MustCompile(`^Player order is: (.*)$`),
		extract: func(ev *Event, fields []string) error {
			ev.Order = strings.Fields(fields[1])
			return nil
		},
	},
	{
		kind: KindMissions,
		// O X O O O
		re: regexp.MustCompile(`^[OX](?: [OX]){0,4}$`),
		extract: func(ev *Event, fields []string) error {
			for _, token := range strings.Fields(fields[0]) {
				ev.Missions = append(ev.Missions, token == "O")
			}
			return nil
		},
	},
	{
		kind: KindResistanceWin,
		re:   regexp.MustCompile(`^Game is over! The resistance wins!$`),
	},
	{
		kind: KindSpyWin,
		re:   regexp.MustCompile(`^Game is over! The spies have won!$`),
	},
	{
		kind: KindAssassinationStart,
		re:   regexp.MustCompile(`^The resistance successfully completed the missions, but the spies still have a chance\.$`),
	},
	{
		kind:    KindAssassinList,
		re:      regexp.MustCompile(`^The spies are: (.*)\. Assassin, choose a resistance member to assassinate\.$`),
		extract: extractList,
	},
	{
		kind:    KindAssassinKill,
		re:      regexp.MustCompile(`^The assassin kills (.*)\. The spies have killed Merlin! Spies win the game!$`),
		extract: extractTarget,
	},
	{
		kind:    KindAssassinMiss,
		re:      regexp.MustCompile(`^The assassin kills (.*)\. The spies have NOT killed Merlin\. Resistance wins!$`),
		extract: extractTarget,
	},
	{
		kind:    KindSpyList,
		re:      regexp.MustCompile(`^The spies were: (.*)$`),
		extract: extractList,
	},
	{
		kind:    KindResistanceList,
		re:      regexp.MustCompile(`^The resistance were: (.*)$`),
		extract: extractList,
	},
	{
		kind: KindReset,
		re:   regexp.MustCompile(`^The game has been reset\.$`),
	},
}

// Recognize matches text against the grammars. ok is false for lines that
// are not part of a game narration.
func Recognize(text string) (ev Event, ok bool) {
	for _, g := range grammars {
		fields := g.re.FindStringSubmatch(text)
		if fields == nil {
			continue
		}

		ev.Kind = g.kind
		if g.extract != nil {
			if err := g.extract(&ev, fields); err != nil {
				// the line looked like g but its fields do not parse
				return Event{}, false
			}
		}
		return ev, true
	}
	return Event{}, false
}

func extractStart(ev *Event, fields []string) error {
	const (
		fieldPlayers = iota + 1
		fieldSpies
	)

	players, err := strconv.Atoi(fields[fieldPlayers])
	if err != nil {
		return fmt.Errorf("parse players: %q: %w", fields[fieldPlayers], err)
	}
	spies, err := strconv.Atoi(fields[fieldSpies])
	if err != nil {
		return fmt.Errorf("parse spies: %q: %w", fields[fieldSpies], err)
	}

	ev.NumPlayers = players
	ev.NumSpies = spies
	return nil
}

func extractAvalon(ev *Event, fields []string) error {
	const (
		fieldRoles = iota + 1
		fieldVariants
	)

	ev.Roles = strings.Split(fields[fieldRoles], ", ")
	if v := strings.TrimSpace(fields[fieldVariants]); v != "" {
		ev.Variants = strings.Split(v, ", ")
	}
	return nil
}

func extractList(ev *Event, fields []string) error {
	ev.List = fields[1]
	return nil
}

func extractTarget(ev *Event, fields []string) error {
	ev.Target = fields[1]
	return nil
}
