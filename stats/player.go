package stats

import (
	"github.com/Feresey/resstats/game"
)

const merlin = "Merlin"

// Tally counts games won out of games played.
type Tally struct {
	Won    int `yaml:"won"`
	Played int `yaml:"played"`
}

func (t *Tally) add(win bool) {
	t.Played++
	if win {
		t.Won++
	}
}

// Rate is the win rate, zero when no games were played.
func (t Tally) Rate() float64 {
	if t.Played == 0 {
		return 0
	}
	return float64(t.Won) / float64(t.Played)
}

// MerlinStats covers Avalon games played as Merlin.
type MerlinStats struct {
	Games               int `yaml:"games"`
	Won                 int `yaml:"won"`
	Died                int `yaml:"died"`
	LetSpiesWinMissions int `yaml:"let_spies_win_missions"`
}

// NonMerlinStats covers Avalon games played as resistance without the Merlin role.
type NonMerlinStats struct {
	Games               int `yaml:"games"`
	GotKilled           int `yaml:"got_killed"`
	OtherGotKilled      int `yaml:"other_got_killed"`
	LetMerlinDie        int `yaml:"let_merlin_die"`
	LetSpiesWinMissions int `yaml:"let_spies_win_missions"`
}

// AvalonSpyStats covers Avalon games played as a spy.
type AvalonSpyStats struct {
	Games         int `yaml:"games"`
	WonOnMissions int `yaml:"won_on_missions"`
	KilledMerlin  int `yaml:"killed_merlin"`
	Lost          int `yaml:"lost"`
}

// PlayerStats are the results of one player by game kind and side.
type PlayerStats struct {
	Name string `yaml:"name"`

	BaseRes   Tally `yaml:"base_res"`
	BaseSpy   Tally `yaml:"base_spy"`
	AvalonRes Tally `yaml:"avalon_res"`
	AvalonSpy Tally `yaml:"avalon_spy"`

	Merlin    MerlinStats    `yaml:"merlin"`
	NonMerlin NonMerlinStats `yaml:"non_merlin"`
	Spy       AvalonSpyStats `yaml:"spy"`
}

// ForPlayer collects the stats of one player over finished games. Nicknames
// are compared after resolve, which may be nil.
func ForPlayer(games []*game.Game, name string, resolve Resolve) PlayerStats {
	if resolve == nil {
		resolve = identity
	}
	name = resolve(name)
	is := func(nickname string) bool { return resolve(nickname) == name }

	s := PlayerStats{Name: name}

	for _, g := range games {
		side := g.WinningSide()
		asRes := containsFunc(g.ResistancePlayers(), is)
		asSpy := containsFunc(g.SpyPlayers(), is)

		if !g.Avalon() {
			if asRes {
				s.BaseRes.add(side == game.SideResistance)
			}
			if asSpy {
				s.BaseSpy.add(side == game.SideSpies)
			}
			continue
		}

		target, assassinated := g.AssassinTarget()
		targetIsPlayer := assassinated && is(target)

		if asRes {
			s.AvalonRes.add(side == game.SideResistance)

			if roleOf(g, is) == merlin {
				s.Merlin.Games++
				if side == game.SideResistance {
					s.Merlin.Won++
				}
				if targetIsPlayer {
					s.Merlin.Died++
				}
				if g.SpyScore() == 3 {
					s.Merlin.LetSpiesWinMissions++
				}
			} else {
				s.NonMerlin.Games++
				if targetIsPlayer {
					s.NonMerlin.GotKilled++
				}
				if assassinated && !targetIsPlayer && side == game.SideResistance {
					s.NonMerlin.OtherGotKilled++
				}
				if g.ResScore() == 3 && side == game.SideSpies {
					s.NonMerlin.LetMerlinDie++
				}
				if g.SpyScore() == 3 {
					s.NonMerlin.LetSpiesWinMissions++
				}
			}
		}

		if asSpy {
			s.AvalonSpy.add(side == game.SideSpies)

			s.Spy.Games++
			if g.SpyScore() == 3 {
				s.Spy.WonOnMissions++
			}
			if g.ResScore() == 3 && side == game.SideSpies {
				s.Spy.KilledMerlin++
			}
			if g.ResScore() == 3 && side == game.SideResistance {
				s.Spy.Lost++
			}
		}
	}

	return s
}

func roleOf(g *game.Game, is func(string) bool) string {
	for nickname, role := range g.Roles() {
		if is(nickname) {
			return role
		}
	}
	return ""
}

func containsFunc(names []string, is func(string) bool) bool {
	for _, n := range names {
		if is(n) {
			return true
		}
	}
	return false
}
