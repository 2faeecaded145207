package stats

import (
	"sort"

	"github.com/Feresey/resstats/game"
)

// DefaultMinGames is the number of games after which a win rate is shown.
// The value is arbitrary.
const DefaultMinGames = 25

// Standing is the record of one player over all finished games.
type Standing struct {
	Name string `yaml:"name"`
	Res  Tally  `yaml:"res"`
	Spy  Tally  `yaml:"spy"`
}

func (s Standing) Total() Tally {
	return Tally{
		Won:    s.Res.Won + s.Spy.Won,
		Played: s.Res.Played + s.Spy.Played,
	}
}

func (s Standing) Significant(minGames int) bool {
	return s.Total().Played >= minGames
}

// Leaderboard returns the standings of every player, best overall win rate
// first. Players for which hidden returns true are left out; hidden may be nil.
func Leaderboard(games []*game.Game, resolve Resolve, hidden func(string) bool) []Standing {
	if resolve == nil {
		resolve = identity
	}

	byName := make(map[string]*Standing)
	get := func(nickname string) *Standing {
		name := resolve(nickname)
		s, ok := byName[name]
		if !ok {
			s = &Standing{Name: name}
			byName[name] = s
		}
		return s
	}

	for _, g := range games {
		side := g.WinningSide()
		for _, p := range g.ResistancePlayers() {
			get(p).Res.add(side == game.SideResistance)
		}
		for _, p := range g.SpyPlayers() {
			get(p).Spy.add(side == game.SideSpies)
		}
	}

	res := make([]Standing, 0, len(byName))
	for name, s := range byName {
		if hidden != nil && hidden(name) {
			continue
		}
		res = append(res, *s)
	}

	sort.Slice(res, func(i, j int) bool {
		ri, rj := res[i].Total().Rate(), res[j].Total().Rate()
		if ri != rj {
			return ri > rj
		}
		return res[i].Name < res[j].Name
	})
	return res
}
