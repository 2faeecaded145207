// Package stats aggregates reconstructed games. All functions are pure: they
// only read the games they are given.
package stats

import (
	"github.com/Feresey/resstats/game"
)

// Resolve maps a nickname to the player's current nickname.
type Resolve func(string) string

func identity(s string) string { return s }

// Finished drops games that never got a winner, such as reset ones.
func Finished(games []*game.Game) []*game.Game {
	var res []*game.Game
	for _, g := range games {
		if g.WinningSide() != game.SideNone {
			res = append(res, g)
		}
	}
	return res
}

// FirstMissionFailed keeps games whose first mission was not a resistance success.
func FirstMissionFailed(games []*game.Game) []*game.Game {
	var res []*game.Game
	for _, g := range games {
		missions := g.MissionSuccess()
		if len(missions) == 0 || !missions[0] {
			res = append(res, g)
		}
	}
	return res
}

// Longest returns the game with the longest duration, nil for no games.
func Longest(games []*game.Game) *game.Game {
	return maxBy(games, func(g *game.Game) int64 { return int64(g.Duration()) })
}

// LongestAssassination returns the game with the longest assassination phase.
func LongestAssassination(games []*game.Game) *game.Game {
	return maxBy(games, func(g *game.Game) int64 { return int64(g.AssassinationDuration()) })
}

func maxBy(games []*game.Game, key func(*game.Game) int64) *game.Game {
	var (
		best    *game.Game
		bestKey int64
	)
	for _, g := range games {
		if k := key(g); best == nil || k > bestKey {
			best, bestKey = g, k
		}
	}
	return best
}

// GlobalStats counts wins by side for base and Avalon games.
type GlobalStats struct {
	BaseGames   int `yaml:"base_games"`
	BaseResWins int `yaml:"base_res_wins"`
	BaseSpyWins int `yaml:"base_spy_wins"`

	AvalonGames           int `yaml:"avalon_games"`
	AvalonResWins         int `yaml:"avalon_res_wins"`
	AvalonSpyMissionWins  int `yaml:"avalon_spy_mission_wins"`
	AvalonSpyAssassinWins int `yaml:"avalon_spy_assassin_wins"`
}

func Global(games []*game.Game) GlobalStats {
	var s GlobalStats

	for _, g := range games {
		side := g.WinningSide()
		if !g.Avalon() {
			s.BaseGames++
			switch side {
			case game.SideResistance:
				s.BaseResWins++
			case game.SideSpies:
				s.BaseSpyWins++
			}
			continue
		}

		s.AvalonGames++
		_, assassinated := g.AssassinTarget()
		switch {
		case side == game.SideResistance:
			s.AvalonResWins++
		case side == game.SideSpies && assassinated:
			s.AvalonSpyAssassinWins++
		case side == game.SideSpies:
			s.AvalonSpyMissionWins++
		}
	}

	return s
}
