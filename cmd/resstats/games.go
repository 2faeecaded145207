package main

import (
	"strconv"
	"strings"

	"github.com/Feresey/resstats/game"
)

// GameIter walks games as rows of the CSV game table.
type GameIter struct {
	games []*game.Game
	idx   int
}

func NewGameIter(games []*game.Game) *GameIter {
	return &GameIter{
		games: games,
		idx:   -1,
	}
}

func (it *GameIter) Next() bool {
	it.idx++
	return it.idx < len(it.games)
}

func (it *GameIter) Header() []string {
	return []string{
		"start",
		"players",
		"kind",
		"res_score",
		"spy_score",
		"winner",
		"duration",
		"assassin_target",
		"resistance",
		"spies",
	}
}

func (it *GameIter) Line() []string {
	g := it.games[it.idx]

	players := ""
	if n, _, ok := g.Players(); ok {
		players = strconv.Itoa(n)
	}
	kind := "base"
	if g.Avalon() {
		kind = "avalon"
	}
	duration := ""
	if _, ok := g.EndTime(); ok {
		duration = g.Duration().String()
	}
	target, _ := g.AssassinTarget()

	return []string{
		g.StartTime().Format(game.TimeLayout),
		players,
		kind,
		strconv.Itoa(g.ResScore()),
		strconv.Itoa(g.SpyScore()),
		g.WinningSide().String(),
		duration,
		target,
		strings.Join(g.ResistancePlayers(), " "),
		strings.Join(g.SpyPlayers(), " "),
	}
}
