package stats

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Feresey/resstats/game"
	"gopkg.in/yaml.v3"
)

// GameSummary describes a notable game.
type GameSummary struct {
	Start                 time.Time `yaml:"start"`
	Avalon                bool      `yaml:"avalon"`
	ResScore              int       `yaml:"res_score"`
	SpyScore              int       `yaml:"spy_score"`
	Winner                string    `yaml:"winner"`
	Duration              string    `yaml:"duration"`
	AssassinationDuration string    `yaml:"assassination_duration,omitempty"`

	text string
}

func summarize(g *game.Game) *GameSummary {
	if g == nil {
		return nil
	}
	s := &GameSummary{
		Start:    g.StartTime(),
		Avalon:   g.Avalon(),
		ResScore: g.ResScore(),
		SpyScore: g.SpyScore(),
		Winner:   g.WinningSide().String(),
		Duration: g.Duration().String(),
		text:     g.String(),
	}
	if d := g.AssassinationDuration(); d != 0 {
		s.AssassinationDuration = d.String()
	}
	return s
}

type Report struct {
	Games         int `yaml:"games"`
	FinishedGames int `yaml:"finished_games"`

	Longest              *GameSummary `yaml:"longest,omitempty"`
	LongestAssassination *GameSummary `yaml:"longest_assassination,omitempty"`

	Global             GlobalStats `yaml:"global"`
	FirstMissionFailed GlobalStats `yaml:"first_mission_failed"`

	Players []PlayerStats `yaml:"players,omitempty"`

	MinGames    int        `yaml:"min_games"`
	Leaderboard []Standing `yaml:"leaderboard,omitempty"`
}

type ReportOptions struct {
	// Players to report on individually.
	Players []string
	Resolve Resolve
	// Hidden players are left out of the leaderboard.
	Hidden func(string) bool
	// MinGames is the number of games a leaderboard entry needs.
	MinGames int
}

// BuildReport aggregates every game seen in a run, reset ones included.
func BuildReport(games []*game.Game, opts ReportOptions) *Report {
	if opts.MinGames <= 0 {
		opts.MinGames = DefaultMinGames
	}

	finished := Finished(games)

	r := &Report{
		Games:                len(games),
		FinishedGames:        len(finished),
		Longest:              summarize(Longest(finished)),
		LongestAssassination: summarize(LongestAssassination(finished)),
		Global:               Global(finished),
		FirstMissionFailed:   Global(FirstMissionFailed(finished)),
		MinGames:             opts.MinGames,
	}

	for _, name := range opts.Players {
		r.Players = append(r.Players, ForPlayer(finished, name, opts.Resolve))
	}

	for _, s := range Leaderboard(finished, opts.Resolve, opts.Hidden) {
		if s.Significant(opts.MinGames) {
			r.Leaderboard = append(r.Leaderboard, s)
		}
	}

	return r
}

func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

func (r *Report) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%d games\n", r.Games)
	fmt.Fprintf(bw, "%d non-reset games\n\n", r.FinishedGames)

	if r.Longest != nil {
		fmt.Fprintf(bw, "Longest game: %s with %s\n\n", r.Longest.text, r.Longest.Duration)
	}
	if r.LongestAssassination != nil && r.LongestAssassination.AssassinationDuration != "" {
		fmt.Fprintf(bw, "Longest assassination game: %s with %s\n\n",
			r.LongestAssassination.text, r.LongestAssassination.AssassinationDuration)
	}

	fmt.Fprintln(bw, "GLOBAL STATS")
	writeGlobal(bw, r.Global)
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "STATS FOR M1 FAILS")
	writeGlobal(bw, r.FirstMissionFailed)

	for _, p := range r.Players {
		fmt.Fprintln(bw)
		writePlayer(bw, p)
	}

	if len(r.Leaderboard) != 0 {
		fmt.Fprintf(bw, "\nLEADERBOARD (at least %d games)\n", r.MinGames)
		for _, s := range r.Leaderboard {
			total := s.Total()
			fmt.Fprintf(bw, "%16s: %3d/%3d %.3f\n", s.Name, total.Won, total.Played, total.Rate())
		}
	}

	return bw.Flush()
}

func writeGlobal(w io.Writer, s GlobalStats) {
	fmt.Fprintf(w, "%d base games. %d res wins. %d spy wins.\n",
		s.BaseGames, s.BaseResWins, s.BaseSpyWins)
	fmt.Fprintf(w, "%d Avalon games. %d res wins. %d spy wins (mission). %d spy wins (assassination).\n",
		s.AvalonGames, s.AvalonResWins, s.AvalonSpyMissionWins, s.AvalonSpyAssassinWins)
}

func writePlayer(w io.Writer, p PlayerStats) {
	fmt.Fprintf(w, "Stats for %s\n", p.Name)
	fmt.Fprintf(w, "BASE: As res, won %d/%d games. As spy, won %d/%d games.\n",
		p.BaseRes.Won, p.BaseRes.Played, p.BaseSpy.Won, p.BaseSpy.Played)
	fmt.Fprintf(w, "AVALON: As res, won %d/%d games. As spy, won %d/%d games.\n",
		p.AvalonRes.Won, p.AvalonRes.Played, p.AvalonSpy.Won, p.AvalonSpy.Played)

	fmt.Fprintf(w, "AS MERLIN (%d games): %s\n", p.Merlin.Games, categories(
		"Won", p.Merlin.Won,
		"died", p.Merlin.Died,
		"let spies win missions", p.Merlin.LetSpiesWinMissions,
	))
	fmt.Fprintf(w, "AS NON-MERLIN RES (%d games): %s\n", p.NonMerlin.Games, categories(
		"Got killed (win)", p.NonMerlin.GotKilled,
		"other Non-Merlin got killed (win)", p.NonMerlin.OtherGotKilled,
		"let Merlin die", p.NonMerlin.LetMerlinDie,
		"let spies win missions", p.NonMerlin.LetSpiesWinMissions,
	))
	fmt.Fprintf(w, "AS SPY (%d games): %s\n", p.Spy.Games, categories(
		"Won on missions", p.Spy.WonOnMissions,
		"killed Merlin", p.Spy.KilledMerlin,
		"lost", p.Spy.Lost,
	))
}

// categories formats description and count pairs.
func categories(pairs ...interface{}) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, fmt.Sprintf("%s %d games", pairs[i], pairs[i+1]))
	}
	return strings.Join(parts, ", ")
}
