package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Feresey/resstats/game"
	"github.com/Feresey/resstats/logparse"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var base = time.Date(2013, time.March, 14, 20, 0, 0, 0, time.UTC)

type feeder struct {
	t    *testing.T
	p    *Parser
	logs *observer.ObservedLogs
	now  time.Time
}

func newFeeder(t *testing.T) *feeder {
	core, logs := observer.New(zapcore.InfoLevel)
	return &feeder{
		t:    t,
		p:    NewParser(zap.New(core)),
		logs: logs,
		now:  base,
	}
}

// lines feeds lines one minute apart and fails the test on error.
func (f *feeder) lines(lines ...string) {
	f.t.Helper()
	for _, line := range lines {
		f.now = f.now.Add(time.Minute)
		require.NoError(f.t, f.p.Parse(line, f.now), line)
	}
}

func (f *feeder) warnings() int {
	return f.logs.FilterLevelExact(zapcore.WarnLevel).Len()
}

func TestWellFormedGame(t *testing.T) {
	f := newFeeder(t)
	f.lines(
		"The game has started. There are 5 players, with 2 spies.",
		"Player order is: A B C D E",
		"O X O O O",
		"Game is over! The resistance wins!",
		"The spies were: B, D",
		"The resistance were: A, C, E",
	)

	r := require.New(t)
	games := f.p.Games()
	r.Len(games, 1)

	g := games[0]
	r.True(g.Complete(), spew.Sdump(g))
	r.Equal(4, g.ResScore())
	r.Equal(1, g.SpyScore())
	r.Equal(game.SideResistance, g.WinningSide())
	r.Equal([]string{"B", "D"}, g.SpyPlayers())
	r.Equal([]string{"A", "C", "E"}, g.ResistancePlayers())
	r.Equal([]string{"A", "B", "C", "D", "E"}, g.Order())
	r.Equal(StateIdle, f.p.State())
	r.Zero(f.warnings())
}

func TestAvalonAssassination(t *testing.T) {
	f := newFeeder(t)
	f.lines(
		"The game has started. There are 5 players, with 2 spies.",
		"This is Resistance: Avalon, with Merlin, Assassin.",
		"Player order is: A B C D E",
		"O",
		"O O",
		"O O X",
		"O O X O",
		"The resistance successfully completed the missions, but the spies still have a chance.",
	)
	require.Equal(t, StateAssassination, f.p.State())

	f.lines(
		"The assassin kills C. The spies have killed Merlin! Spies win the game!",
		"The spies were: B (Assassin), D",
		"The resistance were: A, C (Merlin), E",
	)

	r := require.New(t)
	g := f.p.Current()
	r.True(g.Avalon())
	r.True(g.Complete())
	r.Equal(game.SideSpies, g.WinningSide())
	target, ok := g.AssassinTarget()
	r.True(ok)
	r.Equal("C", target)
	r.Positive(int64(g.AssassinationDuration()))
	r.Equal(map[string]string{"B": "Assassin", "C": "Merlin"}, g.Roles())
	r.Zero(f.warnings())
}

func TestLegacyAssassination(t *testing.T) {
	f := newFeeder(t)
	f.lines(
		"The game has started. There are 5 players, with 2 spies.",
		"This is Resistance: Avalon, with Merlin, Assassin.",
		"Player order is: A B C D E",
		"O O O",
		"The resistance successfully completed the missions, but the spies still have a chance.",
		"The spies are: A, E. Assassin, choose a resistance member to assassinate.",
	)
	require.Equal(t, StateAssassinationRevealed, f.p.State())

	f.lines("The assassin kills C. The spies have NOT killed Merlin. Resistance wins!")
	require.Equal(t, StateWaitingResLine, f.p.State())

	f.lines("The resistance were: B (Merlin), C, D")

	g := f.p.Current()
	require.Len(t, f.p.Games(), 1)
	require.Equal(t, game.SideResistance, g.WinningSide())
	require.Equal(t, []string{"A", "E"}, g.SpyPlayers())
	require.Equal(t, []string{"B", "C", "D"}, g.WinningPlayers())
	require.Zero(t, f.warnings())
}

func TestMissionWhileIdle(t *testing.T) {
	f := newFeeder(t)
	f.lines("O X")

	r := require.New(t)
	games := f.p.Games()
	r.Len(games, 1)
	r.False(games[0].Complete())
	r.Equal([]bool{true, false}, games[0].MissionSuccess())
	_, _, ok := games[0].Players()
	r.False(ok)
	r.Equal(StateInProgress, f.p.State())
	r.Equal(1, f.warnings())
}

func TestReset(t *testing.T) {
	f := newFeeder(t)
	f.lines(
		"The game has started. There are 6 players, with 2 spies.",
		"Player order is: A B C D E F",
		"X",
		"The game has been reset.",
	)

	r := require.New(t)
	r.Equal(StateIdle, f.p.State())
	abandoned := f.p.Current()
	r.Equal([]bool{false}, abandoned.MissionSuccess())

	f.lines(
		"The game has started. There are 5 players, with 2 spies.",
		"Player order is: A B C D E",
		"X X X",
		"Game is over! The spies have won!",
		"The spies were: A, B",
		"The resistance were: C, D, E",
	)

	games := f.p.Games()
	r.Len(games, 2)
	r.Same(abandoned, games[0])
	r.False(games[0].Complete())
	r.Equal(game.SideNone, games[0].WinningSide())
	r.Empty(games[0].SpyPlayers())
	r.True(games[1].Complete())
	r.Zero(f.warnings())
}

func TestSpyListAfterReset(t *testing.T) {
	f := newFeeder(t)
	f.lines(
		"The game has started. There are 5 players, with 2 spies.",
		"Player order is: A B C D E",
		"O",
		"The game has been reset.",
		"The spies were: B, D",
	)

	r := require.New(t)
	r.Len(f.p.Games(), 1, "empty spy roster is filled in, no new game")
	r.Equal([]string{"B", "D"}, f.p.Current().SpyPlayers())
	r.Equal(StateWaitingResLine, f.p.State())
	r.Zero(f.warnings())
	r.Equal(1, f.logs.FilterMessage("spy list unexpected - reset suspected").Len())
}

func TestSpyListWithKnownSpies(t *testing.T) {
	f := newFeeder(t)
	f.lines(
		"The game has started. There are 5 players, with 2 spies.",
		"Player order is: A B C D E",
		"X X X",
		"Game is over! The spies have won!",
		"The spies were: B, D",
		"The resistance were: A, C, E",
		"The spies were: A, E",
	)

	r := require.New(t)
	games := f.p.Games()
	r.Len(games, 2)
	r.Equal([]string{"B", "D"}, games[0].SpyPlayers())
	r.Equal([]string{"A", "E"}, games[1].SpyPlayers())
	r.False(games[1].Complete())
	r.Equal(1, f.warnings())
}

func TestResListWithoutSpyList(t *testing.T) {
	f := newFeeder(t)
	f.lines(
		"The game has started. There are 5 players, with 2 spies.",
		"Player order is: A B C D E",
		"O O O",
		"Game is over! The resistance wins!",
		"The resistance were: A, C, E",
	)

	r := require.New(t)
	r.Len(f.p.Games(), 1)
	r.Equal([]string{"A", "C", "E"}, f.p.Current().ResistancePlayers())
	r.Empty(f.p.Current().SpyPlayers())
	r.Equal(StateIdle, f.p.State())
	r.Equal(1, f.logs.FilterMessage("res list unexpected - spy list needs to be reconstructed").Len())
}

func TestResListWithKnownResistance(t *testing.T) {
	f := newFeeder(t)
	f.lines(
		"The game has started. There are 5 players, with 2 spies.",
		"Player order is: A B C D E",
		"O O O",
		"Game is over! The resistance wins!",
		"The spies were: B, D",
		"The resistance were: A, C, E",
		"The resistance were: B, C, D",
	)

	require.Len(t, f.p.Games(), 2)
	require.Equal(t, 1, f.warnings())
}

func TestAssassinResultOutsideAssassination(t *testing.T) {
	f := newFeeder(t)
	f.lines("The assassin kills C. The spies have killed Merlin! Spies win the game!")

	r := require.New(t)
	r.Len(f.p.Games(), 1)
	r.Equal(StateWaitingSpyLine, f.p.State())
	r.Equal(game.SideSpies, f.p.Current().WinningSide())
	r.Equal(1, f.warnings())

	f.lines("The spies were: B, D", "The resistance were: A, C, E")
	r.Len(f.p.Games(), 1)
	r.Equal(1, f.warnings())
}

func TestSynthesizedGamePromotedToAvalon(t *testing.T) {
	f := newFeeder(t)
	f.lines(
		"Player order is: A B C D E",
		"O O O",
		"The resistance successfully completed the missions, but the spies still have a chance.",
	)

	require.True(t, f.p.Current().Avalon())
	require.Equal(t, StateAssassination, f.p.State())
	require.Equal(t, 1, f.warnings())
}

func TestStartWhileNotIdle(t *testing.T) {
	f := newFeeder(t)
	f.lines(
		"The game has started. There are 5 players, with 2 spies.",
		"Player order is: A B C D E",
		"The game has started. There are 7 players, with 3 spies.",
	)

	require.Len(t, f.p.Games(), 2)
	require.Equal(t, StateStartedAny, f.p.State())
	require.Equal(t, 1, f.warnings())
	players, spies, ok := f.p.Current().Players()
	require.True(t, ok)
	require.Equal(t, 7, players)
	require.Equal(t, 3, spies)
}

func TestAvalonLineOutOfPlace(t *testing.T) {
	f := newFeeder(t)
	f.lines(
		"The game has started. There are 5 players, with 2 spies.",
		"Player order is: A B C D E",
		"This is Resistance: Avalon, with Merlin, Assassin.",
	)

	games := f.p.Games()
	require.Len(t, games, 2)
	require.False(t, games[0].Avalon())
	require.True(t, games[1].Avalon())
	require.Equal(t, StateStartedAvalon, f.p.State())
}

func TestFatalInconsistencies(t *testing.T) {
	t.Run("assassination in base game", func(t *testing.T) {
		p := NewParser(nil)
		require.NoError(t, p.Parse("The game has started. There are 5 players, with 2 spies.", base))
		require.NoError(t, p.Parse("Player order is: A B C D E", base))
		require.NoError(t, p.Parse("O O O", base))

		err := p.Parse("The resistance successfully completed the missions, but the spies still have a chance.", base)
		require.ErrorIs(t, err, game.ErrNotAvalon)
		require.ErrorIs(t, err, game.ErrInconsistent)
	})

	t.Run("mission results go back", func(t *testing.T) {
		p := NewParser(nil)
		require.NoError(t, p.Parse("O X O", base))

		err := p.Parse("O O", base)
		require.ErrorIs(t, err, game.ErrMissionsShrunk)
	})

	t.Run("mission results change", func(t *testing.T) {
		p := NewParser(nil)
		require.NoError(t, p.Parse("O X", base))

		err := p.Parse("O O O", base)
		require.ErrorIs(t, err, game.ErrMissionsConflict)
	})
}

func TestSpyListAfterLegacyReveal(t *testing.T) {
	f := newFeeder(t)
	f.lines(
		"The spies are: A, B. Assassin, choose a resistance member to assassinate.",
		"The assassin kills C. The spies have NOT killed Merlin. Resistance wins!",
	)
	require.Equal(t, StateWaitingResLine, f.p.State())

	// the spies were already revealed, a second list belongs to another game
	f.lines("The spies were: A, B")
	require.Len(t, f.p.Games(), 2)
	require.Equal(t, 2, f.warnings())
}

func TestGamesSnapshotIsAppendOnly(t *testing.T) {
	f := newFeeder(t)
	f.lines("The game has started. There are 5 players, with 2 spies.")

	snapshot := f.p.Games()
	f.lines("The game has been reset.", "The game has started. There are 5 players, with 2 spies.")

	games := f.p.Games()
	require.Len(t, snapshot, 1)
	require.Len(t, games, 2)
	require.Same(t, snapshot[0], games[0])
}

func TestOnGameEnd(t *testing.T) {
	var ended []*game.Game
	p := NewParser(zap.NewNop(), OnGameEnd(func(g *game.Game) { ended = append(ended, g) }))

	for _, line := range []string{
		"The game has started. There are 5 players, with 2 spies.",
		"Player order is: A B C D E",
		"X X X",
		"Game is over! The spies have won!",
		"The spies were: A, B",
		"The resistance were: C, D, E",
	} {
		require.NoError(t, p.Parse(line, base))
	}

	require.Len(t, ended, 1)
	require.Same(t, p.Current(), ended[0])
}

func TestConsumeTranscript(t *testing.T) {
	r := require.New(t)

	file, err := os.Open("testdata/games.log")
	r.NoError(err)
	defer file.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	p := NewParser(zap.New(core))

	it := logparse.NewTranscriptIter("games.log", file, logparse.NewMatcher(logparse.DefaultBot, nil))
	r.NoError(p.Consume(context.Background(), it))

	games := p.Games()
	r.Len(games, 5, spew.Sdump(games))

	complete := make([]bool, 0, len(games))
	for _, g := range games {
		complete = append(complete, g.Complete())
	}
	r.Equal([]bool{true, true, false, true, false}, complete)

	r.Equal(game.SideResistance, games[0].WinningSide())
	r.Equal(3, games[0].ResScore())
	r.Equal(20*time.Minute, games[0].Duration())

	r.True(games[1].Avalon())
	r.Equal([]string{"Lady of the Lake"}, games[1].AvalonVariants())
	r.Equal(2*time.Minute, games[1].AssassinationDuration())
	role, _ := games[1].Role("carol")
	r.Equal("Merlin", role)

	r.Equal(game.SideNone, games[2].WinningSide())

	r.Equal([]string{"alice", "eve"}, games[3].SpyPlayers())
	r.Equal(game.SideResistance, games[3].WinningSide())

	r.Equal(game.SideSpies, games[4].WinningSide())
	r.Equal([]string{"a", "b", "c", "d", "e"}, games[4].Order())

	r.Equal(1, logs.Len(), "only the missing start is reported")
	r.Equal("games.log", logs.All()[0].ContextMap()["source"])
}

func TestConsumeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	file, err := os.Open("testdata/games.log")
	require.NoError(t, err)
	defer file.Close()

	p := NewParser(nil)
	it := logparse.NewTranscriptIter("games.log", file, logparse.NewMatcher(logparse.DefaultBot, nil))
	require.ErrorIs(t, p.Consume(ctx, it), context.Canceled)
	require.Empty(t, p.Games())
}

func TestParseLineReportsPosition(t *testing.T) {
	p := NewParser(nil)
	// a fully started base game cannot be assassinated
	require.NoError(t, p.Parse("The game has started. There are 5 players, with 2 spies.", base))
	require.NoError(t, p.Parse("Player order is: A B C D E", base))
	require.NoError(t, p.Parse("O O O", base))

	err := p.ParseLine(logparse.Line{
		Time:    base,
		Text:    "The resistance successfully completed the missions, but the spies still have a chance.",
		Source:  "games.log",
		LineNum: 42,
	})
	require.ErrorIs(t, err, game.ErrNotAvalon)
	require.Contains(t, err.Error(), "games.log:42:")
}

func TestStateString(t *testing.T) {
	require.Equal(t, "waiting_spy_line", StateWaitingSpyLine.String())
	require.Equal(t, "State(42)", State(42).String())
}
