package logparse

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, next func() (Line, error)) []Line {
	t.Helper()

	var res []Line
	for {
		line, err := next()
		if errors.Is(err, io.EOF) {
			return res
		}
		require.NoError(t, err)
		res = append(res, line)
	}
}

func TestMatcher(t *testing.T) {
	m := NewMatcher(DefaultBot, nil)

	tests := []struct {
		raw  string
		ok   bool
		text string
	}{
		{raw: "2013-03-14 20:00:02 <@ResistanceBot> The game has been reset.", ok: true, text: "The game has been reset."},
		{raw: "2013-03-14 20:00:02 <+resistancebot_> O X", ok: true, text: "O X"},
		{raw: "2013-03-14 20:00:02 < RESISTANCEBOT> O\r\n", ok: true, text: "O"},
		{raw: "2013-03-14 20:00:02 <ResistanceBot> O", ok: true, text: "O"},
		{raw: "2013-03-14 20:00:02 <@ResistanceBot__> O"},
		{raw: "2013-03-14 20:00:02 < alice> The game has been reset."},
		{raw: "2013-13-14 20:00:02 <@ResistanceBot> O"},
		{raw: "20:00:02 <@ResistanceBot> O"},
		{raw: "2013-03-14 20:00:02 -!- ResistanceBot has joined #resistance"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			at, text, ok := m.Match(tt.raw)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			require.Equal(t, tt.text, text)
			require.Equal(t, time.Date(2013, time.March, 14, 20, 0, 2, 0, time.UTC), at)
		})
	}
}

func TestMatcherCustomBot(t *testing.T) {
	m := NewMatcher("Avalon.Bot", time.UTC)

	_, _, ok := m.Match("2013-03-14 20:00:02 <@avalon.bot> O")
	require.True(t, ok)

	_, _, ok = m.Match("2013-03-14 20:00:02 <@avalonXbot> O")
	require.False(t, ok, "bot name is not a pattern")
}

func TestTranscriptIter(t *testing.T) {
	r := require.New(t)

	file, err := os.Open("testdata/transcript.log")
	r.NoError(err)
	defer file.Close()

	it := NewTranscriptIter("transcript.log", file, NewMatcher(DefaultBot, nil))
	lines := readAll(t, it.Next)

	r.Len(lines, 10)
	r.Equal("The game has started. There are 5 players, with 2 spies.", lines[0].Text)
	r.Equal(3, lines[0].LineNum)
	r.Equal("transcript.log", lines[0].Source)
	r.Equal("O X", lines[3].Text)
	r.Equal("The game has been reset.", lines[9].Text)
	r.Equal(time.Date(2013, time.March, 14, 20, 20, 6, 0, time.UTC), lines[9].Time)
}

func TestTranscriptIterLastLineWithoutNewline(t *testing.T) {
	data := "2013-03-14 20:00:01 <@ResistanceBot> O\n2013-03-14 20:00:02 <@ResistanceBot> O X"
	it := NewTranscriptIter("mem", strings.NewReader(data), NewMatcher(DefaultBot, nil))

	lines := readAll(t, it.Next)
	require.Len(t, lines, 2)
	require.Equal(t, "O X", lines[1].Text)
	require.Equal(t, 2, lines[1].LineNum)
}

func TestOpenFilesReadsInOrder(t *testing.T) {
	r := require.New(t)
	dir := t.TempDir()

	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")
	r.NoError(os.WriteFile(first, []byte(
		"2013-03-14 20:00:01 <@ResistanceBot> O\n"+
			"2013-03-14 20:00:03 <@ResistanceBot> O O\n"), 0o644))
	r.NoError(os.WriteFile(second, []byte(
		"2013-03-14 20:00:02 <@ResistanceBot> X\n"), 0o644))

	mi, err := OpenFiles([]string{first, second}, NewMatcher(DefaultBot, nil))
	r.NoError(err)

	lines := readAll(t, mi.Next)
	r.NoError(mi.Close())

	var texts []string
	for _, line := range lines {
		texts = append(texts, line.Text)
	}
	r.Equal([]string{"O", "O O", "X"}, texts, "sources are not interleaved")
	r.Equal(second, lines[2].Source)
}

func TestOpenFilesMissing(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "a.log")
	require.NoError(t, os.WriteFile(existing, nil, 0o644))

	_, err := OpenFiles([]string{existing, filepath.Join(dir, "missing.log")}, NewMatcher(DefaultBot, nil))
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}
