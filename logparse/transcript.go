// Package logparse extracts moderator bot lines from IRC transcripts.
package logparse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// DefaultBot is the nickname of the moderator bot.
const DefaultBot = "ResistanceBot"

const timeLayout = "2006-01-02 15:04:05"

// Line is one bot narration line.
type Line struct {
	Time time.Time
	Text string

	Source  string
	LineNum int
}

// Matcher recognizes transcript records said by the bot.
type Matcher struct {
	re  *regexp.Regexp
	loc *time.Location
}

// NewMatcher builds a matcher for the bot nickname. The nickname is matched
// case-insensitively, with an optional channel mode prefix and a trailing
// underscore. Timestamps are read in loc, or UTC if loc is nil.
func NewMatcher(bot string, loc *time.Location) *Matcher {
	if loc == nil {
		loc = time.UTC
	}
	// 2013-03-14 20:01:02 <@ResistanceBot> The game has been reset.
	re := regexp.MustCompile(`(?i)^(\d{4}-\d\d-\d\d \d\d:\d\d:\d\d) <[@+]?\s*` + regexp.QuoteMeta(bot) + `_?> (.*)$`)
	return &Matcher{re: re, loc: loc}
}

// Match returns the timestamp and text of a bot record.
func (m *Matcher) Match(raw string) (time.Time, string, bool) {
	const (
		fieldTime = iota + 1
		fieldText
		allFields
	)

	fields := m.re.FindStringSubmatch(strings.TrimRight(raw, "\r\n"))
	if len(fields) != allFields {
		return time.Time{}, "", false
	}

	at, err := time.ParseInLocation(timeLayout, fields[fieldTime], m.loc)
	if err != nil {
		// digits in the right places but not a date
		return time.Time{}, "", false
	}
	return at, fields[fieldText], true
}

// TranscriptIter reads bot lines from one transcript.
type TranscriptIter struct {
	rd      *bufio.Reader
	m       *Matcher
	source  string
	lineNum int
}

func NewTranscriptIter(source string, r io.Reader, m *Matcher) *TranscriptIter {
	return &TranscriptIter{
		rd:     bufio.NewReader(r),
		m:      m,
		source: source,
	}
}

// Next returns the next bot line. It returns io.EOF at the end of the transcript.
func (it *TranscriptIter) Next() (Line, error) {
	for {
		raw, err := it.rd.ReadString('\n')
		if raw == "" && err != nil {
			return Line{}, err
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return Line{}, fmt.Errorf("read %s: %w", it.source, err)
		}
		it.lineNum++

		if at, text, ok := it.m.Match(raw); ok {
			return Line{
				Time:    at,
				Text:    text,
				Source:  it.source,
				LineNum: it.lineNum,
			}, nil
		}
		if err != nil {
			return Line{}, err
		}
	}
}

// MultiIter reads several transcripts one after another.
type MultiIter struct {
	iters   []*TranscriptIter
	closers []io.Closer
	idx     int
}

func NewMultiIter(iters ...*TranscriptIter) *MultiIter {
	return &MultiIter{iters: iters}
}

// OpenFiles opens the transcripts in order. Close must be called on the result.
func OpenFiles(paths []string, m *Matcher) (*MultiIter, error) {
	res := &MultiIter{}

	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("open transcript: %w", err), res.Close())
		}
		res.closers = append(res.closers, file)
		res.iters = append(res.iters, NewTranscriptIter(path, file, m))
	}

	return res, nil
}

// Next returns the next bot line of the current transcript, moving to the
// next transcript at its end. It returns io.EOF after the last one.
func (mi *MultiIter) Next() (Line, error) {
	for mi.idx < len(mi.iters) {
		line, err := mi.iters[mi.idx].Next()
		if errors.Is(err, io.EOF) {
			mi.idx++
			continue
		}
		return line, err
	}
	return Line{}, io.EOF
}

func (mi *MultiIter) Close() error {
	var err error
	for _, c := range mi.closers {
		err = multierr.Append(err, c.Close())
	}
	mi.closers = nil
	return err
}
