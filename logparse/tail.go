package logparse

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// Tailer reads bot lines appended to a growing transcript.
type Tailer struct {
	file *os.File
	rd   *bufio.Reader
	m    *Matcher

	source  string
	lineNum int
	// unterminated tail of the file, completed by a later read
	pending string
}

// NewTailer opens path. Unless fromStart is set, only lines written after
// the call are read.
func NewTailer(path string, m *Matcher, fromStart bool) (*Tailer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}

	if !fromStart {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			return nil, multierr.Append(fmt.Errorf("seek to end: %w", err), file.Close())
		}
	}

	return &Tailer{
		file:   file,
		rd:     bufio.NewReader(file),
		m:      m,
		source: path,
	}, nil
}

// ReadAvailable passes every complete bot line written so far to fn. A
// trailing partial line is kept until its newline arrives.
func (t *Tailer) ReadAvailable(fn func(Line) error) error {
	if err := t.checkTruncated(); err != nil {
		return err
	}

	for {
		chunk, err := t.rd.ReadString('\n')
		t.pending += chunk
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read %s: %w", t.source, err)
		}

		raw := t.pending
		t.pending = ""
		t.lineNum++

		at, text, ok := t.m.Match(raw)
		if !ok {
			continue
		}
		err = fn(Line{
			Time:    at,
			Text:    text,
			Source:  t.source,
			LineNum: t.lineNum,
		})
		if err != nil {
			return err
		}
	}
}

// checkTruncated restarts from the beginning of a file that shrank under us.
func (t *Tailer) checkTruncated() error {
	pos, err := t.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}
	stat, err := t.file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", t.source, err)
	}
	if stat.Size() >= pos {
		return nil
	}

	if _, err := t.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek to start: %w", err)
	}
	t.rd.Reset(t.file)
	t.pending = ""
	t.lineNum = 0
	return nil
}

func (t *Tailer) Close() error { return t.file.Close() }

// FollowOptions tunes Follow.
type FollowOptions struct {
	// FromStart reads the existing content before waiting for new lines.
	FromStart bool
	// PollInterval is the backup re-read period for missed notifications.
	PollInterval time.Duration
	// MaxReadsPerSecond caps how often the file is re-read.
	MaxReadsPerSecond int

	Log *zap.Logger
}

func (o *FollowOptions) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.MaxReadsPerSecond <= 0 {
		o.MaxReadsPerSecond = 10
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
}

// Follow passes bot lines of a live transcript to fn until ctx is done or fn
// fails. It re-reads the file on write notifications and on a ticker.
func Follow(ctx context.Context, path string, m *Matcher, opts FollowOptions, fn func(Line) error) (err error) {
	opts.setDefaults()

	tailer, err := NewTailer(path, m, opts.FromStart)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, tailer.Close()) }()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() { err = multierr.Append(err, watcher.Close()) }()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	rl := ratelimit.New(opts.MaxReadsPerSecond)

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	if err := tailer.ReadAvailable(fn); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			opts.Log.Warn("file watcher error", zap.String("path", path), zap.Error(werr))
			continue
		case <-ticker.C:
		}

		rl.Take()
		if err := tailer.ReadAvailable(fn); err != nil {
			return err
		}
	}
}
