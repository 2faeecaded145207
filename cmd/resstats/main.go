package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Feresey/resstats/config"
	"github.com/Feresey/resstats/game"
	"github.com/Feresey/resstats/logparse"
	"github.com/Feresey/resstats/players"
	"github.com/Feresey/resstats/session"
	"github.com/Feresey/resstats/stats"
)

type flags struct {
	configFile  string
	playersFile string
	outputFile  string
	format      string
	follow      bool
	verbose     bool
}

func main() {
	var f flags

	flag.StringVar(&f.configFile, "config", "", "Path to the TOML config file")
	flag.StringVar(&f.playersFile, "players", "", "Path to the players file")
	flag.StringVar(&f.outputFile, "o", "", "Path to the CSV game table")
	flag.StringVar(&f.format, "format", "", "Report format: text or yaml")
	flag.BoolVar(&f.follow, "follow", false, "Keep reading the last transcript as it grows")
	flag.BoolVar(&f.verbose, "v", false, "Debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] transcript... [player...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg, f.verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("run", uuid.NewString()))

	transcripts, names := splitArgs(flag.Args())
	if len(transcripts) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	pl, err := loadPlayers(cfg.Report.PlayersFile, names)
	if err != nil {
		logger.Fatal("load players", zap.Error(err))
	}

	r := &Runner{
		cfg:     cfg,
		follow:  f.follow,
		logger:  logger,
		players: pl,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("start parse", zap.Strings("transcripts", transcripts))
	if err := r.run(ctx, transcripts); err != nil {
		fields := []zap.Field{zap.Error(err)}
		if errors.Is(err, game.ErrInconsistent) {
			fields = append(fields, zap.Stringer("game", r.parser.Current()))
		}
		logger.Fatal("parse transcripts", fields...)
	}
}

func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if f.playersFile != "" {
		cfg.Report.PlayersFile = f.playersFile
	}
	if f.outputFile != "" {
		cfg.Report.CSVOutput = f.outputFile
	}
	if f.format != "" {
		cfg.Report.Format = f.format
	}
	if f.verbose {
		cfg.Log.Level = zapcore.DebugLevel.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	lvl, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}

	lc := zap.NewDevelopmentConfig()
	if cfg.Log.Color {
		lc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	lc.Level = zap.NewAtomicLevelAt(lvl)
	if !verbose {
		lc.DisableStacktrace = true
	}

	return lc.Build()
}

// splitArgs separates existing files from player names.
func splitArgs(args []string) (transcripts, names []string) {
	for _, arg := range args {
		if st, err := os.Stat(arg); err == nil && !st.IsDir() {
			transcripts = append(transcripts, arg)
		} else {
			names = append(names, arg)
		}
	}
	return transcripts, names
}

func loadPlayers(path string, names []string) (*players.Players, error) {
	pl := players.New()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open players file: %w", err)
		}
		defer file.Close()

		pl, err = players.Parse(file)
		if err != nil {
			return nil, fmt.Errorf("parse players file %s: %w", path, err)
		}
	}
	for _, name := range names {
		pl.Add(name)
	}
	return pl, nil
}

type Runner struct {
	cfg    *config.Config
	follow bool

	logger  *zap.Logger
	players *players.Players
	parser  *session.Parser
}

func (r *Runner) run(ctx context.Context, transcripts []string) error {
	loc, err := r.cfg.Location()
	if err != nil {
		return err
	}
	matcher := logparse.NewMatcher(r.cfg.BotName, loc)

	r.parser = session.NewParser(r.logger, session.OnGameEnd(func(g *game.Game) {
		lvl := zapcore.DebugLevel
		if r.follow {
			lvl = zapcore.InfoLevel
		}
		r.logger.Check(lvl, "game finished").Write(zap.Stringer("game", g))
	}))

	batch := transcripts
	if r.follow {
		batch = transcripts[:len(transcripts)-1]
	}
	if err := r.readAll(ctx, batch, matcher); err != nil {
		return err
	}

	if r.follow {
		if err := r.followLast(ctx, transcripts[len(transcripts)-1], matcher); err != nil {
			return err
		}
	}

	games := r.parser.Games()
	r.logger.Info("parsed games", zap.Int("games", len(games)))

	if err := r.writeReport(os.Stdout, games); err != nil {
		return err
	}
	if r.cfg.Report.CSVOutput != "" {
		if err := r.writeTable(r.cfg.Report.CSVOutput, games); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) readAll(ctx context.Context, paths []string, m *logparse.Matcher) (err error) {
	if len(paths) == 0 {
		return nil
	}

	it, err := logparse.OpenFiles(paths, m)
	if err != nil {
		return fmt.Errorf("open transcripts: %w", err)
	}
	defer func() { err = multierr.Append(err, it.Close()) }()

	return r.parser.Consume(ctx, it)
}

// followLast reads the whole transcript and waits for new lines until the
// run is interrupted.
func (r *Runner) followLast(ctx context.Context, path string, m *logparse.Matcher) error {
	interval, err := r.cfg.PollInterval()
	if err != nil {
		return err
	}

	r.logger.Info("follow transcript", zap.String("path", path))
	err = logparse.Follow(ctx, path, m, logparse.FollowOptions{
		FromStart:         true,
		PollInterval:      interval,
		MaxReadsPerSecond: r.cfg.Follow.MaxReadsPerSecond,
		Log:               r.logger,
	}, r.parser.ParseLine)

	if errors.Is(err, context.Canceled) {
		r.logger.Info("follow stopped")
		return nil
	}
	return err
}

func (r *Runner) writeReport(w io.Writer, games []*game.Game) error {
	report := stats.BuildReport(games, stats.ReportOptions{
		Players:  r.players.Tracked(),
		Resolve:  r.players.Canonical,
		Hidden:   r.players.Hidden,
		MinGames: r.cfg.Report.MinGames,
	})

	switch r.cfg.Report.Format {
	case config.FormatYAML:
		return report.WriteYAML(w)
	default:
		return report.WriteText(w)
	}
}

func (r *Runner) writeTable(path string, games []*game.Game) error {
	output, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer output.Close()

	w := csv.NewWriter(output)

	it := NewGameIter(games)
	if err := w.Write(it.Header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for it.Next() {
		if err := w.Write(it.Line()); err != nil {
			return fmt.Errorf("write game line: %w", err)
		}
	}

	r.logger.Debug("flush output", zap.String("path", path))
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return output.Close()
}
