// Package session rebuilds games from the bot narration of a transcript.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Feresey/resstats/game"
	"github.com/Feresey/resstats/logparse"
	"github.com/Feresey/resstats/parse"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Parser is a state machine fed with bot lines in transcript order. Lines
// that do not fit the current state are logged and the parser resynchronizes,
// usually by starting a new game. Only an inconsistent game is an error.
type Parser struct {
	logger *zap.Logger

	state   State
	current *game.Game
	games   []*game.Game

	onGameEnd func(*game.Game)
}

type Option func(*Parser)

// OnGameEnd sets a callback invoked when the last roster of a game is read.
func OnGameEnd(fn func(*game.Game)) Option {
	return func(p *Parser) { p.onGameEnd = fn }
}

func NewParser(logger *zap.Logger, opts ...Option) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Parser{
		logger: logger,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Games returns every game seen so far, complete or not, in start order.
// Earlier entries never change; only the last one may still be updated.
func (p *Parser) Games() []*game.Game {
	return append([]*game.Game(nil), p.games...)
}

// Current is the game lines are applied to, nil before the first game.
func (p *Parser) Current() *game.Game { return p.current }

func (p *Parser) State() State { return p.state }

// Parse applies one narration line said at the given time.
func (p *Parser) Parse(text string, at time.Time) error {
	return p.feed(text, at)
}

// ParseLine applies a transcript line. Errors carry the line position.
func (p *Parser) ParseLine(line logparse.Line) error {
	err := p.feed(line.Text, line.Time,
		zap.String("source", line.Source),
		zap.Int("line_num", line.LineNum),
	)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", line.Source, line.LineNum, err)
	}
	return nil
}

// LineSource yields transcript lines and io.EOF at the end.
type LineSource interface {
	Next() (logparse.Line, error)
}

// Consume parses every line of src.
func (p *Parser) Consume(ctx context.Context, src LineSource) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}

		if err := p.ParseLine(line); err != nil {
			return err
		}
	}
}

func (p *Parser) feed(text string, at time.Time, fields ...zap.Field) error {
	ev, ok := parse.Recognize(text)
	if !ok {
		return nil
	}

	d := dispatch{p: p, ev: ev, at: at, fields: fields}
	if err := d.apply(); err != nil {
		return fmt.Errorf("apply %s line: %w", ev.Kind, err)
	}
	return nil
}

// dispatch applies one recognized line.
type dispatch struct {
	p      *Parser
	ev     parse.Event
	at     time.Time
	fields []zap.Field
}

func (d *dispatch) apply() error {
	p := d.p

	switch d.ev.Kind {
	case parse.KindStart:
		if p.state != StateIdle {
			d.log(zapcore.WarnLevel, "game start but not idle - last game probably incomplete")
		}
		p.startGame(game.New(d.at, d.ev.NumPlayers, d.ev.NumSpies))
		p.state = StateStartedAny

	case parse.KindAvalon:
		if p.state != StateStartedAny {
			d.resync("avalon line but not started - making new game")
		}
		if err := p.current.MarkAvalon(d.ev.Roles, d.ev.Variants); err != nil {
			return err
		}
		p.state = StateStartedAvalon

	case parse.KindOrder:
		if p.state != StateStartedAny && p.state != StateStartedAvalon {
			d.resync("order line but not started - making new game")
		}
		if err := p.current.SetOrder(d.ev.Order); err != nil {
			return err
		}
		p.state = StateInProgress

	case parse.KindMissions:
		if p.state != StateInProgress {
			d.resync("score line but not in progress - making new game")
			p.state = StateInProgress
		}
		if err := p.current.SetMissionSuccess(d.ev.Missions); err != nil {
			return err
		}

	case parse.KindResistanceWin, parse.KindSpyWin:
		if p.state != StateInProgress {
			d.resync("win line but not in progress - making new game")
		}
		winner := game.SideResistance
		if d.ev.Kind == parse.KindSpyWin {
			winner = game.SideSpies
		}
		if err := p.current.WinOnMissions(winner, d.at); err != nil {
			return err
		}
		p.state = StateWaitingSpyLine

	case parse.KindAssassinationStart:
		if p.state != StateInProgress {
			d.resync("assassination but not in progress - making new game")
		}
		if err := p.current.BeginAssassination(d.at); err != nil {
			return err
		}
		p.state = StateAssassination

	case parse.KindAssassinList:
		// a reset cannot lead here, so this is a game we missed the start of
		if p.state != StateAssassination {
			d.resync("assassin list but not assassination - making new game")
		}
		if err := p.current.SetSpies(d.ev.List); err != nil {
			return err
		}
		p.state = StateAssassinationRevealed

	case parse.KindAssassinKill, parse.KindAssassinMiss:
		next := StateWaitingSpyLine
		switch p.state {
		case StateAssassination:
		case StateAssassinationRevealed:
			next = StateWaitingResLine
		default:
			// treated as a non-legacy assassination
			d.resync("assassination target but not assassination - making new game")
		}
		winner := game.SideResistance
		if d.ev.Kind == parse.KindAssassinKill {
			winner = game.SideSpies
		}
		if err := p.current.Assassinate(d.ev.Target, d.at, winner); err != nil {
			return err
		}
		p.state = next

	case parse.KindSpyList:
		if p.state != StateWaitingSpyLine {
			switch {
			case p.current == nil:
				d.resync("spy list unexpected - making new game")
			case len(p.current.SpyPlayers()) == 0:
				// a reset game never lists its spies, fill them in
				d.log(zapcore.InfoLevel, "spy list unexpected - reset suspected")
			default:
				d.resync("spy list unexpected - making new game")
			}
		}
		if err := p.current.SetSpies(d.ev.List); err != nil {
			return err
		}
		p.state = StateWaitingResLine

	case parse.KindResistanceList:
		// A reset cannot lead here, the spy list comes first. Legacy
		// assassinations may not have listed the spies though.
		if p.state != StateWaitingResLine {
			switch {
			case p.current == nil:
				d.resync("res list unexpected - making new game")
			case len(p.current.ResistancePlayers()) == 0:
				// TODO: rebuild the spy roster from the order and the resistance roster
				d.log(zapcore.WarnLevel, "res list unexpected - spy list needs to be reconstructed")
			default:
				d.resync("res list unexpected - making new game")
			}
		}
		if err := p.current.SetResistance(d.ev.List); err != nil {
			return err
		}
		p.state = StateIdle
		if p.onGameEnd != nil {
			p.onGameEnd(p.current)
		}

	case parse.KindReset:
		p.state = StateIdle
	}

	return nil
}

// resync abandons the current game and starts a synthesized one.
func (d *dispatch) resync(msg string) {
	d.log(zapcore.WarnLevel, msg)
	d.p.startGame(game.NewPartial(d.at))
}

func (d *dispatch) log(lvl zapcore.Level, msg string) {
	ce := d.p.logger.Check(lvl, msg)
	if ce == nil {
		return
	}
	ce.Write(append([]zap.Field{
		zap.Time("at", d.at),
		zap.Stringer("line", d.ev.Kind),
		zap.Stringer("state", d.p.state),
	}, d.fields...)...)
}

func (p *Parser) startGame(g *game.Game) {
	p.current = g
	p.games = append(p.games, g)
}
