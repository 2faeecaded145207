// Package players reads the list of players to report on.
package players

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Players describes whose stats are reported: tracked players, renamed
// nicknames and hidden accounts.
type Players struct {
	// canonical names in file order
	tracked []string
	// nicknames left out of the leaderboard
	hidden map[string]bool

	*Resolver
}

func New() *Players {
	return &Players{
		hidden:   make(map[string]bool),
		Resolver: NewResolver(),
	}
}

// Parse reads a players file:
//
//	=== PLAYERS ===
//	alice
//	bobby, bob
//	=== HIDDEN ===
//	testbot
//
// In the players chapter the last name of a line is the current nickname and
// the others are older ones.
func Parse(rd io.Reader) (*Players, error) {
	p := New()
	return p, p.parse(rd)
}

func (p *Players) parse(rd io.Reader) error {
	scanner := bufio.NewScanner(rd)

	const (
		chapterPlayers = "=== PLAYERS ==="
		chapterHidden  = "=== HIDDEN ==="
	)

	var chapter string

	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		// chapters
		switch line {
		case chapterPlayers, chapterHidden:
			chapter = line
			continue
		}
		if strings.HasPrefix(line, "===") {
			return fmt.Errorf("line %d: unknown chapter %q", lineNum, line)
		}

		var err error

		switch chapter {
		case chapterPlayers:
			err = p.parsePlayer(line)
		case chapterHidden:
			p.hidden[line] = true
		default:
			err = fmt.Errorf("name outside of a chapter: %q", line)
		}

		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	return scanner.Err()
}

func (p *Players) parsePlayer(s string) error {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return fmt.Errorf("nickname not found: %q", s)
	}

	currName := names[len(names)-1]
	for i := 0; i < len(names)-1; i++ {
		if err := p.Resolver.AddOldNickname(names[i], currName); err != nil {
			return err
		}
	}
	p.Add(currName)

	return nil
}

// Add tracks a player by its current nickname.
func (p *Players) Add(name string) {
	name = p.Canonical(name)
	for _, tracked := range p.tracked {
		if tracked == name {
			return
		}
	}
	p.tracked = append(p.tracked, name)
}

// Tracked returns the current nicknames of the tracked players.
func (p *Players) Tracked() []string {
	return append([]string(nil), p.tracked...)
}

// Hidden reports whether any nickname of the player is hidden.
func (p *Players) Hidden(name string) bool {
	for _, alias := range p.Aliases(name) {
		if p.hidden[alias] {
			return true
		}
	}
	return false
}
