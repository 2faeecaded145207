package players

import (
	"fmt"
	"sort"
)

// Resolver maps old nicknames to current ones.
type Resolver struct {
	// map[old_nickname]newer_nickname
	renamed map[string]string
}

func NewResolver() *Resolver {
	return &Resolver{
		renamed: make(map[string]string),
	}
}

// AddOldNickname records that oldNickname was renamed to newNickname.
func (r *Resolver) AddOldNickname(oldNickname, newNickname string) error {
	if oldNickname == newNickname {
		return nil
	}
	if prev, ok := r.renamed[oldNickname]; ok && prev != newNickname {
		return fmt.Errorf("nickname %q renamed to both %q and %q", oldNickname, prev, newNickname)
	}
	if r.Canonical(newNickname) == oldNickname {
		return fmt.Errorf("rename cycle: %q and %q", oldNickname, newNickname)
	}
	r.renamed[oldNickname] = newNickname
	return nil
}

// Canonical returns the current nickname of a player.
func (r *Resolver) Canonical(nickname string) string {
	for {
		next, ok := r.renamed[nickname]
		if !ok {
			return nickname
		}
		nickname = next
	}
}

// Aliases returns every known nickname of the player, current one included.
func (r *Resolver) Aliases(nickname string) []string {
	canonical := r.Canonical(nickname)
	res := []string{canonical}
	for old := range r.renamed {
		if r.Canonical(old) == canonical {
			res = append(res, old)
		}
	}
	sort.Strings(res[1:])
	return res
}
