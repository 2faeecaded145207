package game

// slot is an optional value that can be written only once.
type slot[T any] struct {
	v   T
	set bool
}

func (s *slot[T]) get() (T, bool) { return s.v, s.set }

// put stores v and freezes the slot. It reports false if the slot was already set.
func (s *slot[T]) put(v T) bool {
	if s.set {
		return false
	}
	s.v = v
	s.set = true
	return true
}
