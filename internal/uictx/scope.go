// Package uictx holds per-render UI helpers: collision-free element keys and
// per-action cooldowns.
package uictx

import (
	"strconv"
	"strings"
)

// Separator joins scope prefixes and key names.
const Separator = "."

// Scope hands out element identifiers under a prefix. All scopes derived from
// the same root share one registry, so a key is never issued twice within a
// render pass.
type Scope struct {
	prefix string
	issued map[string]int
}

// NewRoot starts a fresh render pass.
func NewRoot() *Scope {
	return &Scope{issued: make(map[string]int)}
}

// Scope returns a child scope whose prefix is this scope's prefix joined with
// prefix.
func (s *Scope) Scope(prefix string) *Scope {
	return &Scope{prefix: s.join(clean(prefix)), issued: s.issued}
}

// Prefix returns the composed prefix of the scope.
func (s *Scope) Prefix() string { return s.prefix }

// Key returns a deterministic identifier for name. Repeated requests for the
// same identifier in one pass get "#2", "#3" and so on in request order.
func (s *Scope) Key(name string) string {
	id := s.join(clean(name))
	s.issued[id]++
	if n := s.issued[id]; n > 1 {
		return id + "#" + strconv.Itoa(n)
	}
	return id
}

func (s *Scope) join(name string) string {
	switch {
	case s.prefix == "":
		return name
	case name == "":
		return s.prefix
	}
	return s.prefix + Separator + name
}

// clean keeps identifiers usable as HTML ids and form names.
func clean(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, s)
}
