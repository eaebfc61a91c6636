package uictx

import (
	"testing"
	"time"
)

func TestScopeComposesPrefixes(t *testing.T) {
	root := NewRoot()
	editor := root.Scope("editor")
	chapter := editor.Scope("chapter 3")

	if got := root.Key("title"); got != "title" {
		t.Errorf("root key = %q", got)
	}
	if got := editor.Key("save"); got != "editor.save" {
		t.Errorf("editor key = %q", got)
	}
	if got := chapter.Key("content"); got != "editor.chapter_3.content" {
		t.Errorf("nested key = %q", got)
	}
	if chapter.Prefix() != "editor.chapter_3" {
		t.Errorf("prefix = %q", chapter.Prefix())
	}
}

func TestScopeKeysNeverCollide(t *testing.T) {
	root := NewRoot()
	a := root.Scope("sidebar")
	b := root.Scope("sidebar")

	first := a.Key("save")
	second := b.Key("save")
	third := a.Key("save")

	if first == second || second == third || first == third {
		t.Fatalf("collision: %q %q %q", first, second, third)
	}
	if first != "sidebar.save" || second != "sidebar.save#2" || third != "sidebar.save#3" {
		t.Errorf("unexpected keys %q %q %q", first, second, third)
	}
}

func TestScopeDeterministicAcrossPasses(t *testing.T) {
	render := func() []string {
		root := NewRoot()
		s := root.Scope("wb")
		return []string{s.Key("name"), s.Key("name"), root.Key("name")}
	}
	a, b := render(), render()
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("pass mismatch at %d: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestCleanStripsUnsafeCharacters(t *testing.T) {
	if got := NewRoot().Key(`a"<b>`); got != "ab" {
		t.Errorf("got %q", got)
	}
}

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestCooldownRejectsWithinInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := NewCooldowns().WithClock(clock.now)

	if rem := c.Remaining("save", 2*time.Second); rem != 0 {
		t.Fatalf("first call should be permitted, got %v", rem)
	}

	clock.advance(500 * time.Millisecond)
	rem := c.Remaining("save", 2*time.Second)
	if rem != 1500*time.Millisecond {
		t.Errorf("remaining = %v, want 1.5s", rem)
	}

	// A rejected call must not push the window forward.
	clock.advance(1500 * time.Millisecond)
	if rem := c.Remaining("save", 2*time.Second); rem != 0 {
		t.Errorf("call at exactly T should be permitted, got %v", rem)
	}
}

func TestCooldownProperty(t *testing.T) {
	interval := 3 * time.Second
	gaps := []time.Duration{0, time.Millisecond, time.Second, interval - time.Nanosecond, interval, interval + time.Second, time.Hour}

	for _, gap := range gaps {
		clock := &fakeClock{t: time.Unix(0, 0)}
		c := NewCooldowns().WithClock(clock.now)
		c.Remaining("generate", interval)
		clock.advance(gap)

		rem := c.Remaining("generate", interval)
		if gap < interval && rem <= 0 {
			t.Errorf("gap %v: expected rejection", gap)
		}
		if gap >= interval && rem != 0 {
			t.Errorf("gap %v: expected permission, got %v", gap, rem)
		}
	}
}

func TestCooldownActionsAreIndependent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewCooldowns().WithClock(clock.now)

	c.Remaining("save", time.Minute)
	if rem := c.Remaining("generate", time.Minute); rem != 0 {
		t.Errorf("generate blocked by save: %v", rem)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	c.Reset("save")
	if rem := c.Remaining("save", time.Minute); rem != 0 {
		t.Errorf("reset action should be permitted, got %v", rem)
	}
}
