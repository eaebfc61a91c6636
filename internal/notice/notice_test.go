package notice

import (
	"errors"
	"fmt"
	"testing"
)

func TestAdvisoryUnwrapsAndKeepsDetail(t *testing.T) {
	base := errors.New("open /x/p.json: no such file")
	err := fmt.Errorf("loading: %w", Advise(base, "Could not open project."))

	if !errors.Is(err, base) {
		t.Error("expected wrapped error to be reachable")
	}
	msg, ok := Message(err)
	if !ok || msg != "Could not open project." {
		t.Errorf("Message = %q, %v", msg, ok)
	}
}

func TestFromFallsBackForPlainErrors(t *testing.T) {
	n := From(errors.New("boom"), "Something went wrong.")
	if n.Level != LevelError || n.Text != "Something went wrong." {
		t.Errorf("unexpected notice %+v", n)
	}

	n = From(Advise(errors.New("x"), "Slow down."), "unused")
	if n.Level != LevelWarning || n.Text != "Slow down." {
		t.Errorf("unexpected notice %+v", n)
	}
}
