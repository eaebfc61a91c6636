package progress

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recorder struct {
	events []string
}

func (r *recorder) Start(total int)                    { r.events = append(r.events, "start") }
func (r *recorder) Update(current int, message string) { r.events = append(r.events, message) }
func (r *recorder) Finish()                            { r.events = append(r.events, "finish") }

func TestFuncStartsAndFinishesOnce(t *testing.T) {
	rec := &recorder{}
	fn := Func(rec)
	fn(1, 2, "a.json")
	fn(2, 2, "b.json")

	want := []string{"start", "a.json", "b.json", "finish"}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestCIReporter(t *testing.T) {
	t.Setenv("CI", "true")
	var buf bytes.Buffer
	r := NewReporter(&buf, "Repairing projects")
	if _, ok := r.(*CIReporter); !ok {
		t.Fatalf("expected CIReporter, got %T", r)
	}
	Func(r)(1, 1, "a.json")

	want := "Repairing projects: 1 files\n[1/1] a.json\nRepairing projects: done\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q", got)
	}
}
