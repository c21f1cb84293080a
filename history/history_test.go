package history

import (
	"errors"
	"slices"
	"testing"
)

// setCommand switches a shared int between two captured values.
type setCommand struct {
	name          string
	target        *int
	before, after int
	log           *Log
	fail          bool
}

func (c *setCommand) Name() string { return c.name }

func (c *setCommand) Apply(dir Direction) error {
	if c.fail {
		return errors.New("boom")
	}
	if c.log != nil {
		// Re-entrant push must be refused.
		c.log.Push(&setCommand{name: "nested", target: c.target}, nil)
	}
	if dir == Undo {
		*c.target = c.before
	} else {
		*c.target = c.after
	}
	return nil
}

func TestLogUndoRedo(t *testing.T) {
	log := NewLog(0)
	v := 0
	for i := 1; i <= 3; i++ {
		v = i
		log.Push(&setCommand{name: "set", target: &v, before: i - 1, after: i}, nil)
	}

	tests := []struct {
		name string
		op   func() error
		want int
	}{
		{"undo 3", log.Undo, 2},
		{"undo 2", log.Undo, 1},
		{"redo 2", log.Redo, 2},
		{"undo 2 again", log.Undo, 1},
		{"undo 1", log.Undo, 0},
	}
	for _, tt := range tests {
		if err := tt.op(); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if v != tt.want {
			t.Errorf("%s: value = %d, want %d", tt.name, v, tt.want)
		}
	}

	if err := log.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() on empty = %v, want ErrNothingToUndo", err)
	}
}

func TestLogPushTruncatesRedo(t *testing.T) {
	log := NewLog(0)
	v := 0
	log.Push(&setCommand{name: "a", target: &v, after: 1}, nil)
	log.Push(&setCommand{name: "b", target: &v, before: 1, after: 2}, nil)
	_ = log.Undo()
	log.Push(&setCommand{name: "c", target: &v, before: 1, after: 5}, nil)

	if got := log.Names(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("Names() = %v, want [a c]", got)
	}
	if log.CanRedo() {
		t.Error("CanRedo() should be false after a new push")
	}
	if err := log.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo() = %v, want ErrNothingToRedo", err)
	}
}

func TestLogReplayGuard(t *testing.T) {
	log := NewLog(0)
	v := 0
	log.Push(&setCommand{name: "guarded", target: &v, after: 1, log: log}, nil)

	if err := log.Undo(); err != nil {
		t.Fatal(err)
	}
	if err := log.Redo(); err != nil {
		t.Fatal(err)
	}
	if log.Len() != 1 {
		t.Errorf("Len() = %d, want 1: replay must not generate entries", log.Len())
	}
	if log.Replaying() {
		t.Error("Replaying() should be false after replay")
	}
}

func TestLogApplyFailureKeepsCursor(t *testing.T) {
	log := NewLog(0)
	v := 0
	log.Push(&setCommand{name: "bad", target: &v, fail: true}, nil)

	if err := log.Undo(); err == nil {
		t.Fatal("Undo() should report the command error")
	}
	if log.Cursor() != 1 {
		t.Errorf("Cursor() = %d, want 1 after failed undo", log.Cursor())
	}
	if log.Replaying() {
		t.Error("guard not released after failure")
	}
}

func TestLogLimit(t *testing.T) {
	log := NewLog(2)
	v := 0
	for _, n := range []string{"a", "b", "c"} {
		log.Push(&setCommand{name: n, target: &v}, nil)
	}
	if got := log.Names(); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("Names() = %v, want [b c]", got)
	}
	if log.Cursor() != 2 {
		t.Errorf("Cursor() = %d, want 2", log.Cursor())
	}
}

func TestLogOnChangeAndMeta(t *testing.T) {
	log := NewLog(0)
	calls := 0
	log.OnChange(func() { calls++ })
	v := 0
	log.Push(&setCommand{name: "m", target: &v}, Meta{"layer": "L1"})
	_ = log.Undo()
	log.Clear()

	if calls != 3 {
		t.Errorf("observer calls = %d, want 3", calls)
	}
	if log.Push(nil, nil) {
		t.Error("Push(nil) should be refused")
	}
	log.Push(&setCommand{name: "m2", target: &v}, Meta{"layer": "L2"})
	if e := log.Entries()[0]; e.Meta["layer"] != "L2" || e.Seq == 0 {
		t.Errorf("entry = %+v, want meta layer=L2 and non-zero seq", e)
	}
}

func TestDirectionString(t *testing.T) {
	if Do.String() != "do" || Undo.String() != "undo" {
		t.Errorf("Direction strings = %q/%q", Do.String(), Undo.String())
	}
}
