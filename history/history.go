// Package history provides the session undo/redo log.
//
// A Command is a reversible record of one committed user action. Commands
// carry value snapshots taken at commit time and apply them in either
// direction; they never hold on to live mutable state.
//
// The Log guards its own replay: while Undo or Redo runs, Push refuses new
// commands, so applying a command can never generate history.
//
//	log := history.NewLog(200)
//	log.Push(cmd, history.Meta{"layer": id})
//	_ = log.Undo()
//	_ = log.Redo()
package history

import (
	"errors"
	"fmt"

	"github.com/gogpu/layerkit"
)

// Errors returned by Log traversal.
var (
	ErrNothingToUndo = errors.New("history: nothing to undo")
	ErrNothingToRedo = errors.New("history: nothing to redo")
)

// Direction selects which snapshot a command restores.
type Direction uint8

// Direction constants.
const (
	// Do re-applies the committed (after) state.
	Do Direction = iota
	// Undo restores the pre-commit (before) state.
	Undo
)

// String returns "do" or "undo".
func (d Direction) String() string {
	if d == Undo {
		return "undo"
	}
	return "do"
}

// Command is one reversible, replayable action.
type Command interface {
	// Name identifies the action, e.g. "layer.create".
	Name() string

	// Apply restores the state on the given side of the action.
	// Apply must be idempotent for a given direction.
	Apply(dir Direction) error
}

// Meta is free-form descriptive data attached to an entry.
type Meta map[string]string

// Entry is a command as stored in the log.
type Entry struct {
	Seq     uint64
	Command Command
	Meta    Meta
}

// Name returns the command name.
func (e Entry) Name() string { return e.Command.Name() }

// Log is a linear undo/redo stack. Entries before the cursor are applied;
// entries at or after it can be redone. Pushing a new entry discards the
// redo tail.
//
// Log is not safe for concurrent use; it belongs to the session's event
// loop.
type Log struct {
	entries   []Entry
	cursor    int
	limit     int
	seq       uint64
	replaying bool
	observers []func()
}

// NewLog creates a log keeping at most limit entries. A limit of 0 means
// unlimited; the oldest entries are discarded first.
func NewLog(limit int) *Log {
	if limit < 0 {
		limit = 0
	}
	return &Log{limit: limit}
}

// Push appends cmd as the newest applied entry. It returns false, and
// records nothing, while the log is replaying an undo or redo.
func (l *Log) Push(cmd Command, meta Meta) bool {
	if cmd == nil {
		return false
	}
	if l.replaying {
		layerkit.Logger().Debug("history: push ignored during replay", "name", cmd.Name())
		return false
	}
	l.seq++
	l.entries = append(l.entries[:l.cursor], Entry{Seq: l.seq, Command: cmd, Meta: meta})
	if l.limit > 0 && len(l.entries) > l.limit {
		drop := len(l.entries) - l.limit
		l.entries = append(l.entries[:0:0], l.entries[drop:]...)
	}
	l.cursor = len(l.entries)
	layerkit.Logger().Debug("history: push", "name", cmd.Name(), "seq", l.seq, "len", len(l.entries))
	l.notify()
	return true
}

// Undo reverts the newest applied entry.
func (l *Log) Undo() error {
	if l.cursor == 0 {
		return ErrNothingToUndo
	}
	e := l.entries[l.cursor-1]
	if err := l.apply(e, Undo); err != nil {
		return err
	}
	l.cursor--
	l.notify()
	return nil
}

// Redo re-applies the oldest undone entry.
func (l *Log) Redo() error {
	if l.cursor == len(l.entries) {
		return ErrNothingToRedo
	}
	e := l.entries[l.cursor]
	if err := l.apply(e, Do); err != nil {
		return err
	}
	l.cursor++
	l.notify()
	return nil
}

// apply runs one command under the replay guard. The guard is released
// even if the command panics.
func (l *Log) apply(e Entry, dir Direction) error {
	l.replaying = true
	defer func() { l.replaying = false }()

	layerkit.Logger().Debug("history: apply", "name", e.Name(), "dir", dir.String())
	if err := e.Command.Apply(dir); err != nil {
		return fmt.Errorf("history: %s %s: %w", dir, e.Name(), err)
	}
	return nil
}

// Replaying reports whether an undo or redo is being applied.
func (l *Log) Replaying() bool { return l.replaying }

// CanUndo reports whether Undo has an entry to revert.
func (l *Log) CanUndo() bool { return l.cursor > 0 }

// CanRedo reports whether Redo has an entry to re-apply.
func (l *Log) CanRedo() bool { return l.cursor < len(l.entries) }

// Len returns the number of stored entries, applied or not.
func (l *Log) Len() int { return len(l.entries) }

// Cursor returns the number of applied entries.
func (l *Log) Cursor() int { return l.cursor }

// Entries returns a copy of the stored entries, oldest first.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Names returns the names of all stored entries, oldest first.
func (l *Log) Names() []string {
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Name()
	}
	return out
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.entries = nil
	l.cursor = 0
	l.notify()
}

// OnChange registers fn to run after every push, undo, redo or clear.
func (l *Log) OnChange(fn func()) {
	if fn != nil {
		l.observers = append(l.observers, fn)
	}
}

func (l *Log) notify() {
	for _, fn := range l.observers {
		fn()
	}
}
