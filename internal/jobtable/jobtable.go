// Package jobtable implements the shell's fixed-capacity job table: the
// bounded set of child processes the shell is currently tracking, along
// with their foreground/background/stopped state and jid recycling.
package jobtable

import (
	"fmt"
	"sync"
)

// Capacity is the maximum number of jobs the table can track at once.
const Capacity = 16

// State is a job's position in the foreground/background/stopped state
// machine. The zero value, Undef, marks an empty slot.
type State int

const (
	Undef State = iota
	FG
	BG
	ST
)

func (s State) String() string {
	switch s {
	case FG:
		return "Foreground"
	case BG:
		return "Running"
	case ST:
		return "Stopped"
	default:
		return "Undef"
	}
}

// Job is one tracked child process.
type Job struct {
	PID     int
	JID     int
	State   State
	Cmdline string
}

var (
	ErrFull    = fmt.Errorf("job table full")
	ErrMissing = fmt.Errorf("job not found")
)

// Table is the process-wide job table. Every exported method is safe to
// call concurrently; the main goroutine and the signal-draining goroutine
// (internal/sigctl) both hold this lock for the duration of any mutation
// — see DESIGN.md.
type Table struct {
	mu    sync.Mutex
	slots [Capacity]Job
	next  int // next jid to assign, 1-based, wraps to 1 past Capacity
}

// New returns an empty table with jid allocation starting at 1.
func New() *Table {
	return &Table{next: 1}
}

// Add inserts pid into the first empty slot with the given state and
// command line, returning the newly assigned jid. Returns ErrFull if no
// slot is free.
func (t *Table) Add(pid int, state State, cmdline string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if t.slots[i].State == Undef {
			jid := t.next
			t.next++
			if t.next > Capacity {
				t.next = 1
			}
			t.slots[i] = Job{PID: pid, JID: jid, State: state, Cmdline: cmdline}
			return jid, nil
		}
	}
	return 0, ErrFull
}

// Remove clears the slot holding pid and recomputes the next-jid counter
// as max(jid)+1 over the remaining slots.
func (t *Table) Remove(pid int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	found := false
	for i := range t.slots {
		if t.slots[i].State != Undef && t.slots[i].PID == pid {
			t.slots[i] = Job{}
			found = true
			break
		}
	}
	if !found {
		return ErrMissing
	}

	max := 0
	for i := range t.slots {
		if t.slots[i].State != Undef && t.slots[i].JID > max {
			max = t.slots[i].JID
		}
	}
	t.next = max + 1
	if t.next > Capacity {
		t.next = 1
	}
	return nil
}

// SetState transitions the job holding pid to state, without touching
// jid or cmdline.
func (t *Table) SetState(pid int, state State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if t.slots[i].State != Undef && t.slots[i].PID == pid {
			t.slots[i].State = state
			return nil
		}
	}
	return ErrMissing
}

// LookupByPID returns a copy of the job tracking pid, if any.
func (t *Table) LookupByPID(pid int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if t.slots[i].State != Undef && t.slots[i].PID == pid {
			return t.slots[i], true
		}
	}
	return Job{}, false
}

// LookupByJID returns a copy of the job with the given jid, if any.
func (t *Table) LookupByJID(jid int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if t.slots[i].State != Undef && t.slots[i].JID == jid {
			return t.slots[i], true
		}
	}
	return Job{}, false
}

// FGPid returns the pid of the unique FG slot, or 0 if none.
func (t *Table) FGPid() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if t.slots[i].State == FG {
			return t.slots[i].PID
		}
	}
	return 0
}

// AnyNonEmpty reports whether any slot is tracking a job, used by the
// logout builtin to refuse exit while jobs remain.
func (t *Table) AnyNonEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if t.slots[i].State != Undef {
			return true
		}
	}
	return false
}

// List returns the table's jobs ordered by slot index, the order the
// jobs builtin prints in.
func (t *Table) List() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Job, 0, Capacity)
	for i := range t.slots {
		if t.slots[i].State != Undef {
			out = append(out, t.slots[i])
		}
	}
	return out
}

// Line renders j the way the jobs builtin prints a single entry:
// "[jid] (pid) <State> <cmdline>".
func Line(j Job) string {
	return fmt.Sprintf("[%d] (%d) %s %s", j.JID, j.PID, j.State, j.Cmdline)
}
