// Package history implements the shell's 10-entry in-memory history ring
// and its on-disk persistence, grounded on the load-then-ring pattern in
// other_examples/KaliforniaGator-SecShell-Go__secshell.go
// (history.GetHistoryFromFile).
package history

import (
	"bufio"
	"fmt"
	"os"
)

// Capacity is the authoritative in-memory ring size; the history file is
// truncated to it on shutdown.
const Capacity = 10

// Ring is a fixed-capacity, oldest-first history buffer.
type Ring struct {
	entries []string
}

// New returns an empty ring.
func New() *Ring {
	return &Ring{entries: make([]string, 0, Capacity)}
}

// Load reads every non-empty line of path, keeps the last Capacity of
// them, and returns a ring holding them in insertion (oldest-first) order.
// A missing file yields an empty ring, not an error.
func Load(path string) (*Ring, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, err
	}
	defer f.Close()

	var all []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		all = append(all, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	start := 0
	if len(all) > Capacity {
		start = len(all) - Capacity
	}
	r := New()
	r.entries = append(r.entries, all[start:]...)
	return r, nil
}

// Add appends line, evicting the oldest entry once Capacity is exceeded.
func (r *Ring) Add(line string) {
	r.entries = append(r.entries, line)
	if len(r.entries) > Capacity {
		r.entries = r.entries[len(r.entries)-Capacity:]
	}
}

// AppendLine appends line to the history file at path, letting it grow
// past Capacity between sessions; Persist is what truncates it back down
// on shutdown.
func AppendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, line)
	return err
}

// Entries returns the ring's contents oldest-first.
func (r *Ring) Entries() []string {
	out := make([]string, len(r.entries))
	copy(out, r.entries)
	return out
}

// Get returns the 1-based nth entry (oldest-first), used by !N.
func (r *Ring) Get(n int) (string, bool) {
	if n < 1 || n > len(r.entries) {
		return "", false
	}
	return r.entries[n-1], true
}

// Len reports how many entries the ring currently holds.
func (r *Ring) Len() int {
	return len(r.entries)
}

// Persist truncates path to the ring's current contents, one line per
// entry, oldest-first.
func (r *Ring) Persist(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range r.entries {
		if _, err := fmt.Fprintln(w, e); err != nil {
			return err
		}
	}
	return w.Flush()
}
