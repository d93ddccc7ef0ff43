// Package session collects the shell's process-wide singletons into one
// owning "shell context" value: the logged-in user, home directory,
// session id, job table, proc mirror, history ring, and the fg_pid
// wake-up word. It is built once at startup (internal/repl) and
// published through an atomic pointer (Publish/Current). The signal
// controller (internal/sigctl) does not read that pointer: Install is
// handed the same *Shell directly.
package session

import (
	"fmt"
	"os"
	"sync/atomic"

	"tsh/internal/auth"
	"tsh/internal/history"
	"tsh/internal/jobtable"
	"tsh/internal/procmirror"
)

// Shell is the owning context value. User, Home, SID and Verbose are not
// changed once the session loop is running. Jobs is guarded by its own
// mutex and is touched by the main goroutine, the signal-draining
// goroutine and the per-job monitor goroutines (internal/sigctl). Proc
// has no lock: each of its operations is a file-system call, and
// EditState reports ErrMissing when a record is removed underneath it.
// History is touched only from the main goroutine. FGPid is atomic.
type Shell struct {
	User    string
	Home    string
	SID     int // the shell's own pid; all children inherit it as their session id
	Verbose bool

	Jobs    *jobtable.Table
	Proc    *procmirror.Mirror
	History *history.Ring
	Creds   *auth.Store

	// FGPid is the fg_pid wake-up word: 0 means the foreground waiter
	// keeps sleeping; non-zero is the pid whose FG tenure just ended.
	FGPid atomic.Int32
}

var current atomic.Pointer[Shell]

// Publish installs s as the process-wide current shell context. Must be
// called before any signal handler is installed.
func Publish(s *Shell) {
	current.Store(s)
}

// Current returns the published shell context, or nil if none has been
// published yet.
func Current() *Shell {
	return current.Load()
}

// Logf writes a diagnostic line to stderr when verbose mode is enabled.
// No structured-logging library fits a single diagnostic line this
// small; see SPEC_FULL.md §7.
func (s *Shell) Logf(format string, args ...any) {
	if s == nil || !s.Verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "tsh: "+format+"\n", args...)
}
