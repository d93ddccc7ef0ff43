// Package sigctl is the signal layer and foreground waiter.
//
// A single process-wide wait4(-1, WNOHANG) loop driven off SIGCHLD would
// race os/exec's own per-process reaping machinery: only one waiter can
// successfully collect a given child's exit, and os/exec runs its own
// wait4 for every *exec.Cmd whose Wait is called. The replacement here is
// one monitor goroutine per spawned job that blocks in its own
// wait4(pid, WUNTRACED) loop (see DESIGN.md). Because
// the goroutine is started only after the job has already been
// installed in the table (internal/evaluator), the ordering invariant
// ("a job exists before its exit can be observed") holds structurally,
// with no signal mask required. SIGINT/SIGTSTP/SIGQUIT keyboard handling
// still runs on a single shared signal-draining goroutine.
package sigctl

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"tsh/internal/jobtable"
	"tsh/internal/procmirror"
	"tsh/internal/session"
)

// Controller owns the keyboard-signal-draining goroutine and the wake
// channel the foreground waiter blocks on.
type Controller struct {
	sh   *session.Shell
	ch   chan os.Signal
	wake chan struct{}

	stopOnce sync.Once
	done     chan struct{}
}

// Install starts the signal-draining goroutine for sh and returns a
// Controller the caller must eventually Close. Must be called once, and
// after session.Publish(sh).
func Install(sh *session.Shell) *Controller {
	c := &Controller{
		sh:   sh,
		ch:   make(chan os.Signal, 8),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	signal.Notify(c.ch, syscall.SIGINT, syscall.SIGTSTP, syscall.SIGQUIT)
	go c.loop()
	return c
}

// Close stops the signal-draining goroutine.
func (c *Controller) Close() {
	c.stopOnce.Do(func() {
		signal.Stop(c.ch)
		close(c.done)
	})
}

func (c *Controller) loop() {
	for {
		select {
		case sig := <-c.ch:
			switch sig {
			case syscall.SIGINT:
				c.onInterrupt()
			case syscall.SIGTSTP:
				c.onStop()
			case syscall.SIGQUIT:
				c.onQuit()
			}
			c.notify()
		case <-c.done:
			return
		}
	}
}

func (c *Controller) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// onInterrupt is the ctrl-c handler: end the current foreground job's
// tenure and forward SIGINT to its whole process group.
func (c *Controller) onInterrupt() {
	pid := c.sh.Jobs.FGPid()
	if pid == 0 {
		c.sh.Logf("SIGINT received with no foreground job")
		return
	}
	c.sh.Logf("SIGINT: forwarding to process group %d", pid)
	_ = c.sh.Proc.Remove(pid)
	_ = c.sh.Jobs.Remove(pid)
	c.sh.FGPid.Store(int32(pid))
	_ = unix.Kill(-pid, unix.SIGINT)
}

// onStop is the ctrl-z handler: mark the foreground job stopped and
// forward SIGTSTP to its whole process group. fg_pid is left alone here
// — it is MonitorJob's detection of the resulting WUNTRACED stop that
// ends FG tenure.
func (c *Controller) onStop() {
	pid := c.sh.Jobs.FGPid()
	if pid == 0 {
		c.sh.Logf("SIGTSTP received with no foreground job")
		return
	}
	c.sh.Logf("SIGTSTP: stopping process group %d", pid)
	_ = c.sh.Jobs.SetState(pid, jobtable.ST)
	_ = c.sh.Proc.EditState(pid, procmirror.StatStopped)
	_ = unix.Kill(-pid, unix.SIGTSTP)
}

// onQuit is the administrative quit-exit handler: the driver program (or
// an operator) can terminate the shell unconditionally by sending it
// SIGQUIT, mirroring the original source's sigquit_handler. It prints the
// same diagnostic regardless of -v and exits with status 1, matching the
// fatal-error exit code.
func (c *Controller) onQuit() {
	fmt.Println("Terminating after receipt of SIGQUIT signal")
	os.Exit(1)
}

// MonitorJob blocks, in its own goroutine, until pid truly terminates,
// pausing to update state on every intervening stop. It is the
// once-per-job replacement for a process-wide SIGCHLD reap loop; see the
// package doc comment.
func (c *Controller) MonitorJob(pid int) {
	for {
		var status unix.WaitStatus
		_, err := unix.Wait4(pid, &status, unix.WUNTRACED, nil)
		if err != nil {
			return
		}

		if status.Stopped() {
			c.sh.Logf("pid %d stopped (signal %v)", pid, status.StopSignal())
			_ = c.sh.Jobs.SetState(pid, jobtable.ST)
			_ = c.sh.Proc.EditState(pid, procmirror.StatStopped)
			c.sh.FGPid.Store(int32(pid))
			c.notify()
			continue
		}

		// Exited normally or killed by signal.
		c.sh.Logf("pid %d reaped (exited=%v signaled=%v)", pid, status.Exited(), status.Signaled())
		job, wasTracked := c.sh.Jobs.LookupByPID(pid)
		_ = c.sh.Proc.Remove(pid)
		_ = c.sh.Jobs.Remove(pid)
		if wasTracked && job.State == jobtable.FG {
			c.sh.FGPid.Store(int32(pid))
		}
		c.notify()
		return
	}
}

// WaitFG suspends the calling goroutine until pid's foreground tenure
// ends (fg_pid becomes pid), then resets fg_pid to 0. It cannot miss a
// wakeup: the wake channel is buffered to depth 1 and every consumer
// iteration re-checks FGPid before blocking, so a notification that
// arrives between the check and the receive is either already buffered
// or observed on the very next check.
func (c *Controller) WaitFG(pid int) {
	for c.sh.FGPid.Load() != int32(pid) {
		<-c.wake
	}
	c.sh.FGPid.Store(0)
}

// ResumeContinue edits the job/proc state for pid to reflect it now
// running (foreground or background per fg) and sends SIGCONT to its
// whole process group. The stat edit happens before the signal is sent,
// so external observers never see a stale stat for a resumed process.
func ResumeContinue(sh *session.Shell, pid int, fg bool) error {
	state := jobtable.BG
	stat := procmirror.StatRunningBG
	if fg {
		state = jobtable.FG
		stat = procmirror.StatRunningFG
	}
	if err := sh.Jobs.SetState(pid, state); err != nil {
		return err
	}
	if err := sh.Proc.EditState(pid, stat); err != nil {
		return err
	}
	return unix.Kill(-pid, unix.SIGCONT)
}
