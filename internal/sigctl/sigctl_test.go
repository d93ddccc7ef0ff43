package sigctl_test

import (
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsh/internal/jobtable"
	"tsh/internal/procmirror"
	"tsh/internal/session"
	"tsh/internal/sigctl"
)

func newShell(t *testing.T) *session.Shell {
	t.Helper()
	mirror, err := procmirror.New(t.TempDir())
	require.NoError(t, err)
	return &session.Shell{
		User: "tester",
		SID:  1,
		Jobs: jobtable.New(),
		Proc: mirror,
	}
}

func TestWaitFGReturnsOnceMonitorSeesExit(t *testing.T) {
	sh := newShell(t)
	ctl := sigctl.Install(sh)
	defer ctl.Close()

	cmd := exec.Command("/bin/sh", "-c", "exit 0")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid

	require.NoError(t, sh.Proc.Create(procmirror.Record{Name: "sh", PID: pid, Stat: procmirror.StatRunningFG}))
	_, err := sh.Jobs.Add(pid, jobtable.FG, "sh -c 'exit 0'")
	require.NoError(t, err)

	go ctl.MonitorJob(pid)

	done := make(chan struct{})
	go func() {
		ctl.WaitFG(pid)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitFG did not return after child exit")
	}

	assert.Equal(t, int32(0), sh.FGPid.Load())
	_, ok := sh.Jobs.LookupByPID(pid)
	assert.False(t, ok)
	_, err = sh.Proc.Read(pid)
	assert.ErrorIs(t, err, procmirror.ErrMissing)
}

func TestMonitorJobRemovesBackgroundJobWithoutTouchingFGPid(t *testing.T) {
	sh := newShell(t)
	ctl := sigctl.Install(sh)
	defer ctl.Close()

	// Occupy FG with a distinct pid so we can assert FGPid is untouched.
	sh.FGPid.Store(424242)

	cmd := exec.Command("/bin/sh", "-c", "exit 0")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid

	require.NoError(t, sh.Proc.Create(procmirror.Record{Name: "sh", PID: pid, Stat: procmirror.StatRunningBG}))
	_, err := sh.Jobs.Add(pid, jobtable.BG, "sh -c 'exit 0' &")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		ctl.MonitorJob(pid)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("MonitorJob did not return after child exit")
	}

	assert.Equal(t, int32(424242), sh.FGPid.Load())
	_, ok := sh.Jobs.LookupByPID(pid)
	assert.False(t, ok)
}

func TestResumeContinueEditsMirrorBeforeSending(t *testing.T) {
	sh := newShell(t)

	cmd := exec.Command("/bin/sh", "-c", "kill -STOP $$; exit 0")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid
	defer cmd.Process.Kill()

	require.NoError(t, sh.Proc.Create(procmirror.Record{Name: "sh", PID: pid, Stat: procmirror.StatStopped}))
	_, err := sh.Jobs.Add(pid, jobtable.ST, "sh &")
	require.NoError(t, err)

	require.NoError(t, sigctl.ResumeContinue(sh, pid, false))

	job, ok := sh.Jobs.LookupByPID(pid)
	require.True(t, ok)
	assert.Equal(t, jobtable.BG, job.State)

	rec, err := sh.Proc.Read(pid)
	require.NoError(t, err)
	assert.Equal(t, procmirror.StatRunningBG, rec.Stat)
}

// TestSigquitTerminatesWithExitStatusOne exercises the administrative
// quit-exit signal via a subprocess, since a successful delivery calls
// os.Exit and would otherwise kill the test binary.
func TestSigquitTerminatesWithExitStatusOne(t *testing.T) {
	if os.Getenv("TSH_SIGQUIT_SUBPROCESS") == "1" {
		sh := newShell(t)
		ctl := sigctl.Install(sh)
		defer ctl.Close()
		require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGQUIT))
		time.Sleep(5 * time.Second)
		t.Fatal("SIGQUIT should have exited the process")
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestSigquitTerminatesWithExitStatusOne")
	cmd.Env = append(os.Environ(), "TSH_SIGQUIT_SUBPROCESS=1")
	err := cmd.Run()

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
}
