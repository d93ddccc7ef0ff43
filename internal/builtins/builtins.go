// Package builtins is the builtin dispatcher: quit, logout, jobs, fg/bg,
// history, adduser, and !N, all executed in the shell's own address
// space. The auth/history/jobs package split this dispatches across
// mirrors the one in
// other_examples/KaliforniaGator-SecShell-Go__secshell.go.
package builtins

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"tsh/internal/jobtable"
	"tsh/internal/session"
	"tsh/internal/sigctl"
)

// Execute re-evaluates a full command line (tokenize, dispatch builtin
// or fork) the same way the top-level read/eval loop does. persist
// controls whether the line is recorded to history — !N replays must
// not be re-persisted. The repl package supplies this as a closure,
// breaking what would otherwise be an import cycle between
// builtins (which needs to replay history) and evaluator (which the repl
// also calls for non-builtins).
type Execute func(line string, persist bool) error

// Dispatch executes argv as a builtin if argv[0] names one, or is a bare
// !N history replay. raw is the original, untokenized command line. It
// is currently unused by any builtin but kept in the signature so a
// future builtin needing the unsplit line (quoting-sensitive adduser
// passwords, say) doesn't force a signature change. Returns
// handled=false if argv does not name a builtin, in which case the
// caller should fall through to the evaluator.
func Dispatch(sh *session.Shell, ctl *sigctl.Controller, argv []string, raw string, execute Execute) (handled bool, err error) {
	if len(argv) == 0 {
		return true, nil
	}

	if n, ok := parseHistoryRef(argv[0]); ok {
		return true, runNthHistory(sh, n, execute)
	}

	switch argv[0] {
	case "quit":
		doQuit(sh)
		return true, nil
	case "logout":
		doLogout(sh)
		return true, nil
	case "jobs":
		doJobs(sh)
		return true, nil
	case "fg":
		return true, doFgBg(sh, ctl, argv, true)
	case "bg":
		return true, doFgBg(sh, ctl, argv, false)
	case "history":
		doHistory(sh)
		return true, nil
	case "adduser":
		doAddUser(sh, argv)
		return true, nil
	default:
		return false, nil
	}
}

// parseHistoryRef reports whether tok is a bare "!N" reference and, if
// so, the parsed N.
func parseHistoryRef(tok string) (int, bool) {
	if len(tok) < 2 || tok[0] != '!' {
		return 0, false
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func runNthHistory(sh *session.Shell, n int, execute Execute) error {
	line, ok := sh.History.Get(n)
	if !ok {
		fmt.Printf("Error: Called command %d from history, however only %d commands present in history.\n", n, sh.History.Len())
		return nil
	}
	return execute(line, false)
}

// doQuit removes the shell's own proc record and every child record it
// owns, persists history, and exits the process successfully.
func doQuit(sh *session.Shell) {
	for _, j := range sh.Jobs.List() {
		_ = sh.Proc.Remove(j.PID)
	}
	_ = sh.Proc.Remove(sh.SID)
	if sh.Home != "" {
		_ = sh.History.Persist(sh.Home + "/.tsh_history")
	}
	os.Exit(0)
}

func doLogout(sh *session.Shell) {
	if sh.Jobs.AnyNonEmpty() {
		fmt.Println("There are suspended jobs.")
		return
	}
	doQuit(sh)
}

func doJobs(sh *session.Shell) {
	for _, j := range sh.Jobs.List() {
		fmt.Println(jobtable.Line(j))
	}
}

func doHistory(sh *session.Shell) {
	fmt.Println("History (last 10 commands used from least to most recent):")
	for i, line := range sh.History.Entries() {
		fmt.Printf("%d. %s\n", i+1, line)
	}
}

func doAddUser(sh *session.Shell, argv []string) {
	if sh.User != "root" {
		fmt.Println("root privileges required to run adduser.")
		return
	}

	var user, pass string
	if len(argv) > 1 {
		user = argv[1]
	}
	if len(argv) > 2 {
		pass = argv[2]
	}
	if user == "" || pass == "" {
		fmt.Printf("Invalid username (%s) or password(%s) provided.\n", user, pass)
		return
	}
	if sh.Creds.Exists(user) {
		fmt.Printf("User %s may already exist.\n", user)
		return
	}

	home := "home/" + user
	if err := os.MkdirAll(home, 0700); err != nil {
		fmt.Printf("Error: Could not create user directory.\n")
		return
	}
	if f, err := os.Create(home + "/.tsh_history"); err != nil {
		fmt.Printf("Error: Could not create .tsh_history file.\n")
		return
	} else {
		f.Close()
	}
	if err := sh.Creds.Add(user, pass, home); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}

// doFgBg implements the fg/bg builtin state machine. Disambiguation
// follows the original source's pid2jid helper: the
// argument is first looked up as a pid; only when no job carries that
// pid is it reinterpreted as a jid.
func doFgBg(sh *session.Shell, ctl *sigctl.Controller, argv []string, fg bool) error {
	name := "bg"
	if fg {
		name = "fg"
	}
	if len(argv) < 2 {
		fmt.Printf("%s command requires PID or %%jobid argument\n", name)
		return nil
	}

	n, err := strconv.Atoi(strings.TrimPrefix(argv[1], "%"))
	if err != nil {
		fmt.Printf("%s: argument must be a PID or %%jobid\n", name)
		return nil
	}

	job, ok := sh.Jobs.LookupByPID(n)
	if !ok {
		job, ok = sh.Jobs.LookupByJID(n)
	}
	if !ok {
		fmt.Printf("Job (%d) does not exist.\n", n)
		return nil
	}

	switch {
	case fg && job.State == jobtable.FG:
		fmt.Printf("Job [%d] (%d) is already running in the foreground.\n", job.JID, job.PID)
		return nil
	case !fg && job.State == jobtable.BG:
		fmt.Printf("Job [%d] (%d) is already running in the background.\n", job.JID, job.PID)
		return nil
	case !fg && job.State == jobtable.FG:
		fmt.Printf("Job [%d] (%d) must be stopped before moving to the background.\n", job.JID, job.PID)
		return nil
	}

	if err := sigctl.ResumeContinue(sh, job.PID, fg); err != nil {
		fmt.Printf("Error: %v\n", err)
		return nil
	}

	if fg {
		ctl.WaitFG(job.PID)
	}
	return nil
}
