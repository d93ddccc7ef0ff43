// Package repl is the session shell loop: install signal handlers,
// authenticate, hydrate history, then prompt/read/evaluate until EOF or
// quit.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"tsh/internal/auth"
	"tsh/internal/builtins"
	"tsh/internal/evaluator"
	"tsh/internal/history"
	"tsh/internal/jobtable"
	"tsh/internal/parser"
	"tsh/internal/procmirror"
	"tsh/internal/session"
	"tsh/internal/sigctl"
)

const prompt = "tsh> "

// Config carries the CLI-derived knobs plus the base directories tests
// sandbox under.
type Config struct {
	Verbose   bool
	NoPrompt  bool
	ProcDir   string // defaults to "proc"
	CredsFile string // defaults to "etc/passwd"
	In        io.Reader
	Out       io.Writer
}

func (c Config) procDir() string {
	if c.ProcDir == "" {
		return "proc"
	}
	return c.ProcDir
}

func (c Config) credsFile() string {
	if c.CredsFile == "" {
		return "etc/passwd"
	}
	return c.CredsFile
}

// Run wires the job table, proc mirror, credential store, history ring,
// and signal controller together and drives the shell until quit/logout
// or EOF. It returns the process exit code.
func Run(cfg Config) int {
	in := cfg.In
	if in == nil {
		in = os.Stdin
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	reader := bufio.NewReader(in)

	creds, err := auth.Load(cfg.credsFile())
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}

	mirror, err := procmirror.New(cfg.procDir())
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal: could not initialize proc mirror:", err)
		return 1
	}

	sh := &session.Shell{
		SID:     os.Getpid(),
		Verbose: cfg.Verbose,
		Jobs:    jobtable.New(),
		Proc:    mirror,
		Creds:   creds,
	}
	session.Publish(sh)

	sweepOrphans(sh)

	user, home, ok := login(reader, out, sh)
	if !ok {
		return 0 // "quit" typed at the login prompt
	}
	sh.User = user
	sh.Home = home

	hist, err := history.Load(home + "/.tsh_history")
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		hist = history.New()
	}
	sh.History = hist

	if err := sh.Proc.Create(procmirror.Record{
		Name:     "tsh",
		PID:      sh.SID,
		PPID:     sh.SID,
		PGID:     sh.SID,
		SID:      sh.SID,
		Stat:     procmirror.StatSessionLeader,
		Username: sh.User,
	}); err != nil {
		sh.Logf("could not create proc record for self: %v", err)
	}

	ctl := sigctl.Install(sh)
	defer ctl.Close()

	r := &runner{sh: sh, ctl: ctl, out: out}

	justLoggedIn := true
	for {
		if !cfg.NoPrompt {
			if justLoggedIn {
				justLoggedIn = false
			} else {
				fmt.Fprint(out, prompt)
			}
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return 0
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			return 1
		}

		line = strings.TrimRight(line, "\n")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.runLine(line, true); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

// runner closes the builtins.Execute ⇄ evaluator cycle without an import
// cycle between the two packages: builtins only sees the Execute func
// type, and runLine is the one place both Dispatch and Eval are called.
type runner struct {
	sh  *session.Shell
	ctl *sigctl.Controller
	out io.Writer
}

func (r *runner) runLine(line string, persist bool) error {
	argv, bg := parser.Tokenize(line)
	if len(argv) == 0 {
		return nil
	}

	if persist {
		r.sh.History.Add(line)
		if r.sh.Home != "" {
			_ = history.AppendLine(r.sh.Home+"/.tsh_history", line)
		}
	}

	if handled, err := builtins.Dispatch(r.sh, r.ctl, argv, line, r.runLine); handled {
		return err
	}

	return evaluator.Eval(r.sh, r.ctl, argv, bg, line)
}

// sweepOrphans purges every proc record left behind by an earlier
// crashed run before this session creates its own. Every record present
// at this point in startup predates sh's own pid, so all of them are
// orphans by construction.
func sweepOrphans(sh *session.Shell) {
	orphans, err := sh.Proc.Orphans()
	if err != nil {
		sh.Logf("could not enumerate proc mirror orphans: %v", err)
		return
	}
	if len(orphans) == 0 {
		return
	}
	if err := sh.Proc.RemoveAll(); err != nil {
		sh.Logf("could not purge %d proc mirror orphan(s): %v", len(orphans), err)
		return
	}
	sh.Logf("purged %d orphaned proc record(s) from a prior run", len(orphans))
}

// login performs the authenticate-or-retry loop at shell startup.
// Typing "quit" as the username exits cleanly.
func login(reader *bufio.Reader, out io.Writer, sh *session.Shell) (user, home string, ok bool) {
	for {
		fmt.Fprint(out, "username: ")
		u, err := reader.ReadString('\n')
		if err != nil {
			return "", "", false
		}
		u = strings.TrimSpace(u)
		if u == "quit" {
			return "", "", false
		}

		fmt.Fprint(out, "password: ")
		p, err := reader.ReadString('\n')
		if err != nil {
			return "", "", false
		}
		p = strings.TrimSpace(p)

		if !sh.Creds.Authenticate(u, p) {
			fmt.Fprintln(out, "User Authentication failed. Please try again.")
			continue
		}

		cred, _ := sh.Creds.Lookup(u)
		return u, cred.Home, true
	}
}
