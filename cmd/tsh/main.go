// Command tsh is the teaching shell's entrypoint: parses -h/-v/-p and
// starts the session loop (internal/repl).
package main

import (
	"flag"
	"fmt"
	"os"

	"tsh/internal/repl"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: tsh [-h] [-v] [-p]")
	fmt.Fprintln(os.Stderr, "  -h  print this help message and exit")
	fmt.Fprintln(os.Stderr, "  -v  emit additional diagnostic output")
	fmt.Fprintln(os.Stderr, "  -p  do not emit a command prompt")
}

func main() {
	verbose := flag.Bool("v", false, "emit additional diagnostic output")
	noPrompt := flag.Bool("p", false, "do not emit a command prompt")
	help := flag.Bool("h", false, "print usage and exit")
	flag.Usage = usage
	flag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}

	os.Exit(repl.Run(repl.Config{
		Verbose:  *verbose,
		NoPrompt: *noPrompt,
	}))
}
