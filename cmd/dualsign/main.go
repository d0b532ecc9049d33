package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/iov-one/dualsign/errors"
)

// commands is a register of all available commands that can be executed by
// this program. The name is used to match with the first argument given.
//
// A command function is given stdin, stdout and the command line arguments
// except the program name and the command name. It is the responsibility of
// the command function to parse the arguments using the flag package. A
// command reads and writes only provided input and output.
//
// Commands that talk to the ledger or the helper service read the connection
// details from the configuration file and DUALSIGN_ environment variables,
// see loadConfig.
var commands = map[string]func(input io.Reader, output io.Writer, args []string) error{
	"classify":         cmdClassify,
	"classify-message": cmdClassifyMessage,
	"cleanup":          cmdCleanup,
	"deploy":           cmdDeploy,
	"disable":          cmdDisable,
	"forget":           cmdForget,
	"keyaddr":          cmdKeyaddr,
	"keygen":           cmdKeygen,
	"pending":          cmdPending,
	"requests":         cmdRequests,
	"send":             cmdSend,
	"states":           cmdStates,
	"version":          cmdVersion,
}

func main() {
	if len(os.Args) == 1 {
		fmt.Fprintf(os.Stderr, "%s is a command line client for accounts guarded by a second factor.\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s <command> [<flags>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nAvailable commands are:\n\t%s\n", strings.Join(availableCmds(), "\n\t"))
		fmt.Fprintf(os.Stderr, "Run '%s <command> -help' to learn more about each command.\n", os.Args[0])
		os.Exit(2)
	}
	run, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "\nAvailable commands are:\n\t%s\n", strings.Join(availableCmds(), "\n\t"))
		os.Exit(2)
	}

	// Skip two first arguments. Second argument is the command name that
	// we just consumed.
	if err := run(os.Stdin, os.Stdout, os.Args[2:]); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError writes err in red, followed by the list of invalid fields
// if err carries field errors.
func reportError(w io.Writer, err error) {
	color.New(color.FgRed).Fprintln(w, err.Error())
	if fields := errors.Fields(err); len(fields) > 0 {
		fmt.Fprintf(w, "invalid fields: %s\n", strings.Join(fields, ", "))
	}
}

func availableCmds() []string {
	available := make([]string, 0, len(commands))
	for name := range commands {
		available = append(available, name)
	}
	sort.Strings(available)
	return available
}

func cmdVersion(in io.Reader, out io.Writer, args []string) error {
	fmt.Fprintln(out, gitHash)
	return nil
}

// gitHash is set during the compilation time.
var gitHash string = "dev"
