// Command opfuture-demo drives pkg/opfuture end to end over the
// illustrative pkg/transport wire format: a serve subcommand that answers
// invocations (sometimes after a WAIT_AGAIN, sometimes not at all), an
// invoke subcommand that dispatches one invocation against a running
// server and awaits its Future, and an interactive repl subcommand for
// dispatching invocations one at a time.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

// Version is set at build time in the teacher's tree via -ldflags; fixed
// here since this demo has no release pipeline of its own.
var Version = "dev"

func main() {
	ctl := cli.NewApp()
	ctl.Name = "opfuture-demo"
	ctl.Version = Version
	ctl.Usage = "Demo driver for the invocation future primitive"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = []cli.Command{
		newServeCommand(),
		newInvokeCommand(),
		newReplCommand(),
	}

	if err := ctl.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
