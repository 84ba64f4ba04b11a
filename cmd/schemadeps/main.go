package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"schemadeps/internal/cli"
)

// main only wires process state (arguments, signals, standard streams) into
// cli.Run and turns its result into the process exit code.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	result, err := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(result.ExitCode)
}
