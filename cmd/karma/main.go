// Command karma is the command-line front end of the karmic state engine.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/karmatracker/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
