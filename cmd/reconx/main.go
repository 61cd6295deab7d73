package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/hakim/reconx/internal/stage"
)

// Exit codes
const (
	exitOK          = 0
	exitFatal       = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := Execute(ctx)
	return exitCode(err)
}

// exitCode maps the command error onto the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, stage.ErrInterrupted):
		fmt.Fprintf(os.Stderr, "\n%s scan interrupted by user\n", color.YellowString("[!]"))
		return exitInterrupted
	default:
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("[!] Error:"), err)
		return exitFatal
	}
}
