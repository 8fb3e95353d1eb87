// Package main is the entry point for the asum CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/asum-cli/asum/internal/cmd"
	"github.com/asum-cli/asum/internal/pkg/errors"
)

// Version information - set via ldflags during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	rootCmd := cmd.NewRootCmd(version, commit, date)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, cmd.ErrorText(rootCmd, err))
		os.Exit(errors.GetExitCode(err))
	}
}
