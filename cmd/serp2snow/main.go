package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/picklr-io/serp2snow/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		stop()
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Cancelled")
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "An unexpected error was encountered!")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
