package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/ghitriage/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if cli.LoginHint(err) {
			fmt.Fprintln(os.Stderr, "Run `ghitriage login` to sign in again.")
		}
		stop()
		os.Exit(1)
	}
}
