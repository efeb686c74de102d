package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pgagent-yaml/internal/shared"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if shared.IsUsage(err) {
			fmt.Fprintln(os.Stderr, "Run 'pgagent-yaml --help' for usage.")
		}
	}
	os.Exit(shared.ExitCode(err))
}
