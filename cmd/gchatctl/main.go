package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/kirillkom/grounded-chat/internal/adapters/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand(cli.NewHTTPAPI).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
