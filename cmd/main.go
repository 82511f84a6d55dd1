package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/knowledge-backend/internal/app"
	"github.com/yungbote/knowledge-backend/internal/platform/shutdown"
)

func main() {
	os.Exit(run())
}

// run serves the HTTP API until SIGINT or SIGTERM.
func run() int {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "knowledge-backend: init: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		a.Log.Error("server exited", "error", err)
		return 1
	}
	return 0
}
