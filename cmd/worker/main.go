package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/knowledge-backend/internal/app"
	"github.com/yungbote/knowledge-backend/internal/platform/shutdown"
)

// The worker polls the Temporal resolve queue, or sweeps pending nodes
// itself when TEMPORAL_ADDRESS is unset.
func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "knowledge-worker: init: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := a.RunWorker(ctx); err != nil {
		a.Log.Error("worker exited", "error", err)
		return 1
	}
	return 0
}
