// Command estimator browses the projects and estimations served by the
// estimator API.
package main

import (
	"context"
	"os"

	"estimator/internal/cli"
)

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
