package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pileo/discovery/internal/cli"
	"github.com/pileo/discovery/internal/logging"
)

func main() {
	// Commands install their own logger from flags; this covers everything else.
	logging.Setup(os.Getenv("DISCOVERY_LOG_FORMAT"), os.Getenv("DISCOVERY_LOG_LEVEL"))

	if err := cli.Execute(); err != nil {
		// Cobra is configured to not print errors.
		if msg := err.Error(); msg != "" {
			_, _ = fmt.Fprintln(os.Stderr, "Error: "+msg)
		}
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
