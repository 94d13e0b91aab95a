package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"CandleScan/internal/di"
	"CandleScan/pkg/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run loads the config, wires the service and blocks until it stops.
// Startup failures are reported on stderr since the logger may not exist yet.
func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("candlescan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "config/config.yaml", "config file path")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "candlescan: load config: %v\n", err)
		return 1
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "candlescan: init: %v\n", err)
		return 1
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		fmt.Fprintf(stderr, "candlescan: %v\n", err)
		return 1
	}
	return 0
}
