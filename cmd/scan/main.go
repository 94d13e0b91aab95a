// Command scan runs one pattern analysis (or the whole catalogue) over a
// country's daily series and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"CandleScan/internal/di"
	"CandleScan/internal/domain/models"
	"CandleScan/internal/usecase"
	"CandleScan/pkg/config"
	"CandleScan/pkg/util"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  = fs.String("config", "", "config file path (defaults when empty)")
		country     = fs.String("country", "", "country whose series is scanned")
		pattern     = fs.String("pattern", "", "pattern kind, e.g. hammer or bull_engulf")
		all         = fs.Bool("all", false, "scan every implemented pattern")
		start       = fs.String("start", "", "first date, inclusive (config analysis.start when empty)")
		end         = fs.String("end", "", "last date, inclusive (config analysis.end when empty)")
		lookBack    = fs.Int("look-back", 0, "bars before a local extremum")
		lookForward = fs.Int("look-forward", 0, "bars after a local extremum")
		dataDir     = fs.String("data-dir", "", "directory of <country>-bond-yield.csv files")
	)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if strings.TrimSpace(*country) == "" {
		fmt.Fprintln(stderr, "scan: -country is required")
		return exitUsage
	}
	if *all == (*pattern != "") {
		fmt.Fprintln(stderr, "scan: exactly one of -pattern and -all is required")
		return exitUsage
	}
	var kind models.PatternKind
	if !*all {
		k, err := models.ParsePatternKind(*pattern)
		if err != nil {
			fmt.Fprintf(stderr, "scan: %v\n", err)
			return exitUsage
		}
		kind = k
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "scan: %v\n", err)
		return exitError
	}
	cfg.Log.Output = "stderr"
	if *dataDir != "" {
		cfg.Source.DataDir = *dataDir
	}
	if *lookBack > 0 {
		cfg.Analysis.LookBack = *lookBack
	}
	if *lookForward > 0 {
		cfg.Analysis.LookForward = *lookForward
	}
	if *lookBack < 0 || *lookForward < 0 {
		fmt.Fprintf(stderr, "scan: %v\n", models.ErrInvalidWindow)
		return exitUsage
	}

	p := usecase.AnalysisParams{
		Country: *country,
		Kind:    kind,
	}
	for _, d := range []struct {
		flag, config string
		dst          *time.Time
	}{
		{*start, cfg.Analysis.Start, &p.Start},
		{*end, cfg.Analysis.End, &p.End},
	} {
		v := d.flag
		if v == "" {
			v = d.config
		}
		t, ok := util.ParseDate(v)
		if !ok {
			fmt.Fprintf(stderr, "scan: cannot parse date %q\n", v)
			return exitUsage
		}
		*d.dst = t
	}

	scanner, cleanup, err := di.InitializeScanner(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "scan: %v\n", err)
		return exitError
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var out interface{}
	if *all {
		out, err = scanner.Analysis.ScanAll(ctx, p)
	} else {
		out, err = scanner.Analysis.Run(ctx, p)
	}
	if err != nil {
		fmt.Fprintf(stderr, "scan: %v\n", err)
		if errors.Is(err, models.ErrUnrecognizedPattern) {
			return exitUsage
		}
		return exitError
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "scan: encode: %v\n", err)
		return exitError
	}
	return exitOK
}
