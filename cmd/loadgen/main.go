package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/curio/internal/loadgen"
	"github.com/okian/curio/pkg/logger"
)

// Default configuration constants.
const (
	defaultUsers       = 5
	defaultPapers      = 200
	defaultEvents      = 2000
	defaultDim         = 16
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		users      = flag.Int("users", defaultUsers, "Number of synthetic users")
		papers     = flag.Int("papers", defaultPapers, "Number of papers to seed")
		events     = flag.Int("events", defaultEvents, "Number of feedback events to submit")
		dim        = flag.Int("dim", defaultDim, "Embedding dimension")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", loadgen.DefaultSettle, "Wait between feedback and ranking")
		seed       = flag.Uint64("seed", 1, "Seed for synthetic data")
		outputFile = flag.String("output", "", "Write submitted feedback to this JSON file")
		logFile    = flag.String("log", "", "Also append logs to this file")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	w, closeLog, err := loadgen.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithWriter(w), logger.WithLevel(level)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	_, err = loadgen.Run(ctx, &loadgen.Config{
		BaseURL:    *baseURL,
		Users:      *users,
		Papers:     *papers,
		Events:     *events,
		Dim:        *dim,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		Seed:       *seed,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	})
	cancel()
	_ = closeLog()
	if err != nil {
		os.Stderr.WriteString("load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
