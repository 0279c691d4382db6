package loadgen

import (
	"fmt"
	"io"
	"os"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging opens logFile for appending when it is set. The returned
// writer tees to stdout and the file.
func SetupLogging(logFile string) (io.Writer, func() error, error) {
	if logFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return io.MultiWriter(os.Stdout, file), file.Close, nil
}

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`curio load tool
===============

Seeds papers and profiles, submits feedback concurrently, triggers a
ranking pass and builds a digest for every synthetic user.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string         Base URL of the service (default "http://localhost:9080")
  -users int          Number of synthetic users (default 5)
  -papers int         Number of papers to seed (default 200)
  -events int         Number of feedback events (default 2000)
  -dim int            Embedding dimension (default 16)
  -workers int        Number of concurrent workers (default CPU cores * 2)
  -timeout duration   HTTP request timeout (default 10s)
  -settle duration    Wait between feedback and ranking (default 2s)
  -seed uint          Seed for synthetic data (default 1)
  -output string      Write submitted feedback to this JSON file
  -log string         Also append logs to this file
  -verbose            Enable verbose logging
  -help               Show this help message
`)
}
