package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/crisk/internal/smoketest"
)

// Default configuration constants.
const (
	defaultNumBorrowers     = 200
	defaultWorkers          = 2 // multiplier for runtime.NumCPU()
	defaultTimeout          = 120 * time.Second
	defaultFeedbackFraction = 0.25
	defaultTestTimeout      = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numBorrowers = flag.Int("borrowers", defaultNumBorrowers, "Number of synthetic borrowers to score")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		feedback     = flag.Float64("feedback", defaultFeedbackFraction, "Fraction of scored borrowers to feed back")
		outputFile   = flag.String("output", "", "Output file for generated borrowers (default: generated_borrowers_TIMESTAMP.json)")
		logFile      = flag.String("log", "", "Log file for test output (default: smoke_log_TIMESTAMP.log)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoketest.ShowHelp()
		return
	}

	// Setup logging
	if err := smoketest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &smoketest.Config{
		BaseURL:          *baseURL,
		NumBorrowers:     *numBorrowers,
		Workers:          *workers,
		Timeout:          *timeout,
		FeedbackFraction: *feedback,
		OutputFile:       *outputFile,
		LogFile:          *logFile,
		Verbose:          *verbose,
	}

	// Run the test
	if err := smoketest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Smoke test failed: " + err.Error() + "\n")
		return
	}
}
