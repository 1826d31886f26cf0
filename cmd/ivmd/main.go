// Command ivmd runs the demo HTTP introspection host: one embedded IVM
// engine instance driving a fixed illustrative pipeline, reachable over a
// small HTTP surface for adding/removing records and reading snapshots
// and statistics. Grounded on the teacher's admin/cmd/admin/main.go
// (pflag + env var overrides, verbose logging) and slack/cmd/slack-bot
// (signal.NotifyContext graceful shutdown).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/lake/internal/ivmd"
	"github.com/malbeclabs/lake/utils/pkg/logger"
)

// Set by -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	addrFlag := flag.String("addr", "0.0.0.0:8088", "address to listen on for the HTTP introspection API (or set IVMD_ADDR env var)")
	envFileFlag := flag.String("env-file", "", "path to a .env file to load before reading environment variables")
	sentryDSNFlag := flag.String("sentry-dsn", "", "Sentry DSN for error reporting (or set SENTRY_DSN env var); disabled if empty")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 30*time.Second, "maximum time to wait for in-flight requests during graceful shutdown")
	statsIntervalFlag := flag.Duration("stats-interval", time.Minute, "how often to log and record engine statistics (0 disables)")
	prefilterMaxElementsFlag := flag.Uint64("prefilter-max-elements", 0, "bloom-filter prefilter capacity for dimension probes (0 disables, per spec §9(b))")
	prefilterFPRateFlag := flag.Float64("prefilter-fp-rate", 0.01, "bloom-filter prefilter target false positive rate")

	flag.Parse()

	if *envFileFlag != "" {
		if err := godotenv.Load(*envFileFlag); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	}

	if envAddr := os.Getenv("IVMD_ADDR"); envAddr != "" {
		*addrFlag = envAddr
	}
	if envDSN := os.Getenv("SENTRY_DSN"); envDSN != "" {
		*sentryDSNFlag = envDSN
	}

	log := logger.New(*verboseFlag)

	if *sentryDSNFlag != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              *sentryDSNFlag,
			Release:          version,
			TracesSampleRate: 0.1,
		}); err != nil {
			return fmt.Errorf("initializing sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ivmd.SetBuildInfo(version, commit, date)

	srv, err := ivmd.New(ivmd.Config{
		Logger:                     log,
		ListenAddr:                 *addrFlag,
		ShutdownTimeout:            *shutdownTimeoutFlag,
		StatsInterval:              *statsIntervalFlag,
		PrefilterMaxElements:       *prefilterMaxElementsFlag,
		PrefilterFalsePositiveRate: *prefilterFPRateFlag,
	})
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return srv.Run(ctx)
}
