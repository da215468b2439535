package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/advisor/internal/models"
	cfgPkg "github.com/xhad/advisor/pkg/config"
	"github.com/xhad/advisor/pkg/engine"
	"github.com/xhad/advisor/pkg/logger"
	"github.com/xhad/advisor/pkg/metrics"
	"go.uber.org/zap"
)

const usage = `Usage: advisor [flags] <command> [command flags] [args]

Commands:
  search       semantic search over supervisor publications
  export       run a search and write the results as CSV
  profile      show a supervisor profile
  stats        corpus statistics
  types        production types by document count
  supervisors  list supervisors
  recommend    rank supervisors for a student profile
  ranking      supervisor availability ranking
  analyze      model-written analysis of a supervisor
  ideas        project ideas for a student profile
  chat         interactive assistant

Flags:
`

type command func(ctx context.Context, app *app, args []string) error

var commands = map[string]command{
	"search":      runSearch,
	"export":      runExport,
	"profile":     runProfile,
	"stats":       runStats,
	"types":       runTypes,
	"supervisors": runSupervisors,
	"recommend":   runRecommend,
	"ranking":     runRanking,
	"analyze":     runAnalyze,
	"ideas":       runIdeas,
	"chat":        runChat,
}

type app struct {
	cfg    *cfgPkg.Config
	engine *engine.Engine
	log    *zap.Logger
}

func main() {
	var (
		configPath  string
		logLevel    string
		metricsAddr string
	)
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		color.Red("unknown command %q\n", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cmd, cfg, log, metricsAddr, flag.Args()[1:]); err != nil {
		color.Red("Error: %s\n", describe(err))
		log.Debug("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cmd command, cfg *cfgPkg.Config, log *zap.Logger, metricsAddr string, args []string) error {
	ctx := context.Background()

	m := metrics.New(prometheus.DefaultRegisterer)
	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	var e *engine.Engine
	err := withSpinner("🔌 Connecting...", func() error {
		var err error
		e, err = engine.Open(ctx, cfg, log, m)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer e.Close()

	return cmd(ctx, &app{cfg: cfg, engine: e, log: log}, args)
}

// describe turns the error taxonomy into something a user can act on.
func describe(err error) string {
	switch {
	case errors.Is(err, models.ErrNoSignal):
		return "your profile has no interests, skills or preferred areas; complete it and try again"
	case errors.Is(err, models.ErrNotFound):
		return err.Error()
	case errors.Is(err, models.ErrInvalidQuery):
		return err.Error()
	case errors.Is(err, models.ErrBackendUnavailable):
		return fmt.Sprintf("document store unavailable (%v)", err)
	case errors.Is(err, models.ErrCompletionFailed):
		return fmt.Sprintf("language model unavailable (%v)", err)
	default:
		return err.Error()
	}
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
}

// withSpinner animates a spinner on stderr while fn runs.
func withSpinner(description string, fn func() error) error {
	spinner := getSpinner(description)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				spinner.Add(1)
			}
		}
	}()

	err := fn()
	close(done)
	spinner.Finish()
	fmt.Fprint(os.Stderr, "\r")
	return err
}
