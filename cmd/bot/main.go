// Command bot runs the Nifty Shop trading bot: interactive configuration
// setup on first run, then one strategy pass against Zerodha market data
// with simulated order execution.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/niftyshop/nifty-shop-bot/internal/broker"
	"github.com/niftyshop/nifty-shop-bot/internal/console"
	"github.com/niftyshop/nifty-shop-bot/internal/monitoring"
	"github.com/niftyshop/nifty-shop-bot/internal/reporting"
	"github.com/niftyshop/nifty-shop-bot/internal/strategy"
	"github.com/niftyshop/nifty-shop-bot/internal/wizard"
	"github.com/niftyshop/nifty-shop-bot/pkg/config"
)

const defaultConfigPath = "config/strategy_config.json"

// runMode is the outcome of the dispatch decision table.
type runMode int

const (
	// modeRun loads the document and runs the strategy.
	modeRun runMode = iota
	// modeWizardRun runs the wizard, then the strategy.
	modeWizardRun
	// modeWizardExit runs the wizard, then exits without trading.
	modeWizardExit
	// modeValidateExit loads and reports the document, then exits.
	modeValidateExit
)

// dispatchMode decides what to do, in priority order: --reconfigure forces
// the wizard, a missing document triggers first-run setup, and
// --config-only suppresses the strategy run either way. The validate-and-exit
// shortcut applies only when the persisted document loaded cleanly; a
// document that had to be recovered sends --config-only through the wizard
// so the operator can repair and re-persist it.
func dispatchMode(reconfigure, configOnly, exists, recovered bool) runMode {
	switch {
	case reconfigure && configOnly:
		return modeWizardExit
	case reconfigure:
		return modeWizardRun
	case !exists && configOnly:
		return modeWizardExit
	case !exists:
		return modeWizardRun
	case configOnly && recovered:
		return modeWizardExit
	case configOnly:
		return modeValidateExit
	default:
		return modeRun
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		help        = flag.Bool("help", false, "Print usage and exit")
		reconfigure = flag.Bool("reconfigure", false, "Run the setup wizard even if a configuration exists")
		configOnly  = flag.Bool("config-only", false, "Configure (or validate the existing configuration) and exit")
		configPath  = flag.String("config", defaultConfigPath, "Path to the configuration document")
		envFile     = flag.String("env", ".env", "Path to the environment file with Kite credentials")
		reportPath  = flag.String("report", "", "Write an Excel report of the run to this path")
		metricsAddr = flag.String("metrics-addr", "", "Serve /metrics and /healthz on this address, e.g. :9090")
		noEmojis    = flag.Bool("no-emojis", false, "Disable emojis in terminal output")
		silent      = flag.Bool("silent", false, "Suppress all output except warnings and errors")
	)
	flag.Usage = usage
	flag.Parse()

	if *help {
		usage()
		return 0
	}

	log := console.NewLogger()
	log.ShowEmojis = !*noEmojis
	log.SetSilentMode(*silent)

	metrics := monitoring.NewMetrics()
	store := config.NewStore(*configPath)

	result := store.Load()
	for _, w := range result.Warnings {
		log.Warn("%s", w)
		metrics.RecordConfigFallback()
	}
	doc := result.Document

	mode := dispatchMode(*reconfigure, *configOnly, store.Exists(),
		result.Status == config.LoadedRecovered)
	if mode == modeWizardRun || mode == modeWizardExit {
		wiz := wizard.New(os.Stdin, os.Stdout, store, log)
		updated, err := wiz.Run(doc)
		if err != nil {
			if errors.Is(err, wizard.ErrAborted) {
				log.Warn("Setup aborted, previous configuration (if any) is unchanged")
				return 0
			}
			log.Error("Setup failed: %v", err)
			return 1
		}
		doc = updated
	}

	switch mode {
	case modeWizardExit:
		return 0
	case modeValidateExit:
		log.Success("Configuration at %s is valid", store.Path())
		wizard.PrintDocument(os.Stdout, "CURRENT CONFIGURATION", doc)
		return 0
	}

	return runStrategy(doc, log, metrics, *envFile, *reportPath, *metricsAddr)
}

// runStrategy authenticates with Zerodha and executes one strategy pass.
// Broker authentication is the only unrecoverable startup failure.
func runStrategy(doc *config.Document, log *console.Logger, metrics *monitoring.Metrics, envFile, reportPath, metricsAddr string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		log.Warn("Could not load %s: %v", envFile, err)
	}

	creds, err := broker.CredentialsFromEnv()
	if err != nil {
		log.Error("%v", err)
		return 1
	}

	kite := broker.NewKiteClient(creds, log)
	if err := kite.Login(ctx); err != nil {
		log.Error("Zerodha login failed: %v", err)
		return 1
	}

	var monitor *monitoring.Server
	if metricsAddr != "" {
		monitor = monitoring.NewServer(metricsAddr, metrics)
		go func() {
			if err := monitor.Start(); err != nil {
				log.Warn("Monitoring server stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = monitor.Shutdown(shutdownCtx)
		}()
	}

	paper := broker.NewPaperBroker(log)
	runner := strategy.NewRunner(*doc, kite, paper, log, strategy.WithMetrics(metrics))

	summary, err := runner.Execute(ctx)
	if monitor != nil {
		monitor.RecordRun(err)
	}
	if err != nil {
		log.Error("Strategy run failed: %v", err)
		return 1
	}

	if reportPath != "" {
		reporter := reporting.NewExcelReporter()
		if err := reporter.WriteRunReport(summary, reportPath); err != nil {
			log.Warn("Could not write report: %v", err)
		} else {
			log.Success("Report written to %s", reportPath)
		}
	}
	return 0
}

func usage() {
	fmt.Fprintf(os.Stderr, `Nifty Shop trading bot

Sells holdings above the configured profit threshold, scans the Nifty 50
for stocks trading below their 20 day moving average, and buys the most
deviated ones within the daily trade limit. Orders are simulated.

Usage:
  bot [flags]

Flags:
`)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment (read from --env file or the process environment):
  KITE_USER_ID    Zerodha user id
  KITE_PASSWORD   Zerodha password
  KITE_TOTP_KEY   Base32 TOTP secret for two factor login
`)
}
