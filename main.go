package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hestia/config"
	"hestia/db"
	"hestia/fetcher"
	"hestia/logger"
	"hestia/notifier"
	"hestia/parser"
	"hestia/scheduler"
	"hestia/sheets"

	"google.golang.org/api/option"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file (optional, environment variables override it)")
	once := flag.Bool("once", false, "Run a single scrape cycle and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error: failed to load configuration: %v\n", err)
	}

	appLogger, closeLogger, err := logger.New(cfg.Log, os.Stdout)
	if err != nil {
		log.Fatalf("Error: failed to initialize logger: %v\n", err)
	}
	slog.SetDefault(appLogger)

	code := run(cfg, appLogger, *once)
	if err := closeLogger(); err != nil {
		log.Printf("Warning: failed to flush logs: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and returns the process exit code
func run(cfg *config.Config, appLogger *slog.Logger, once bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewDB(ctx, cfg.Database.URL, appLogger)
	if err != nil {
		appLogger.Error("main: failed to initialize database", "error", err)
		return 1
	}
	defer database.Close()
	appLogger.Info("main: database initialized")

	sender, err := notifier.NewTelegramSender(cfg.Telegram.Token)
	if err != nil {
		appLogger.Error("main: failed to initialize telegram bot", "error", err)
		return 1
	}
	appLogger.Info("main: authorized on telegram", "account", sender.Username())

	browser := fetcher.NewRodFetcher(fetcher.RodOptions{
		UserAgent:     cfg.Scraper.UserAgent,
		DataDir:       cfg.Scraper.BrowserDataDir,
		RenderTimeout: cfg.Scraper.RenderTimeout,
	}, appLogger)
	defer browser.Close()

	dispatcher := fetcher.NewDispatcher(
		fetcher.NewCollyFetcher(fetcher.CollyOptions{
			UserAgent:       cfg.Scraper.UserAgent,
			RandomUserAgent: cfg.Scraper.RandomUserAgent,
			Timeout:         cfg.Scraper.RequestTimeout,
		}, appLogger),
		browser,
	)

	registry := parser.Default()
	appLogger.Debug("main: source adapters registered", "sources", registry.Sources())

	n := notifier.New(sender, database, cfg.Scraper.SendInterval, appLogger)
	sched := scheduler.NewScheduler(database, dispatcher, registry, n, scheduler.Options{
		OwnerChatID:  cfg.Telegram.OwnerChatID,
		History:      cfg.Scraper.History(),
		LoopInterval: cfg.Scraper.LoopInterval,
	}, appLogger)

	if cfg.Sheets.Enabled() {
		writer, err := newSheetsWriter(ctx, cfg.Sheets, appLogger)
		if err != nil {
			appLogger.Error("main: failed to initialize google sheets export", "error", err)
			return 1
		}
		sched.WithExporter(writer)
		appLogger.Info("main: google sheets export enabled", "spreadsheet", cfg.Sheets.SpreadsheetID)
	}

	if once {
		if err := sched.RunCycle(ctx); err != nil {
			appLogger.Error("main: scrape cycle reported configuration errors", "error", err)
			return 1
		}
		return 0
	}

	sched.Start()
	appLogger.Info("main: scheduler started", "interval", cfg.Scraper.LoopInterval)

	<-ctx.Done()
	appLogger.Info("main: shutting down")
	sched.Stop()
	return 0
}

func newSheetsWriter(ctx context.Context, cfg config.SheetsConfig, appLogger *slog.Logger) (*sheets.Writer, error) {
	creds, err := sheets.Credentials(cfg.CredentialsPath, cfg.CredentialsJSON)
	if err != nil {
		return nil, err
	}
	writer, err := sheets.NewWriter(ctx, cfg.SpreadsheetID, appLogger, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, err
	}
	if cfg.SheetName != "" {
		writer.WithSheetName(cfg.SheetName)
	}
	if err := writer.EnsureSheet(ctx); err != nil {
		return nil, err
	}
	return writer, nil
}
