package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/jawher/mow.cli"
	"github.com/joho/godotenv"

	"sjsage522/pricecrawler/config"
	"sjsage522/pricecrawler/internal/crawler"
	"sjsage522/pricecrawler/internal/menu"
	"sjsage522/pricecrawler/logger"
	"sjsage522/pricecrawler/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	exitCode := worker.ExitOK
	app := newApp(&exitCode)
	if err := app.Run(os.Args); err != nil {
		exitCode = worker.ExitFailed
	}
	cli.Exit(exitCode)
}

// newApp builds the command line. The exit status of the selected command is
// stored in exitCode.
func newApp(exitCode *int) *cli.Cli {
	app := cli.App("pricecrawler", "Crawl product prices from idealo, kleineskraftwerk and priwatt")

	app.Action = func() {
		names := menu.Prompt(os.Stdin, os.Stdout, menuEntries())
		if len(names) == 0 {
			return
		}
		*exitCode = run(names)
	}

	app.Command("run", "Run sources without the menu", func(cmd *cli.Cmd) {
		cmd.Spec = "(--all | SOURCE...)"
		all := cmd.BoolOpt("a all", false, "Run all sources")
		sources := cmd.StringsArg("SOURCE", nil, "Sources to run, e.g. idealo priwatt")

		cmd.Action = func() {
			names := *sources
			if *all {
				names = crawler.SourceNames()
			}
			*exitCode = run(names)
		}
	})

	app.Command("list", "List the available sources", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			for _, e := range menuEntries() {
				fmt.Printf("%-18s %s\n", e.Name, e.Description)
			}
		}
	})

	return app
}

func menuEntries() []menu.Entry {
	names := crawler.SourceNames()
	entries := make([]menu.Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, menu.Entry{Name: name, Description: crawler.Describe(name)})
	}
	return entries
}

// run crawls the named sources and returns the exit status
func run(names []string) int {
	log := logger.Default

	// Load and validate configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return worker.ExitFailed
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return worker.ExitFailed
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("backend", cfg.Fetch.Backend).
		Strs("sources", names).
		Msg("Starting application")

	// Cancel everything on Ctrl-C or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize services")
		return worker.ExitFailed
	}
	defer services.Cleanup()

	w := worker.NewWorker(worker.Options{
		OutputDir: cfg.Output.Dir,
		Publisher: services.Publisher,
		Store:     services.Store,
	})
	summary := w.Run(ctx, buildJobs(cfg, names, services))
	summary.Print(os.Stdout)

	if summary.Interrupted {
		log.Warn().Msg("Operation cancelled by user")
	}
	return summary.ExitCode()
}
