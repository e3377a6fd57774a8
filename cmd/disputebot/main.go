package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"disputebot/internal/browser"
	"disputebot/internal/config"
	"disputebot/internal/controller"
	"disputebot/internal/dashboard"
	"disputebot/internal/history"
	"disputebot/internal/logging"
	"disputebot/internal/model"
	"disputebot/internal/statestore"
	"disputebot/internal/worker"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "worker":
		runWorker(os.Args[2:])
	case "dashboard":
		runDashboard(os.Args[2:])
	case "start":
		runCommand(os.Args[2:], "start")
	case "stop":
		runCommand(os.Args[2:], "stop")
	case "pause":
		runCommand(os.Args[2:], "pause")
	case "resume":
		runCommand(os.Args[2:], "resume")
	case "analyze":
		runCommand(os.Args[2:], "analyze")
	case "status":
		runStatus(os.Args[2:])
	case "version":
		fmt.Printf("disputebot %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// parseCommon extracts the --config flag shared by every subcommand and
// returns the remaining args.
func parseCommon(args []string) (string, []string) {
	cfgPath := "disputebot.yaml"
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" {
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a value")
				os.Exit(1)
			}
			i++
			cfgPath = args[i]
			continue
		}
		rest = append(rest, args[i])
	}
	return cfgPath, rest
}

func mustLoadConfig(args []string) (model.Config, []string) {
	cfgPath, rest := parseCommon(args)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	return cfg, rest
}

func mustOpenStore(cfg model.Config) *statestore.Store {
	store, err := statestore.New(cfg.Worker.StateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open state dir: %v\n", err)
		os.Exit(1)
	}
	return store
}

func runWorker(args []string) {
	cfg, rest := mustLoadConfig(args)

	dryRun := false
	for _, a := range rest {
		switch a {
		case "--dry-run":
			dryRun = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: disputebot worker [--config <path>] [--dry-run]\n", a)
			os.Exit(1)
		}
	}

	var drv browser.Driver
	if dryRun {
		drv = browser.NewFake()
	} else {
		fmt.Fprintln(os.Stderr, "error: no browser automation backend is linked into this build; use --dry-run for the scripted portal")
		os.Exit(1)
	}

	logPath := filepath.Join(cfg.Worker.StateDir, "logs", "worker.log")
	log, closer, err := logging.NewFile(logPath, logging.ParseLevel(cfg.Logging.Level), "worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	store := mustOpenStore(cfg)

	archive, err := history.Open(cfg.Worker.HistoryDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open history db: %v\n", err)
		os.Exit(1)
	}
	defer archive.Close()

	w := worker.New(worker.Options{
		Config:  cfg,
		Driver:  drv,
		Store:   store,
		Archive: archive,
		Log:     log,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := w.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func runDashboard(args []string) {
	cfg, rest := mustLoadConfig(args)
	if len(rest) > 0 {
		fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: disputebot dashboard [--config <path>]\n", rest[0])
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	dashboard.InitSlog(cfg.Logging.Level, cfg.Logging.Format)

	store := mustOpenStore(cfg)
	srv := dashboard.New(store, controller.New(store), nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Serve(ctx, cfg.Dashboard.Listen); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: %v\n", err)
		os.Exit(1)
	}
}

func runCommand(args []string, name string) {
	cfg, rest := mustLoadConfig(args)
	if len(rest) > 0 {
		fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: disputebot %s [--config <path>]\n", rest[0], name)
		os.Exit(1)
	}

	ctrl := controller.New(mustOpenStore(cfg))

	var err error
	switch name {
	case "start":
		err = ctrl.Start()
	case "stop":
		err = ctrl.Stop()
	case "pause":
		err = ctrl.Pause()
	case "resume":
		err = ctrl.Resume()
	case "analyze":
		err = ctrl.Analyze()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
	fmt.Printf("%s requested\n", name)
}

func runStatus(args []string) {
	cfg, rest := mustLoadConfig(args)

	jsonOutput := false
	for _, a := range rest {
		switch a {
		case "--json":
			jsonOutput = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: disputebot status [--config <path>] [--json]\n", a)
			os.Exit(1)
		}
	}

	ctrl := controller.New(mustOpenStore(cfg))
	view := ctrl.Status()

	rollup := history.Rollup{}
	if archive, err := history.Open(cfg.Worker.HistoryDBPath); err == nil {
		rollup, _ = archive.Totals(context.Background(), time.Now().UTC())
		archive.Close()
	}

	if jsonOutput {
		out := struct {
			controller.StatusView
			History history.Rollup `json:"history"`
		}{view, rollup}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "status: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Status:   %s\n", view.Run.Status)
	fmt.Printf("Command:  %s\n", view.Run.Command)
	fmt.Printf("Session:  %d invoices scanned, %d processed, %d disputes, %d skipped, %d errors\n",
		view.Stats.TotalInvoices, view.Stats.InvoicesProcessed,
		view.Stats.Disputed, view.Stats.Skipped, view.Stats.Errors)
	fmt.Printf("All time: %d disputes (%d this month)\n", rollup.Total, rollup.Month)
	if n := len(view.Logs); n > 0 {
		last := view.Logs[n-1]
		fmt.Printf("Last:     %s %s\n", last.Timestamp, last.Title)
	}
}

func printUsage() {
	fmt.Println(`disputebot: duty/tax dispute automation

Usage:
  disputebot worker [--config <path>] [--dry-run]    run the processing worker
  disputebot dashboard [--config <path>]             serve the control dashboard
  disputebot start|stop|pause|resume|analyze         send a command to the worker
  disputebot status [--config <path>] [--json]       show run state and stats
  disputebot version                                 print version

Configuration is read from disputebot.yaml (override with --config),
then .env, then DISPUTEBOT_* environment variables.`)
}
