package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"quant-warehouse/app"
	"quant-warehouse/config"
	"quant-warehouse/logging"
	"quant-warehouse/validation"
)

const usage = `usage: quant-warehouse [command]

commands:
  load      validate the source batch and replace-load it with every derived table (default)
  validate  validate the source batch and print the report; no database access
  serve     run the HTTP API (and scheduled reloads when PIPELINE_INTERVAL is set)`

func main() {
	command := "load"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	// Load config from .env file
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, command, cfg, logger)
	stop()
	_ = logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context, command string, cfg *config.Config, logger *zap.Logger) int {
	switch command {
	case "validate":
		report, err := app.Validate(ctx, cfg, logger)
		if err != nil {
			logger.Error("Validation could not run", zap.Error(err))
			return 1
		}
		printReport(report)
		if !report.Valid() {
			return 1
		}
		return 0

	case "load":
		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			logger.Error("Failed to start", zap.Error(err))
			return 1
		}
		defer application.Close()

		result, err := application.Load(ctx)
		if result != nil && result.Report != nil && !result.Report.Valid() {
			printReport(result.Report)
		}
		if err != nil {
			var verr *validation.ValidationError
			if !errors.As(err, &verr) {
				logger.Error("Load failed", zap.Error(err))
			}
			return 1
		}
		return 0

	case "serve":
		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			logger.Error("Failed to start", zap.Error(err))
			return 1
		}
		defer application.Close()

		if err := application.Serve(ctx); err != nil {
			logger.Error("Server stopped with error", zap.Error(err))
			return 1
		}
		return 0

	case "-h", "--help", "help":
		fmt.Println(usage)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", command, usage)
		return 2
	}
}

func printReport(report *validation.Report) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Printf("failed to encode report: %v", err)
	}
}
