package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/vsinha/mrpcore/pkg/infrastructure/config"
	"github.com/vsinha/mrpcore/pkg/infrastructure/events"
	"github.com/vsinha/mrpcore/pkg/infrastructure/logging"
	"github.com/vsinha/mrpcore/pkg/interfaces/cli/commands"
	"github.com/vsinha/mrpcore/pkg/interfaces/cli/output"
	"github.com/vsinha/mrpcore/pkg/mrp"
)

func main() {
	// Command line flags
	var (
		scenarioDir = flag.String(
			"scenario",
			"",
			"Path to scenario directory containing CSV files",
		)
		command      = flag.String("command", "", "explode, quote, stock or plan")
		product      = flag.String("product", "", "Product code")
		warehouse    = flag.String("warehouse", "MAIN", "Warehouse code")
		quantity     = flag.String("qty", "1", "Quantity")
		priority     = flag.Int("priority", commands.DefaultPriority, "Order priority for plan (1-10)")
		withCost     = flag.Bool("cost", false, "Price explosion leaves")
		availability = flag.Bool("availability", false, "Report stock and shortages per explosion leaf")
		outputDir    = flag.String("output", "", "Output directory for JSON results (optional)")
		format       = flag.String("format", output.FormatText, "Output format: text, json")
		verbose      = flag.Bool("verbose", false, "Enable verbose output")
		help         = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: config: %v\n", err)
		os.Exit(1)
	}
	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	if err := logging.Setup(level, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error: logging: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	published := events.NewInMemoryEventStore()
	published.Subscribe(func(e events.Event) {
		log.Debug().Str("type", e.Type()).Str("stream", e.StreamID()).Int("version", e.Version()).Msg("event")
	})
	engine, err := mrp.Open(ctx, cfg, published)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open engine")
	}

	// Create command configuration
	cmdConfig := commands.Config{
		ScenarioDir:      *scenarioDir,
		Command:          *command,
		Product:          *product,
		Warehouse:        *warehouse,
		Quantity:         *quantity,
		Priority:         *priority,
		WithCost:         *withCost,
		WithAvailability: *availability,
		Output: output.Config{
			Format:    *format,
			OutputDir: *outputDir,
			Verbose:   *verbose,
			Out:       os.Stdout,
		},
		Help: *help,
	}

	// Create and execute command
	cmd := commands.NewMRPCommand(cmdConfig, engine)
	err = cmd.Execute(ctx)

	log.Debug().Int("events", len(published.All())).Msg("events published")
	if closeErr := engine.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("close engine")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}
