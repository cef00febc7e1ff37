package main

import (
	"fmt"
	"os"

	"github.com/de-tools/epi-atlas/pkg/runtime/terminal"
	"github.com/de-tools/epi-atlas/pkg/services/config"
	"github.com/de-tools/epi-atlas/pkg/services/projection"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional for the CLI.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("EPI_CONFIG"))
	if err != nil {
		return err
	}
	table, err := cfg.TableConfig()
	if err != nil {
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	zerolog.DefaultContextLogger = &logger

	svc, err := projection.NewService(projection.Config{
		Solver: cfg.SolverOptions(),
		Beds:   table,
	})
	if err != nil {
		return fmt.Errorf("failed to create projection service: %w", err)
	}

	cli := terminal.NewCLI(terminal.Options{
		Service: svc,
		Output:  os.Stdout,
	})
	return cli.Execute()
}
