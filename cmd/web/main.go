package main

import (
	"fmt"
	"os"

	"github.com/de-tools/epi-atlas/pkg/observability"
	"github.com/de-tools/epi-atlas/pkg/server"
	"github.com/de-tools/epi-atlas/pkg/services/config"
	"github.com/de-tools/epi-atlas/pkg/services/projection"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for epidemic projections",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to a config file (yaml, toml, json or ini); EPI_* env vars override it")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}

	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	table, err := cfg.TableConfig()
	if err != nil {
		return fmt.Errorf("failed to load region table: %w", err)
	}

	metrics := observability.NewMetrics()
	svc, err := projection.NewService(projection.Config{
		Solver:      cfg.SolverOptions(),
		Beds:        table,
		Metrics:     metrics,
		MaxBatch:    cfg.Batch.MaxSize,
		Parallelism: cfg.Batch.Parallelism,
	})
	if err != nil {
		return fmt.Errorf("failed to create projection service: %w", err)
	}

	logger.Info().
		Int("regions", len(table.Table)).
		Float64("total_icu_beds", table.TotalBeds).
		Strs("models", svc.Models()).
		Msg("projection service ready")

	api := server.NewWebAPI(server.Config{
		Addr:            cfg.Addr(),
		RequestTimeout:  cfg.Server.RequestTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Dependencies: server.Dependencies{
			Projections: svc,
			Metrics:     metrics,
			Logger:      logger,
		},
	})

	return api.Start()
}
