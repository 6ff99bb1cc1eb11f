package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/savegress/odcv/internal/analysis"
	"github.com/savegress/odcv/internal/api"
	"github.com/savegress/odcv/internal/config"
	"github.com/savegress/odcv/internal/ingest"
	"github.com/savegress/odcv/internal/storage"
	"github.com/savegress/odcv/internal/validation"
	"github.com/savegress/odcv/pkg/models"
)

var configPath = ""

func main() {
	rootCmd := &cobra.Command{
		Use:   "odcv",
		Short: "Occupancy-driven control verification analytics",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", configPath, "Configuration file path (YAML)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(analyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv(), nil
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "sqlite":
		return storage.NewSQLiteStore(cfg.Storage.DataPath)
	case "", "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analytics API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log.Printf("Starting ODCV analytics service")
			log.Printf("Environment: %s", cfg.Server.Environment)

			store, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer store.Close()
			log.Printf("Storage backend: %s", cfg.Storage.Type)

			engine := analysis.NewEngine(cfg.Analysis)
			server := api.NewServer(cfg, store, engine)

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			httpServer := &http.Server{
				Addr:    addr,
				Handler: server.Handler(),
			}

			go func() {
				log.Printf("HTTP server listening on %s", addr)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("HTTP server error: %v", err)
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			log.Println("Shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("HTTP server shutdown error: %v", err)
			}

			log.Println("ODCV stopped")
			return nil
		},
	}
}

func analyzeCmd() *cobra.Command {
	var (
		period  string
		profile string
	)

	cmd := &cobra.Command{
		Use:   "analyze <events.csv>",
		Short: "Run a one-shot analysis over a CSV event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			result, err := ingest.LoadFile(args[0])
			if err != nil {
				return err
			}
			if result.Skipped > 0 {
				log.Printf("Skipped %d malformed rows", result.Skipped)
			}

			prof, err := validation.GetProfile(profile)
			if err != nil {
				return err
			}

			engine := analysis.NewEngine(cfg.Analysis)
			pairs := engine.Pairs(result.Events)
			report := struct {
				Pairs     []models.SensorZonePair  `json:"pairs"`
				Dashboard *models.DashboardMetrics `json:"dashboard"`
				Sensors   []*models.SensorMetrics  `json:"sensors"`
			}{
				Pairs:     pairs,
				Dashboard: engine.DashboardMetrics(result.Events, pairs, period),
				Sensors:   engine.SensorMetrics(result.Events, pairs, period, prof.Timing),
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&period, "period", "24h", "Analysis period (24h, 5d, 30d)")
	cmd.Flags().StringVar(&profile, "profile", "default", "Validation profile")
	return cmd
}
