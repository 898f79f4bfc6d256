package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/mealbox/internal/auth"
	"github.com/mmynk/mealbox/internal/config"
	"github.com/mmynk/mealbox/internal/storage/sqlite"
	"github.com/mmynk/mealbox/pkg/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "mealbox",
	Short:        "Order builder backend for the meal-prep storefront",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Connect server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the SQLite schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := sqlite.Migrate(cfg.DBPath); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", cfg.DBPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", cfg.DBPath)
		return nil
	},
}

var (
	tokenEmail string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <customer-id>",
	Short: "Issue a signed session token for local testing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		token, err := auth.NewJWTManager(cfg.JWTSecret, tokenTTL, cfg.JWTIssuer).Generate(args[0], tokenEmail)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("MEALBOX_CONFIG"), "YAML config file (or set MEALBOX_CONFIG)")

	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.LogFormat, cfg.LogLevel)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
