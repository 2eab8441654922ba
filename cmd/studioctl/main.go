package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"studio/internal/infra"
	"studio/internal/infra/credentials"
)

var rootCmd = &cobra.Command{
	Use:           "studioctl",
	Short:         "Operator tools for the listing studio",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// --- key ---

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the stored Gemini API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the Gemini API key in the database",
	Long: `Store the Gemini API key in the database.

Examples:
  studioctl key set --key AIza...
  GEMINI_API_KEY=AIza... studioctl key set`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		key = strings.TrimSpace(key)
		if key == "" {
			key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		}
		if key == "" {
			return fmt.Errorf("api key is required via --key or GEMINI_API_KEY")
		}
		return withStore(cmd.Context(), func(ctx context.Context, store *credentials.Store) error {
			if err := store.SetGeminiAPIKey(ctx, key); err != nil {
				return fmt.Errorf("persist api key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s api key (%s)\n", credentials.ProviderGemini, mask(key))
			return nil
		})
	},
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a key is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, store *credentials.Store) error {
			info, err := store.Token(ctx, credentials.ProviderGemini)
			if err != nil {
				return err
			}
			if info.Token == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No key stored")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key %s updated %s\n", mask(info.Token), info.UpdatedAt.Format(time.RFC3339))
			return nil
		})
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, store *credentials.Store) error {
			if err := store.Delete(ctx, credentials.ProviderGemini); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Key removed")
			return nil
		})
	},
}

// --- migrate ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		pool, err := infra.NewDBPool(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		return infra.Migrate(pool, logger)
	},
}

func init() {
	keySetCmd.Flags().String("key", "", "Gemini API key (defaults to GEMINI_API_KEY)")
	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyStatusCmd)
	keyCmd.AddCommand(keyDeleteCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(migrateCmd)
}

func loadConfig() (*infra.Config, infra.Logger, error) {
	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, infra.Logger{}, err
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "studioctl").Logger()
	return cfg, logger, nil
}

func withStore(ctx context.Context, fn func(context.Context, *credentials.Store) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	execCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return fn(execCtx, credentials.NewStore(infra.NewSQLRunner(pool, logger)))
}

// mask keeps the last four characters of a key.
func mask(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
