// Package cli implements the porsa command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/porsa-ai/porsa/internal/config"
	logpkg "github.com/porsa-ai/porsa/internal/logger"
	"github.com/porsa-ai/porsa/internal/version"
)

var (
	envName string
	cfg     config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "porsa",
	Short: "Persian question answering over a curated document collection",
	Long: `porsa answers Persian questions with retrieval-augmented generation:
documents are chunked and indexed as embeddings, queries retrieve the
closest chunks, and an LLM generates the answer from them. When the local
index has too little evidence the pipeline can fall back to a web search.

Example usage:
  porsa serve                                  # run the HTTP API
  porsa ingest https://fa.wikipedia.org/wiki/X # add a page to the index
  porsa query -q "پایتخت ایران کجاست؟" --web   # ask a question`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		_ = godotenv.Load()

		if envName == "" {
			envName = config.GetEnv()
		}

		var err error
		cfg, err = config.Load(envName)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, err = logpkg.New(envName, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// No config needed for version.
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error { return nil },
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("porsa %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment name (config/<env>.yaml, default from ENV or \"local\")")
	rootCmd.AddCommand(versionCmd)
}
