package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	ingestSite         bool
	ingestMaxPages     int
	ingestIncludePaths []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <url>...",
	Short: "Fetch pages and add them to the index",
	Long: `Fetch one or more URLs, chunk their content, and index the chunks.
With --site the URL is crawled as a whole site up to --max-pages pages.

Examples:
  porsa ingest https://fa.wikipedia.org/wiki/تهران
  porsa ingest --site --max-pages 20 --include-paths "/wiki/**" https://fa.wikipedia.org`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestSite, "site", false, "crawl the whole site instead of a single page")
	ingestCmd.Flags().IntVar(&ingestMaxPages, "max-pages", 0, "crawl page budget (default from config)")
	ingestCmd.Flags().StringSliceVar(&ingestIncludePaths, "include-paths", nil, "glob patterns for crawled URL paths (e.g. \"/docs/**\")")
}

func runIngest(cmd *cobra.Command, args []string) error {
	app, err := buildApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if ingestSite {
		maxPages := ingestMaxPages
		if maxPages <= 0 {
			maxPages = cfg.Firecrawl.MaxPages
		}
		for _, url := range args {
			result, err := app.ingest.IngestSite(cmd.Context(), url, maxPages, ingestIncludePaths)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", url, result.Message)
		}
		return nil
	}

	var bar *progressbar.ProgressBar
	if len(args) > 1 {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("Ingesting"),
		)
	}

	failed := 0
	for _, url := range args {
		result, err := app.ingest.IngestURL(cmd.Context(), url)
		if err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
		if !result.Success {
			failed++
			fmt.Printf("%s: %s\n", url, result.Message)
			continue
		}
		fmt.Printf("%s: %s\n", url, result.Message)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed", failed, len(args))
	}
	return nil
}
