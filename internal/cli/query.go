package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	queryText string
	queryWeb  bool
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask a question against the indexed documents",
	Long: `Run one question through the retrieval pipeline and print the answer.

Examples:
  porsa query -q "پایتخت ایران کجاست؟"
  porsa query -q "تاریخچه اصفهان" --web --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question to answer (required)")
	queryCmd.Flags().BoolVar(&queryWeb, "web", false, "fall back to web search when local evidence is thin")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	_ = queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, _ []string) error {
	app, err := buildApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	resp, err := app.query.Process(cmd.Context(), queryText, queryWeb, queryTopK)
	if err != nil {
		return err
	}

	if queryJSON {
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Println("\nمنابع:")
		for _, source := range resp.Sources {
			fmt.Printf("- %s\n", source)
		}
	}
	if len(resp.SearchResults) > 0 {
		fmt.Println()
		for i, r := range resp.SearchResults {
			fmt.Printf("--- [%d] score %.2f ---\n", i+1, r.Score)
			preview := []rune(r.Text)
			if len(preview) > 300 {
				preview = preview[:300]
			}
			fmt.Println(string(preview))
		}
	}
	return nil
}
