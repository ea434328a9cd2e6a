package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dropYes bool

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the vector collection and all indexed chunks",
	RunE:  runDrop,
}

func init() {
	rootCmd.AddCommand(dropCmd)
	dropCmd.Flags().BoolVar(&dropYes, "yes", false, "confirm the irreversible deletion")
}

func runDrop(cmd *cobra.Command, _ []string) error {
	if !dropYes {
		return fmt.Errorf("dropping the collection is irreversible; re-run with --yes to confirm")
	}

	app, err := buildApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.index.DropCollection(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("collection dropped")
	return nil
}
