package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subscraper/pkg/db"
	"subscraper/pkg/logger"
	"subscraper/pkg/ui"
)

var mergeDest string

// mergeCmd represents the merge command
var mergeCmd = &cobra.Command{
	Use:   "merge <source-root>",
	Short: "Merge cache databases from old download trees",
	Long: `Walk a directory tree, find every user_data.db cache inside it
and merge their contents into a single destination database.

Rows are deduplicated on their primary keys; a media file marked
downloaded in any source stays marked downloaded in the destination.
Sources that cannot be read are skipped with a warning.`,
	Example: `  # Merge old backups into one database
  subscraper merge ~/old-backups --dest ./merged/user_data.db`,
	Args: cobra.ExactArgs(1),
	Run:  runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringVar(&mergeDest, "dest", "user_data.db", "destination database path")
}

func runMerge(cmd *cobra.Command, args []string) {
	log := logger.GetLogger()

	report, err := db.Merge(context.Background(), args[0], mergeDest, log)
	if err != nil {
		ui.PrintError("Merge failed", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("[MERGE COMPLETED]")
	ui.PrintInfo("Sources found", fmt.Sprintf("%d", report.SourcesFound))
	ui.PrintInfo("Sources merged", fmt.Sprintf("%d", report.SourcesRead))
	if report.SourcesFound != report.SourcesRead {
		ui.PrintWarning("Some sources were skipped", report.SourcesFound-report.SourcesRead)
	}
	ui.PrintInfo("Destination", mergeDest)
}
