package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"subscraper/pkg/config"
	"subscraper/pkg/db"
	"subscraper/pkg/logger"
	"subscraper/pkg/models"
	"subscraper/pkg/scraper"
	"subscraper/pkg/table"
	"subscraper/pkg/ui"
)

var (
	// Table command flags
	tableMediaTypes []string
	tableTypes      []string
	tableDownloaded string
	tableUnlocked   []string
	tableText       string
	tableMinPrice   float64
	tableMaxPrice   float64
	tableSort       string
	tableLimit      int
)

// tableCmd browses a model's cache database with the content filters
var tableCmd = &cobra.Command{
	Use:   "table <username>",
	Short: "Browse a creator's cached content with filters",
	Long: `List the media recorded in a creator's cache database, filtered
and sorted the way the content table does.

Filters compose: a row must pass every active filter. Text search is a
case-insensitive regular expression, falling back to a substring match
when the pattern does not compile.`,
	Example: `  # Everything cached for one creator
  subscraper table alice

  # Undownloaded paid videos, most expensive first
  subscraper table alice --mediatype videos --downloaded no --min-price 0.01 --sort price

  # Posts mentioning a keyword
  subscraper table alice --text beach`,
	Args: cobra.ExactArgs(1),
	RunE: runTable,
}

func init() {
	rootCmd.AddCommand(tableCmd)

	tableCmd.Flags().StringSliceVar(&tableMediaTypes, "mediatype", nil, "media type: images, videos, audios, text (repeatable)")
	tableCmd.Flags().StringSliceVar(&tableTypes, "responsetype", nil, "response type: post, message, stories... (repeatable)")
	tableCmd.Flags().StringVar(&tableDownloaded, "downloaded", "", "filter by download state: yes or no")
	tableCmd.Flags().StringSliceVar(&tableUnlocked, "unlocked", nil, "unlock status: True, Locked, Preview, Included (repeatable)")
	tableCmd.Flags().StringVar(&tableText, "text", "", "text search (regex, substring fallback)")
	tableCmd.Flags().Float64Var(&tableMinPrice, "min-price", -1, "minimum price")
	tableCmd.Flags().Float64Var(&tableMaxPrice, "max-price", -1, "maximum price")
	tableCmd.Flags().StringVar(&tableSort, "sort", "", "sort column: post_date, price, length, media_id, post_id, username")
	tableCmd.Flags().IntVar(&tableLimit, "limit", 0, "show at most this many rows")
}

func runTable(cmd *cobra.Command, args []string) error {
	username := args[0]

	flags := make(map[string]interface{})
	if profile != "" {
		flags["profile"] = profile
	}
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	dbPath := db.ModelDBPath(cfg.FileOptions.SaveLocation, username)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		ui.PrintError("No cache database", fmt.Sprintf("nothing scraped yet for %s", username))
		os.Exit(1)
	}

	store, err := db.Open(dbPath, logger.GetLogger())
	if err != nil {
		ui.PrintError("Failed to open cache", err.Error())
		os.Exit(1)
	}
	defer store.Close()

	rows, err := scraper.LoadTableRows(store, username)
	if err != nil {
		ui.PrintError("Failed to read cache", err.Error())
		os.Exit(1)
	}

	t := table.New()
	t.Load(rows)
	t.SetFilter(buildFilter())
	if tableSort != "" {
		t.SortBy(table.Column(tableSort))
	}

	visible := t.Visible()
	total := len(visible)
	if tableLimit > 0 && len(visible) > tableLimit {
		visible = visible[:tableLimit]
	}

	printRows(visible)
	ui.PrintInfo("Rows", fmt.Sprintf("%d shown of %d matching (%d cached)", len(visible), total, t.Len()))
	return nil
}

// buildFilter maps the command flags onto a filter snapshot.
func buildFilter() *table.FilterState {
	f := &table.FilterState{TextSearch: tableText}

	if len(tableMediaTypes) > 0 {
		f.MediaTypes = make(map[models.MediaType]bool)
		for _, mt := range tableMediaTypes {
			f.MediaTypes[models.MediaType(strings.ToLower(mt))] = true
		}
	}
	if len(tableTypes) > 0 {
		f.ResponseTypes = make(map[string]bool)
		for _, rt := range tableTypes {
			f.ResponseTypes[strings.ToLower(rt)] = true
		}
	}
	switch strings.ToLower(tableDownloaded) {
	case "yes", "true":
		v := true
		f.Downloaded = &v
	case "no", "false":
		v := false
		f.Downloaded = &v
	}
	if len(tableUnlocked) > 0 {
		f.Unlocked = make(map[models.UnlockStatus]bool)
		for _, u := range tableUnlocked {
			f.Unlocked[models.UnlockStatus(u)] = true
		}
	}
	if tableMinPrice >= 0 {
		v := tableMinPrice
		f.MinPrice = &v
	}
	if tableMaxPrice >= 0 {
		v := tableMaxPrice
		f.MaxPrice = &v
	}
	return f
}

func printRows(rows []*table.Row) {
	if len(rows) == 0 {
		ui.PrintWarning("No rows match the filters")
		return
	}

	fmt.Printf("%-12s %-10s %-8s %-9s %-10s %-8s %-9s %s\n",
		"MEDIA_ID", "TYPE", "PRICE", "UNLOCKED", "DOWNLOADED", "LENGTH", "DATE", "TEXT")
	for _, r := range rows {
		downloaded := "no"
		if r.Downloaded {
			downloaded = "yes"
		}
		text := r.Text
		if len(text) > 40 {
			text = text[:37] + "..."
		}
		fmt.Printf("%-12d %-10s %-8s %-9s %-10s %-8s %-9s %s\n",
			r.MediaID, r.MediaType, r.PriceLabel(), r.Unlocked, downloaded,
			r.LengthLabel(), r.PostDate.Format("2006-01-02"), text)
	}
}
