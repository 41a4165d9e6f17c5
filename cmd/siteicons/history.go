package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/siteicons/internal/config"
	"github.com/nao1215/siteicons/internal/database"
	"github.com/nao1215/siteicons/internal/discovery"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [site]",
		Short: "Show stored discoveries",
		Long: `History lists the discoveries stored with --save.

Without a site it lists every site in the history database. With a site it
lists the runs for that site, newest first. A run marked "*" found a
different set of icons than the run before it.

Examples:
  # List every stored site
  siteicons history

  # List the runs for one site
  siteicons history example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		sites, err := db.ListSites(cmd.Context())
		if err != nil {
			return err
		}
		if len(sites) == 0 {
			fmt.Fprintln(out, "No discoveries stored.")
			return nil
		}
		for _, site := range sites {
			fmt.Fprintln(out, site)
		}
		return nil
	}

	// Reports are stored under the normalised seed URL.
	site := args[0]
	if u, err := discovery.NormalizeURL(site); err == nil {
		site = u.String()
	}

	records, err := db.GetHistory(cmd.Context(), site)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "No discoveries stored for %s.\n", site)
		return nil
	}
	return writeHistory(out, records)
}

// writeHistory prints one line per record.
func writeHistory(w io.Writer, records []database.DiscoveryRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tMODE\tICONS\tBEST\t")
	for _, rec := range records {
		marker := " "
		if rec.Changed {
			marker = "*"
		}
		mode := "full"
		if rec.Fast {
			mode = "fast"
		}
		best := rec.BestIcon
		if rec.Error != "" {
			best = "error: " + rec.Error
		}
		fmt.Fprintf(tw, "%s%d\t%s\t%s\t%d\t%s\t\n",
			marker, rec.ID, rec.DateScanned.Local().Format(time.DateTime), mode, rec.IconCount, best)
	}
	return tw.Flush()
}
