package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/site-builder/internal/repository"
)

func newFixSlugsCommand() *cobra.Command {
	var (
		dryRun    bool
		websiteID int64
	)

	cmd := &cobra.Command{
		Use:   "fix-slugs",
		Short: "Normalize slugs and rename duplicates to slug-{n}",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ids := []int64{websiteID}
			if websiteID == 0 {
				ids, err = repository.NewWebsiteRepository(e.db).ListIDs(cmd.Context())
				if err != nil {
					return err
				}
			}

			pages := repository.NewPageRepository(e.db)
			report := map[int64][]repository.SlugRename{}
			for _, id := range ids {
				renames, fixErr := pages.FixSlugs(cmd.Context(), id, dryRun)
				if fixErr != nil {
					return fmt.Errorf("website %d: %w", id, fixErr)
				}
				if len(renames) > 0 {
					report[id] = renames
				}
			}

			renderRenames(cmd.OutOrStdout(), ids, report, dryRun)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report renames without saving them")
	cmd.Flags().Int64Var(&websiteID, "website", 0, "only fix this website")
	return cmd
}

func renderRenames(w io.Writer, ids []int64, report map[int64][]repository.SlugRename, dryRun bool) {
	total := 0
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Website", "Page", "From", "To"})
	for _, id := range ids {
		for _, r := range report[id] {
			t.AppendRow(table.Row{id, r.PageID, r.From, r.To})
			total++
		}
	}

	if total == 0 {
		fmt.Fprintln(w, "All slugs are unique")
		return
	}
	verb := "Renamed"
	if dryRun {
		verb = "Would rename"
	}
	t.AppendFooter(table.Row{"", "", verb, total})
	t.Render()
}
