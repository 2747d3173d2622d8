package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"profiledeck/cmd/profiledeck/ui"
	"profiledeck/internal/profile"
)

var (
	listQuery string
	listSort  string
	listDesc  bool
	listJSON  bool
)

// listCmd prints the decoded profiles
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed provisioning profiles",
	Long: `Scans the profiles directory once and prints every profile that decodes.

Examples:
  profiledeck list --query "acme" --sort expires_at
  profiledeck list --json | jq '.[].uuid'`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Case-insensitive filter on name, team or UUID")
	listCmd.Flags().StringVarP(&listSort, "sort", "s", "", "Sort field: name, team_name, created_at, expires_at, uuid")
	listCmd.Flags().BoolVar(&listDesc, "desc", false, "Sort descending")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON instead of a table")
}

func runList(cmd *cobra.Command, args []string) error {
	key := cfg.SortKey()
	if listSort != "" {
		f, err := profile.ParseField(listSort)
		if err != nil {
			return err
		}
		key = profile.SortKey{Field: f, Ascending: true}
	}
	if listDesc {
		key.Ascending = false
	}

	m, closeFn, err := loadCollection(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	m.SetQuery(listQuery)
	m.Sort(key.Field, key.Ascending)
	snap := m.Snapshot()

	out := cmd.OutOrStdout()
	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		records := snap.Visible
		if records == nil {
			records = []profile.Record{}
		}
		return enc.Encode(records)
	}

	if len(snap.Visible) == 0 {
		fmt.Fprintf(out, "No profiles found in %s\n", m.Root())
		return nil
	}
	table := ui.NewSimpleTable("", ui.ColumnTitles())
	now := time.Now()
	for _, r := range snap.Visible {
		table.AddRow(ui.RecordRow(r, now)...)
	}
	fmt.Fprint(out, table.View(ui.DefaultStyles()))
	fmt.Fprintf(out, "%d of %d profiles", len(snap.Visible), len(snap.All))
	if snap.Skipped > 0 {
		fmt.Fprintf(out, ", %d unreadable", snap.Skipped)
	}
	fmt.Fprintln(out)
	return nil
}
