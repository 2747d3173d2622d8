package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"profiledeck/cmd/profiledeck/ui"
)

// watchCmd runs the interactive browser
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Browse profiles interactively, refreshing on change",
	Long: `Opens a live table of installed profiles. The view refreshes whenever the
profiles directory changes.

Keys:
  /      search            s  cycle sort column
  r      reverse sort      R  reload now
  d      move to trash     q  quit`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	m, closeFn, err := openManager(cfg.Watcher.Enabled)
	if err != nil {
		return err
	}
	defer closeFn()

	model := ui.New(m, ui.Options{Root: m.Root(), Sort: cfg.SortKey()})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interactive view: %w", err)
	}
	return nil
}
