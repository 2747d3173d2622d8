package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// deleteCmd moves a profile to the trash
var deleteCmd = &cobra.Command{
	Use:   "delete [uuid]",
	Short: "Move a provisioning profile to the trash",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	m, closeFn, err := loadCollection(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	uuid := args[0]
	rec, ok := m.Lookup(uuid)
	if !ok {
		rec, ok = m.Lookup(strings.ToUpper(uuid))
	}
	if !ok {
		return fmt.Errorf("no profile with UUID %s in %s", uuid, m.Root())
	}

	if err := m.Delete(cmd.Context(), rec); err != nil {
		return err
	}
	logger.Info("Profile trashed", zap.String("uuid", rec.UUID), zap.String("path", rec.SourcePath))
	fmt.Fprintf(cmd.OutOrStdout(), "Moved %q (%s) to the trash\n", rec.Name, rec.UUID)
	return nil
}
