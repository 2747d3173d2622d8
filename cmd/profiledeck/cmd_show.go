package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"howett.net/plist"

	"profiledeck/cmd/profiledeck/ui"
	"profiledeck/internal/profile"
)

var showPlist bool

// showCmd prints one profile in detail
var showCmd = &cobra.Command{
	Use:   "show [uuid|path]",
	Short: "Show a single provisioning profile",
	Long: `Prints the decoded fields of one profile, looked up by UUID in the
profiles directory or read directly from a file path.

With --plist the embedded property list is printed as XML.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showPlist, "plist", false, "Also print the embedded property list")
}

func runShow(cmd *cobra.Command, args []string) error {
	rec, err := resolveRecord(cmd, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.RenderDetails(rec, time.Now(), ui.DefaultStyles()))

	if showPlist {
		xml, err := payloadXML(rec.SourcePath)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(xml))
	}
	return nil
}

// resolveRecord treats target as a file path when one exists, otherwise as
// a UUID in the configured root.
func resolveRecord(cmd *cobra.Command, target string) (profile.Record, error) {
	if info, err := os.Stat(target); err == nil && info.Mode().IsRegular() {
		return profile.Parse(target)
	}

	m, closeFn, err := loadCollection(cmd.Context())
	if err != nil {
		return profile.Record{}, err
	}
	defer closeFn()

	if rec, ok := m.Lookup(target); ok {
		return rec, nil
	}
	if rec, ok := m.Lookup(strings.ToUpper(target)); ok {
		return rec, nil
	}
	return profile.Record{}, fmt.Errorf("no profile with UUID %s in %s", target, m.Root())
}

// payloadXML re-encodes the embedded payload of path as XML.
func payloadXML(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	payload, err := profile.DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	dict, err := profile.DecodePayload(payload)
	if err != nil {
		return nil, err
	}
	return plist.MarshalIndent(dict, plist.XMLFormat, "\t")
}
