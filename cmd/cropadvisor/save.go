package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/joelkehle/cropadvisor/internal/advisor"
	"github.com/joelkehle/cropadvisor/internal/render"
	"github.com/joelkehle/cropadvisor/internal/session"
)

var saveFrom string

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a previous recommendation to history",
	Long: `Posts the snapshot written by 'recommend --out' to CROPADVISOR_HISTORY_URL.
Fails with no_result when there is no snapshot to save.`,
	RunE: runSave,
}

func init() {
	saveCmd.Flags().StringVar(&saveFrom, "from", "cropadvisor-last.json", "snapshot file written by 'recommend --out'")
}

func runSave(cmd *cobra.Command, _ []string) error {
	if err := cfg.RequireClient(false, true); err != nil {
		return err
	}
	snap, err := readSnapshot(saveFrom)
	if err != nil {
		return err
	}
	client := newClient()
	term := render.NewTerminal(cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctrl := session.NewController(client, client, term, session.WithLogger(logger))
	id, err := ctrl.Save(cmd.Context(), snap)
	if err != nil {
		return err
	}
	printSaved(cmd, id)
	return nil
}

// readSnapshot returns nil without error when path does not exist.
func readSnapshot(path string) (*advisor.Snapshot, error) {
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap advisor.Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, &advisor.ParseError{What: "snapshot " + path, Err: err}
	}
	return &snap, nil
}
