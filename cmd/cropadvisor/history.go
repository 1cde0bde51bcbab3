package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Work with saved recommendations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently saved recommendations, newest first",
	RunE:  runHistoryList,
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of records")
	historyCmd.AddCommand(historyListCmd)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))

func runHistoryList(cmd *cobra.Command, _ []string) error {
	if err := cfg.RequireClient(false, true); err != nil {
		return err
	}
	entries, err := newClient().ListHistory(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No saved recommendations.")
		return nil
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-36s  %-20s  %-16s  %s", "ID", "SAVED", "CROP", "FIELD")))
	for _, e := range entries {
		field := strings.TrimSpace(strings.Join([]string{e.Record.Name, e.Record.Location}, " "))
		if field == "" {
			field = "-"
		}
		fmt.Fprintf(out, "%-36s  %-20s  %-16s  %s\n",
			e.ID, e.CreatedAt.Local().Format(time.DateTime), e.Record.Recommendation, field)
	}
	return nil
}
