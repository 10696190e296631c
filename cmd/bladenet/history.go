package main

import (
	"fmt"
	"path/filepath"

	"bladenet/cmd/bladenet/ui"
	"bladenet/infra/journal"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var (
		limit   int
		dataDir string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent reconciliation results from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.Open(filepath.Join(dataDir, "journal.db"))
			if err != nil {
				return err
			}
			defer func() {
				_ = j.Close()
			}()

			entries, err := j.Recent(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println(ui.Muted("No reconciliation history."))
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				detail := e.Detail
				if detail == "" {
					detail = "-"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", e.PassID),
					e.Network,
					e.Outcome,
					e.RecordedAt.Local().Format("2006-01-02 15:04:05"),
					detail,
				})
			}
			fmt.Println(ui.Table([]string{"pass", "network", "outcome", "recorded", "detail"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")
	cmd.Flags().StringVar(&dataDir, "data-dir", defaultDataDir, "Directory holding the reconciliation journal")

	return cmd
}
