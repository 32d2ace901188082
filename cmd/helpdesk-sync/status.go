package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/helpdesk-sync/internal/model"
)

// newStatusCmd builds the status command, which reports the stored
// document count, the pending resume checkpoint, and recent runs.
func newStatusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sync state and recent run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			src := model.SourceTypeIntercom

			count, err := s.CountDocuments(ctx, src)
			if err != nil {
				return err
			}
			cursor, err := s.GetCursor(ctx, src)
			if err != nil {
				return err
			}
			runs, err := s.GetRuns(ctx, src, limit)
			if err != nil {
				return err
			}

			fmt.Printf("Source:     %s\n", src)
			fmt.Printf("Documents:  %d\n", count)
			if cursor != "" {
				fmt.Printf("Checkpoint: %s (resume pending)\n", cursor)
			} else {
				fmt.Println("Checkpoint: none")
			}

			if len(runs) == 0 {
				fmt.Println("\nNo sync runs recorded yet.")
				return nil
			}

			fmt.Println("\nRecent runs:")
			for _, run := range runs {
				outcome := "ok"
				if !run.Success {
					outcome = "failed: " + run.Error
				}
				fmt.Printf(
					"  %s  %-6s  %4d docs  %3d batches  %s\n",
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Mode, run.Documents, run.Batches, outcome,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")

	return cmd
}
