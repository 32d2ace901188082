package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/helpdesk-sync/internal/credential"
	"github.com/nhle/helpdesk-sync/internal/model"
	"github.com/nhle/helpdesk-sync/internal/source/intercom"
	"github.com/nhle/helpdesk-sync/internal/store"
	syncpkg "github.com/nhle/helpdesk-sync/internal/sync"
	"github.com/nhle/helpdesk-sync/internal/ui/progress"
)

// newSyncCmd builds the sync command. Modes map to the three
// connector entry points: full walks everything, poll skips items not
// updated since the last successful run, resume continues an
// interrupted full walk from the persisted checkpoint.
func newSyncCmd() *cobra.Command {
	var (
		mode      string
		batchSize int
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a sync against the helpdesk API",
		RunE: func(cmd *cobra.Command, args []string) error {
			syncMode := model.SyncMode(mode)
			switch syncMode {
			case model.SyncModeFull, model.SyncModePoll, model.SyncModeResume:
			default:
				return fmt.Errorf(
					"invalid mode %q: must be full, poll, or resume", mode,
				)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if batchSize <= 0 {
				batchSize = cfg.Sync.BatchSize
			}

			token, err := credential.Get(credentialKey)
			if err != nil {
				return fmt.Errorf(
					"loading credentials (run 'helpdesk-sync setup' first): %w",
					err,
				)
			}

			adapter, err := intercom.NewAdapter(cfg.Intercom, map[string]string{
				intercom.CredentialTokenKey: token,
			})
			if err != nil {
				return err
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			runner := syncpkg.NewRunner(s)

			if watch {
				return runWatched(cmd, runner, adapter, syncMode, batchSize)
			}

			run, err := runner.Sync(cmd.Context(), adapter, syncMode, batchSize)
			if err != nil {
				return err
			}

			fmt.Printf(
				"Synced %d documents in %d batches (%s mode, %s).\n",
				run.Documents, run.Batches, run.Mode,
				run.FinishedAt.Sub(run.StartedAt).Round(10*time.Millisecond),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "poll", "sync mode: full, poll, or resume")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "documents per batch (0 = config default)")
	cmd.Flags().BoolVar(&watch, "watch", false, "show live progress while syncing")

	return cmd
}

// runWatched runs the sync in the background while the progress view
// consumes runner events in the foreground.
func runWatched(
	cmd *cobra.Command,
	runner *syncpkg.Runner,
	adapter *intercom.Adapter,
	mode model.SyncMode,
	batchSize int,
) error {
	errCh := make(chan error, 1)
	go func() {
		_, err := runner.Sync(cmd.Context(), adapter, mode, batchSize)
		errCh <- err
	}()

	p := tea.NewProgram(progress.New(runner.Events()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running progress view: %w", err)
	}

	return <-errCh
}

// openStore opens the SQLite store at the configured path, creating
// parent directories if needed.
func openStore(cfg *model.AppConfig) (*store.SQLiteStore, error) {
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return store.NewSQLiteStore(cfg.DBPath)
}
