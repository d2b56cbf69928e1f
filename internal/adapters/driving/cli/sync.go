package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
	"github.com/dhluong90/presale-assistance-backend/internal/logger"
)

var syncWatch bool

// watchDebounce coalesces bursts of change events into one sync pass.
const watchDebounce = 2 * time.Second

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull documents from the source and refresh the index",
	Long: `Lists the configured source, extracts text from supported
files, computes missing embeddings and persists the index. With
--watch the command keeps running and re-syncs when the source
changes.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncWatch, "watch", "w", false,
		"keep running and re-sync on source changes")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if knowledgeService == nil {
		return errNotConfigured
	}

	cmd.Println("Synchronising...")
	if err := syncOnce(cmd); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	cmd.Printf("Synchronised %d documents (%d embedded).\n",
		knowledgeService.DocumentCount(), knowledgeService.EmbeddedCount())

	if !syncWatch {
		return nil
	}
	return watchAndSync(cmd)
}

// syncOnce runs one full pass: load what exists, pull the source,
// embed what is missing and persist.
func syncOnce(cmd *cobra.Command) error {
	ctx := cmd.Context()

	if err := knowledgeService.Load(ctx); err != nil {
		return err
	}
	if err := knowledgeService.Refresh(ctx); err != nil {
		return err
	}
	if err := knowledgeService.EnsureEmbeddings(ctx); err != nil {
		return err
	}
	return knowledgeService.Persist(ctx)
}

// watchAndSync blocks on source change events and re-syncs after a
// quiet period. Only sources that support watching can be watched.
func watchAndSync(cmd *cobra.Command) error {
	watcher, ok := watchSource.(driven.WatchingSource)
	if !ok || watchSource == nil {
		return fmt.Errorf("source does not support --watch")
	}

	ctx := cmd.Context()
	events, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch source: %w", err)
	}
	cmd.Println("Watching for changes (ctrl-c to stop)...")

	debounceEvents(ctx, events, watchDebounce, func() {
		cmd.Println("Source changed, re-synchronising...")
		if err := syncOnce(cmd); err != nil {
			logger.Error("Re-sync failed: %v", err)
			return
		}
		cmd.Printf("Synchronised %d documents (%d embedded).\n",
			knowledgeService.DocumentCount(), knowledgeService.EmbeddedCount())
	})
	return nil
}

// debounceEvents runs resync after a quiet period following change
// events, coalescing bursts into one pass. Returns when ctx is done or
// the event channel closes. A timer that fired while an event was being
// handled is drained before Reset, so a stale tick cannot trigger an
// early pass.
func debounceEvents(
	ctx context.Context,
	events <-chan domain.ChangeEvent,
	quiet time.Duration,
	resync func(),
) {
	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			logger.Debug("Change detected: %s %s", ev.Type, ev.FileID)
			if timer == nil {
				timer = time.NewTimer(quiet)
				timerC = timer.C
				continue
			}
			if !timer.Stop() {
				select {
				case <-timerC:
				default:
				}
			}
			timer.Reset(quiet)
		case <-timerC:
			timer = nil
			timerC = nil
			resync()
		}
	}
}
