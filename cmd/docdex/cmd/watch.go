package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/collection"
	"github.com/docdex/docdex/internal/watcher"
)

// newWatchCmd creates the watch command.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <directory>",
		Short: "Watch a directory and keep the collection in sync",
		Long: `Watch monitors a directory for document changes and updates the
user's collection automatically: new and modified files are ingested,
deleted files are removed. Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}
}

// collectionIngestor adapts a collection to the watcher's ingest hooks.
type collectionIngestor struct {
	coll *collection.Collection
}

func (ci *collectionIngestor) AddPath(ctx context.Context, path string) error {
	_, err := ci.coll.AddDocument(ctx, path)
	return err
}

func (ci *collectionIngestor) RemoveFilename(ctx context.Context, filename string) error {
	_, err := ci.coll.DeleteDocument(ctx, filename)
	return err
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	coll, err := rt.collection(ctx)
	if err != nil {
		return err
	}

	w, err := watcher.NewDirWatcher(watcher.Options{
		DebounceWindow: parseDuration(rt.cfg.Watch.Debounce, 500*time.Millisecond),
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Start(ctx, dir)
	}()

	go func() {
		for err := range w.Errors() {
			slog.Warn("watch error", slog.String("error", err.Error()))
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for user %q. Press Ctrl-C to stop.\n", dir, flagUser)

	auto := watcher.NewAutoIngestor(&collectionIngestor{coll: coll}, slog.Default())
	auto.Run(ctx, w.Events())

	if err := <-watchErr; err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
