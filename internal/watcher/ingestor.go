package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
)

// Ingestor is the subset of collection operations the watcher drives.
type Ingestor interface {
	AddPath(ctx context.Context, path string) error
	RemoveFilename(ctx context.Context, filename string) error
}

// AutoIngestor applies debounced file events to a collection.
type AutoIngestor struct {
	ingestor Ingestor
	logger   *slog.Logger
}

// NewAutoIngestor creates an auto-ingestor.
func NewAutoIngestor(ingestor Ingestor, logger *slog.Logger) *AutoIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoIngestor{ingestor: ingestor, logger: logger}
}

// Run consumes event batches until the channel closes or the context
// is cancelled. Per-file failures are logged and do not stop the loop.
func (a *AutoIngestor) Run(ctx context.Context, batches <-chan []FileEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-batches:
			if !ok {
				return
			}
			a.apply(ctx, batch)
		}
	}
}

// apply processes one batch of coalesced events.
func (a *AutoIngestor) apply(ctx context.Context, batch []FileEvent) {
	for _, event := range batch {
		var err error
		switch event.Operation {
		case OpCreate, OpModify:
			err = a.ingestor.AddPath(ctx, event.Path)
		case OpDelete:
			err = a.ingestor.RemoveFilename(ctx, filepath.Base(event.Path))
		}

		if err != nil {
			a.logger.Warn("failed to apply file event",
				slog.String("path", event.Path),
				slog.String("operation", event.Operation.String()),
				slog.String("error", err.Error()))
			continue
		}
		a.logger.Info("file event applied",
			slog.String("path", event.Path),
			slog.String("operation", event.Operation.String()))
	}
}
