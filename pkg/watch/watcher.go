// Package watch monitors an inbox directory and ingests treaty text files
// as they arrive.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/coolbeans/treatysearch/pkg/ingest"
)

// settleDelay suppresses duplicate ingestion when a single file drop
// produces a create event followed by write events.
const settleDelay = 2 * time.Second

// Watcher ingests .txt files dropped into a directory. The country
// identifier is derived from the file name. A failing file is logged and
// skipped; the watcher keeps running.
type Watcher struct {
	ingester *ingest.Ingester
	log      zerolog.Logger

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// New creates a Watcher feeding the given ingester.
func New(ingester *ingest.Ingester, log zerolog.Logger) *Watcher {
	return &Watcher{
		ingester: ingester,
		log:      log.With().Str("component", "watch").Logger(),
		lastSeen: make(map[string]time.Time),
	}
}

// Run watches dir until the context is canceled. Files already present when
// the watcher starts are ingested first.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(dir); err != nil {
		return err
	}

	w.ingestExisting(dir)

	w.log.Info().Str("dir", dir).Msg("watching inbox")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !isTreatyFile(event.Name) {
				continue
			}
			if !w.settle(event.Name) {
				continue
			}
			w.ingestPath(event.Name)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// ingestExisting processes files already sitting in the inbox at startup.
func (w *Watcher) ingestExisting(dir string) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		w.log.Warn().Err(err).Str("dir", dir).Msg("failed to scan inbox")
		return
	}
	for _, path := range paths {
		if w.settle(path) {
			w.ingestPath(path)
		}
	}
}

func (w *Watcher) ingestPath(path string) {
	record, err := w.ingester.IngestFile(path, "")
	if err != nil {
		w.log.Warn().Err(err).Str("file", path).Msg("inbox file failed to ingest")
		return
	}
	w.log.Info().
		Str("country", record.Country).
		Str("file", path).
		Int("articles", len(record.Articles)).
		Msg("inbox file ingested")
}

// settle reports whether the path should be processed now, deduplicating
// event bursts for the same file.
func (w *Watcher) settle(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if last, ok := w.lastSeen[path]; ok && now.Sub(last) < settleDelay {
		return false
	}
	w.lastSeen[path] = now
	return true
}

func isTreatyFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}
