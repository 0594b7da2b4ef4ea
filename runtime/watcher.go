// Package runtime runs background work for the memory layer: a scheduled
// watcher that ingests files dropped into an inbox directory.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/PodJamz/8gent-sub005/ingest"
)

const (
	processedDir = "processed"
	failedDir    = "failed"

	fileTimeout = 10 * time.Minute
)

// FileImporter imports one file on behalf of a user.
type FileImporter interface {
	ImportFile(ctx context.Context, userID, path string) (*ingest.ImportReport, error)
}

// ScanResult summarizes one pass over the inbox.
type ScanResult struct {
	Imported       []string
	Failed         []string
	StoredEpisodic int
	StoredSemantic int
}

// InboxWatcher periodically imports files found in a directory. Imported files
// are moved to processed/, files that fail to import are moved to failed/ so
// they are not retried on every pass.
type InboxWatcher struct {
	importer FileImporter
	userID   string
	dir      string
	schedule cron.Schedule
	notifier Notifier
	logger   zerolog.Logger

	mu sync.Mutex
}

// NewInboxWatcher creates a watcher for dir. notifier may be nil.
func NewInboxWatcher(importer FileImporter, userID, dir, schedule string, notifier Notifier, logger zerolog.Logger) (*InboxWatcher, error) {
	if importer == nil {
		return nil, fmt.Errorf("importer cannot be nil")
	}
	if dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid watch schedule %q: %w", schedule, err)
	}
	for _, d := range []string{dir, filepath.Join(dir, processedDir), filepath.Join(dir, failedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	return &InboxWatcher{
		importer: importer,
		userID:   userID,
		dir:      dir,
		schedule: sched,
		notifier: notifier,
		logger:   logger.With().Str("component", "inbox_watcher").Logger(),
	}, nil
}

// Start scans once immediately and then on every tick of the schedule until
// ctx is cancelled. Overlapping scans are skipped.
func (w *InboxWatcher) Start(ctx context.Context) {
	w.logger.Info().Str("dir", w.dir).Msg("Starting inbox watcher")

	w.runScan(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(w.schedule, cron.FuncJob(func() { w.runScan(ctx) }))
	c.Start()

	w.logger.Info().
		Time("next", w.schedule.Next(time.Now())).
		Msg("Inbox watcher: waiting for next scan")

	<-ctx.Done()
	<-c.Stop().Done()
	w.logger.Info().Msg("Inbox watcher stopped: context cancelled")
}

func (w *InboxWatcher) runScan(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.Scan(ctx); err != nil {
		w.logger.Error().Err(err).Msg("Inbox scan failed")
	}
}

// Scan imports every supported file currently in the inbox.
func (w *InboxWatcher) Scan(ctx context.Context) (*ScanResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	files, err := w.pending()
	if err != nil {
		return nil, err
	}
	result := &ScanResult{}
	if len(files) == 0 {
		return result, nil
	}
	w.logger.Info().Int("files", len(files)).Msg("Found files in inbox")

	for _, name := range files {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		w.importOne(ctx, name, result)
	}

	w.notify(result)
	return result, nil
}

// pending lists supported, non-hidden regular files in the inbox, oldest name first.
func (w *InboxWatcher) pending() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox %s: %w", w.dir, err)
	}
	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") {
			return "", false
		}
		return name, lo.Contains(ingest.SupportedExtensions, strings.ToLower(filepath.Ext(name)))
	})
	sort.Strings(names)
	return names, nil
}

func (w *InboxWatcher) importOne(ctx context.Context, name string, result *ScanResult) {
	path := filepath.Join(w.dir, name)
	fileCtx, cancel := context.WithTimeout(ctx, fileTimeout)
	defer cancel()

	report, err := w.importer.ImportFile(fileCtx, w.userID, path)
	if err != nil {
		w.logger.Error().Str("file", name).Err(err).Msg("Failed to import inbox file")
		result.Failed = append(result.Failed, name)
		if errors.Is(err, context.Canceled) {
			return
		}
		w.move(path, failedDir)
		return
	}

	result.Imported = append(result.Imported, name)
	result.StoredEpisodic += report.Stored.Episodic
	result.StoredSemantic += report.Stored.Semantic
	w.logger.Info().
		Str("file", name).
		Int("episodic", report.Stored.Episodic).
		Int("semantic", report.Stored.Semantic).
		Msg("Imported inbox file")
	w.move(path, processedDir)
}

// move relocates path into sub, adding a timestamp if the name is taken.
func (w *InboxWatcher) move(path, sub string) {
	name := filepath.Base(path)
	dest := filepath.Join(w.dir, sub, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		dest = filepath.Join(w.dir, sub, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), time.Now().UnixNano(), ext))
	}
	if err := os.Rename(path, dest); err != nil {
		w.logger.Warn().Str("file", name).Str("dest", dest).Err(err).Msg("Failed to move inbox file")
	}
}

func (w *InboxWatcher) notify(result *ScanResult) {
	if w.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Imported %d file(s): %d memories and %d facts stored",
		len(result.Imported), result.StoredEpisodic, result.StoredSemantic)
	if len(result.Failed) > 0 {
		msg += fmt.Sprintf(" (%d failed)", len(result.Failed))
	}
	// Notification failures are already logged by the notifier.
	_ = w.notifier.Notify("Memory inbox", msg)
}
