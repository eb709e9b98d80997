package scribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// watchFiles monitors the configured directory and queues every new WAV
// file for background transcription.
func (s *Scribe) watchFiles(ctx context.Context) {
	if err := s.watcher.Add(s.config.WatchDir); err != nil {
		slog.Error("Failed to start watching recordings directory",
			"error", err,
			"path", s.config.WatchDir)
		return
	}

	slog.Info("Started watching recordings directory", "path", s.config.WatchDir)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if err := s.handleFSEvent(event); err != nil {
				slog.Error("Failed to handle file system event",
					"error", err,
					"event", event)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)
		}
	}
}

func (s *Scribe) handleFSEvent(event fsnotify.Event) error {
	// Skip temporary files and non-create events
	if strings.HasSuffix(event.Name, ".tmp") || event.Op != fsnotify.Create {
		return nil
	}
	if !strings.HasSuffix(event.Name, ".wav") {
		return nil
	}

	job := Job{
		ID:        uuid.New(),
		FilePath:  event.Name,
		Language:  s.config.Language,
		Timestamp: time.Now(),
	}

	select {
	case s.queue <- job:
		slog.Info("Queued new audio file for processing",
			"jobID", job.ID,
			"file", filepath.Base(job.FilePath))
	default:
		return fmt.Errorf("job queue is full")
	}

	return nil
}

func waitForStableFile(ctx context.Context, path string) error {
	var lastSize int64 = -1
	for i := 0; i < 50; i++ {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == lastSize && info.Size() > 0 {
			return nil
		}
		lastSize = info.Size()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return fmt.Errorf("file %s did not stabilize", path)
}

func (s *Scribe) worker(ctx context.Context) {
	slog.Debug("Worker starting")
	defer func() {
		slog.Debug("Worker shutting down")
		s.workers.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Worker context cancelled")
			return

		case job, ok := <-s.queue:
			if !ok {
				slog.Debug("Worker queue closed")
				return
			}

			// Create events can fire before the recorder finishes the
			// file; wait until its size stops changing.
			if err := waitForStableFile(ctx, job.FilePath); err != nil {
				slog.Error("Skipping unstable audio file",
					"error", err,
					"jobID", job.ID,
					"file", job.FilePath)
				continue
			}

			if _, err := s.Transcribe(ctx, job.FilePath, job.Language); err != nil {
				slog.Error("Failed to process transcription job",
					"error", err,
					"jobID", job.ID,
					"file", job.FilePath)
			}
		}
	}
}
