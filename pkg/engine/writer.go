package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jobforge/jobforge/pkg/telemetry"
	"github.com/jobforge/jobforge/pkg/xmlgen"
)

// Writer persists generated documents to an output directory, one file
// per job or view named after it.
type Writer struct {
	// Workers bounds the number of concurrent file writes.
	Workers int

	// Skip, when set, is consulted per document; a true return skips
	// the write (used for cache-unchanged jobs).
	Skip func(*xmlgen.Job) (bool, error)

	// Written, when set, runs after a document's file reached disk.
	// The cache records a job's checksum here, never earlier, so a
	// failed write leaves the job marked as changed for the next run.
	Written func(*xmlgen.Job) error

	Logger  *telemetry.Logger
	Metrics *telemetry.Metrics
}

// WriteSummary reports what a Write call did.
type WriteSummary struct {
	Written int
	Skipped int
}

// Write stores every document under dir, creating it if needed.
func (w *Writer) Write(ctx context.Context, result *Result, dir string) (WriteSummary, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return WriteSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	logger := w.Logger
	if logger == nil {
		logger = telemetry.Default()
	}

	docs := make([]*xmlgen.Job, 0, len(result.Jobs)+len(result.Views))
	docs = append(docs, result.Jobs...)
	docs = append(docs, result.Views...)

	workers := w.Workers
	if workers <= 0 {
		workers = 1
	}
	if len(docs) < workers {
		workers = len(docs)
	}

	queue := make(chan *xmlgen.Job, len(docs))
	for _, doc := range docs {
		queue <- doc
	}
	close(queue)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		summary WriteSummary
		errCh   = make(chan error, len(docs))
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range queue {
				if err := ctx.Err(); err != nil {
					errCh <- err
					return
				}
				if w.Skip != nil {
					skip, err := w.Skip(doc)
					if err != nil {
						errCh <- err
						continue
					}
					if skip {
						logger.WithJob(doc.Name).Debug("unchanged, skipping write")
						if w.Metrics != nil {
							w.Metrics.RecordJobSkipped()
						}
						mu.Lock()
						summary.Skipped++
						mu.Unlock()
						continue
					}
				}

				out, err := doc.Output()
				if err != nil {
					errCh <- fmt.Errorf("serializing %s: %w", doc.Name, err)
					continue
				}
				target := filepath.Join(dir, doc.Name)
				if err := os.WriteFile(target, out, 0o644); err != nil {
					errCh <- fmt.Errorf("writing %s: %w", target, err)
					continue
				}
				if w.Written != nil {
					if err := w.Written(doc); err != nil {
						errCh <- err
						continue
					}
				}
				logger.WithJob(doc.Name).Debugf("wrote %s", target)
				mu.Lock()
				summary.Written++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return summary, err
		}
	}
	return summary, nil
}
