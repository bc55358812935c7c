package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// Run identifies one generation run across logs, spans, and metrics.
type Run struct {
	// ID is the unique run identifier.
	ID string

	// StartedAt is when the run began.
	StartedAt time.Time

	logger  *Logger
	metrics *Metrics
}

// NewRun starts a new run with a fresh identifier.
func NewRun(logger *Logger, metrics *Metrics) *Run {
	if logger == nil {
		logger = Default()
	}
	id := uuid.NewString()
	return &Run{
		ID:        id,
		StartedAt: time.Now(),
		logger:    logger.WithRunID(id),
		metrics:   metrics,
	}
}

// Logger returns the run-scoped logger.
func (r *Run) Logger() *Logger {
	return r.logger
}

// Finish records the run outcome.
func (r *Run) Finish(jobs, views int, err error) {
	d := time.Since(r.StartedAt)
	r.metrics.RecordRunDuration(d)
	if err != nil {
		r.logger.WithError(err).Errorf("generation run failed after %s", d)
		return
	}
	r.logger.Infof("generation run finished: %d jobs, %d views in %s", jobs, views, d)
}
