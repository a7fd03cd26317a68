package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a learning run.
type RunStatus string

// Run states.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one execution of a learning loop.
type Run struct {
	ID         uuid.UUID
	Stage      string
	Strategy   string
	Classifier string
	Batch      int
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
}

// NewRun creates a running Run with a fresh ID.
func NewRun(stage, strategy, classifier string, batch int) (*Run, error) {
	r := &Run{
		ID:         uuid.New(),
		Stage:      stage,
		Strategy:   strategy,
		Classifier: classifier,
		Batch:      batch,
		Status:     RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the run's required fields.
func (r *Run) Validate() error {
	switch {
	case r.ID == uuid.Nil:
		return fmt.Errorf("%w: run ID is nil", ErrValidation)
	case r.Stage == "":
		return fmt.Errorf("%w: run stage is empty", ErrValidation)
	case r.Batch < 0:
		return fmt.Errorf("%w: negative batch size", ErrValidation)
	}
	switch r.Status {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
	default:
		return fmt.Errorf("%w: unknown run status %q", ErrValidation, r.Status)
	}
	return nil
}

// MetricRecord is one iteration's classification metrics.
type MetricRecord struct {
	RunID uuid.UUID
	Loop  int
	Epoch int
	Name  string
	Value float64
}

// QueryRecord is one object sent for follow-up.
type QueryRecord struct {
	RunID    uuid.UUID
	Loop     int
	Epoch    int
	ObjectID string
	SNType   string
	Redshift float64
}
