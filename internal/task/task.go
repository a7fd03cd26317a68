package task

import (
	"context"

	"github.com/google/uuid"
)

// TaskTypeLightCurveFit is the type of a task fitting one light curve.
const TaskTypeLightCurveFit = "light_curve_fit"

// Task is one unit of work run by a WorkerPool.
type Task interface {
	ID() uuid.UUID
	Type() string
	Execute(ctx context.Context) error
}

// Source hands queued tasks to workers. The channel is closed once no
// more tasks will arrive.
type Source interface {
	GetChannel() <-chan Task
}
