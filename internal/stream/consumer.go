package stream

import (
	"context"

	"github.com/google/uuid"
)

// RunProcessor executes one evaluation run. The worker's Runner is the
// production implementation.
type RunProcessor interface {
	Process(ctx context.Context, runID uuid.UUID) error
}

type Consumer interface {
	Setup(ctx context.Context) error
	Start(ctx context.Context) error
	Stop() error
}

// Publisher hands a run trigger to the worker fleet.
type Publisher interface {
	Publish(ctx context.Context, runID uuid.UUID) (string, error)
}
