package registry

import (
	"errors"
	"fmt"
)

// ErrDisconnected is wrapped by every error that means a pipeline partner is
// gone.
var ErrDisconnected = errors.New("pipeline disconnected")

var (
	// ErrQueueClosed means no producer is left on the ingestion queue.
	ErrQueueClosed = fmt.Errorf("ingestion queue closed: %w", ErrDisconnected)

	// ErrReporterGone means the export stage has terminated.
	ErrReporterGone = fmt.Errorf("reporter stopped: %w", ErrDisconnected)

	// ErrProcessorGone means the aggregation stage has terminated.
	ErrProcessorGone = fmt.Errorf("processor stopped: %w", ErrDisconnected)
)

// Stage names a pipeline stage.
type Stage string

const (
	StageProcessor Stage = "processor"
	StageReporter  Stage = "reporter"
)

// FatalError is returned by a stage that cannot continue.
type FatalError struct {
	Stage Stage
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a *FatalError.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
