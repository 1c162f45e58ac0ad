package registry

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/okorienev/palantir-agent/internal/apm"
	"github.com/okorienev/palantir-agent/internal/metrics"
	"github.com/okorienev/palantir-agent/internal/telemetry"
)

// Registry wires the Processor and Reporter around one Table.
type Registry struct {
	Table      *Table
	HandleTime *LockedHistogram
	Processor  *Processor
	Reporter   *Reporter
}

// New builds both stages. metrics may be nil.
func New(in <-chan *apm.Record, cfg ReporterConfig, pusher Pusher, m *telemetry.Metrics) (*Registry, error) {
	table := NewTable()
	handleTime := NewLockedHistogram(metrics.NewHistogram(HandleTimeMetricName, nil))
	liveness := NewLiveness()

	reporter, err := NewReporter(cfg, table, handleTime, liveness, pusher, m)
	if err != nil {
		return nil, err
	}

	return &Registry{
		Table:      table,
		HandleTime: handleTime,
		Processor:  NewProcessor(in, table, handleTime, liveness, m),
		Reporter:   reporter,
	}, nil
}

// Run runs both stages until both have stopped. It returns the first
// *FatalError in stop order, or the context error on a clean stop. The stages
// do not share a cancellable context; a failing stage stops its partner
// through Liveness.
func (r *Registry) Run(ctx context.Context) error {
	var g errgroup.Group
	stopped := make(chan error, 2)

	g.Go(func() error {
		err := r.Processor.Run(ctx)
		stopped <- err
		return err
	})
	g.Go(func() error {
		err := r.Reporter.Run(ctx)
		stopped <- err
		return err
	})

	err := g.Wait()
	close(stopped)
	for stageErr := range stopped {
		if IsFatal(stageErr) {
			return stageErr
		}
	}
	return err
}
