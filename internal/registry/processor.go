package registry

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/okorienev/palantir-agent/internal/apm"
	"github.com/okorienev/palantir-agent/internal/fingerprint"
	"github.com/okorienev/palantir-agent/internal/telemetry"
)

// Processor consumes the ingestion queue and folds each record into the
// aggregation table.
type Processor struct {
	in         <-chan *apm.Record
	table      *Table
	handleTime *LockedHistogram
	liveness   *Liveness
	telemetry  *telemetry.Metrics
}

// NewProcessor creates a Processor. metrics may be nil.
func NewProcessor(in <-chan *apm.Record, table *Table, handleTime *LockedHistogram, liveness *Liveness, metrics *telemetry.Metrics) *Processor {
	return &Processor{
		in:         in,
		table:      table,
		handleTime: handleTime,
		liveness:   liveness,
		telemetry:  metrics,
	}
}

// Run processes records until the queue is closed, the Reporter stops or ctx
// is done. Only the last case returns a non-fatal error.
func (p *Processor) Run(ctx context.Context) error {
	defer p.liveness.StopProcessor()

	for {
		if err := p.liveness.Check(); err != nil {
			return p.fail(ctx, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.liveness.ReporterDone():
			return p.fail(ctx, ErrReporterGone)
		case record, ok := <-p.in:
			if !ok {
				return p.fail(ctx, ErrQueueClosed)
			}
			p.handle(record)
		}
	}
}

// fail converts a disconnect into a fatal error, unless the disconnect is
// the partner reacting to the same cancellation.
func (p *Processor) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	log.WithError(err).Error("processor stopping")
	return &FatalError{Stage: StageProcessor, Err: err}
}

func (p *Processor) handle(record *apm.Record) {
	start := time.Now()

	fp := fingerprint.Record(record)
	if p.table.Fold(fp, record) {
		p.telemetry.SetTableSize(p.table.Len())
		log.WithFields(log.Fields{
			"fingerprint": fp,
			"action":      record.ActionName,
		}).Debug("new aggregation bucket")
	}

	p.handleTime.Track(uint64(time.Since(start).Microseconds()))
}
