package registry

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	log "github.com/sirupsen/logrus"

	"github.com/okorienev/palantir-agent/internal/http"
	"github.com/okorienev/palantir-agent/internal/telemetry"
)

// DefaultReportPeriod is used when ReporterConfig.Period is zero.
const DefaultReportPeriod = 10 * time.Second

// DefaultStaleCycles is the number of report periods without a hit after
// which a collection is logged as stale, when ReporterConfig.StaleAfter is
// zero.
const DefaultStaleCycles = 30

// Push results recorded in telemetry.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// Pusher delivers a serialized payload.
type Pusher interface {
	Push(ctx context.Context, url string, body []byte) (*http.Response, error)
}

// ReporterConfig configures the export stage.
type ReporterConfig struct {
	// ImportURL is the base push endpoint.
	ImportURL string

	// Period is the time between two export cycles.
	Period time.Duration

	// ExtraLabels are added to every sample as extra_label parameters.
	ExtraLabels []Label

	// StaleAfter is how long a collection may go without a hit before it is
	// counted as stale in the debug log. Stale collections are still
	// exported.
	StaleAfter time.Duration
}

// Reporter periodically serializes the aggregation table and pushes it.
type Reporter struct {
	url        string
	period     time.Duration
	staleAfter time.Duration
	table      *Table
	handleTime *LockedHistogram
	liveness   *Liveness
	pusher     Pusher
	telemetry  *telemetry.Metrics

	// self timing in microseconds
	timingMu   sync.Mutex
	buildTimes *hdrhistogram.Histogram
	pushTimes  *hdrhistogram.Histogram
}

// NewReporter creates a Reporter. metrics may be nil.
func NewReporter(cfg ReporterConfig, table *Table, handleTime *LockedHistogram, liveness *Liveness, pusher Pusher, metrics *telemetry.Metrics) (*Reporter, error) {
	url, err := ImportURL(cfg.ImportURL, cfg.ExtraLabels)
	if err != nil {
		return nil, err
	}

	period := cfg.Period
	if period <= 0 {
		period = DefaultReportPeriod
	}

	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleCycles * period
	}

	return &Reporter{
		url:        url,
		period:     period,
		staleAfter: staleAfter,
		table:      table,
		handleTime: handleTime,
		liveness:   liveness,
		pusher:     pusher,
		telemetry:  metrics,
		// 1µs to 10 minutes, 3 significant figures
		buildTimes: hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3),
		pushTimes:  hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3),
	}, nil
}

// URL returns the push URL including extra labels.
func (r *Reporter) URL() string {
	return r.url
}

// Run exports once per period until the Processor stops or ctx is done. Push
// failures are logged and do not stop the loop.
func (r *Reporter) Run(ctx context.Context) error {
	defer r.liveness.StopReporter()
	defer func() {
		cycles, buildP99, pushP99 := r.TimingSnapshot()
		log.WithFields(log.Fields{
			"cycles":    cycles,
			"build_p99": buildP99,
			"push_p99":  pushP99,
		}).Info("reporter stopped")
	}()

	for {
		if err := r.liveness.Beat(); err != nil {
			return r.fail(ctx, err)
		}

		r.tick(ctx)

		timer := time.NewTimer(r.period)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-r.liveness.ProcessorDone():
			timer.Stop()
			return r.fail(ctx, ErrProcessorGone)
		case <-timer.C:
		}
	}
}

func (r *Reporter) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	log.WithError(err).Error("reporter stopping")
	return &FatalError{Stage: StageReporter, Err: err}
}

// Payload serializes the handle time histogram followed by every collection.
func (r *Reporter) Payload() []byte {
	var buf bytes.Buffer
	r.handleTime.Serialize(&buf)
	r.table.Serialize(&buf)
	return buf.Bytes()
}

func (r *Reporter) tick(ctx context.Context) {
	start := time.Now()
	body := r.Payload()
	built := time.Since(start)

	pushStart := time.Now()
	resp, err := r.pusher.Push(ctx, r.url, body)
	pushed := time.Since(pushStart)

	r.recordTiming(built, pushed)
	r.logStale()

	entry := log.WithFields(log.Fields{
		"bytes":    len(body),
		"records":  r.handleTime.Count(),
		"build_ms": built.Milliseconds(),
		"push_ms":  pushed.Milliseconds(),
	})
	switch {
	case err != nil:
		r.telemetry.ReportFinished(ResultError, pushed)
		entry.WithError(err).Error("report push failed")
	case !resp.IsSuccess():
		r.telemetry.ReportFinished(ResultFailure, pushed)
		entry.WithFields(log.Fields{
			"status": resp.StatusCode,
			"body":   string(resp.Body),
		}).Error("import endpoint rejected report")
	default:
		r.telemetry.ReportFinished(ResultSuccess, pushed)
		entry.WithField("status", resp.StatusCode).Info("report pushed")
	}
}

// logStale reports collections not hit within staleAfter. They are kept.
func (r *Reporter) logStale() {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}
	stale := r.table.Stale(time.Now().Add(-r.staleAfter))
	if len(stale) == 0 {
		return
	}
	log.WithFields(log.Fields{
		"stale":       len(stale),
		"collections": r.table.Len(),
		"idle_for":    r.staleAfter,
	}).Debug("stale collections")
}

func (r *Reporter) recordTiming(built, pushed time.Duration) {
	r.timingMu.Lock()
	defer r.timingMu.Unlock()

	_ = r.buildTimes.RecordValue(built.Microseconds())
	_ = r.pushTimes.RecordValue(pushed.Microseconds())

	log.WithFields(log.Fields{
		"build_p50": fmt.Sprintf("%dµs", r.buildTimes.ValueAtQuantile(50)),
		"build_p99": fmt.Sprintf("%dµs", r.buildTimes.ValueAtQuantile(99)),
		"push_p50":  fmt.Sprintf("%dµs", r.pushTimes.ValueAtQuantile(50)),
		"push_p99":  fmt.Sprintf("%dµs", r.pushTimes.ValueAtQuantile(99)),
	}).Debug("report timing")
}

// TimingSnapshot returns the number of recorded cycles and the p99 build and
// push times.
func (r *Reporter) TimingSnapshot() (cycles int64, buildP99, pushP99 time.Duration) {
	r.timingMu.Lock()
	defer r.timingMu.Unlock()
	return r.buildTimes.TotalCount(),
		time.Duration(r.buildTimes.ValueAtQuantile(99)) * time.Microsecond,
		time.Duration(r.pushTimes.ValueAtQuantile(99)) * time.Microsecond
}
