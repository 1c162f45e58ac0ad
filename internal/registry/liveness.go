package registry

import "sync"

// Liveness is the heartbeat between the Reporter (sender) and the Processor
// (listener). Each side closes its own done channel when it stops, which the
// other side observes as a disconnect.
type Liveness struct {
	beats         chan struct{}
	reporterDone  chan struct{}
	processorDone chan struct{}

	reporterOnce  sync.Once
	processorOnce sync.Once
}

// NewLiveness creates the channel pair.
func NewLiveness() *Liveness {
	return &Liveness{
		beats:         make(chan struct{}, 1),
		reporterDone:  make(chan struct{}),
		processorDone: make(chan struct{}),
	}
}

// Beat is called by the Reporter once per cycle. It fails with
// ErrProcessorGone if the Processor has stopped. Beats are coalesced when the
// Processor has not consumed the previous one yet.
func (l *Liveness) Beat() error {
	select {
	case <-l.processorDone:
		return ErrProcessorGone
	default:
	}

	select {
	case l.beats <- struct{}{}:
	default:
	}
	return nil
}

// Check is the Processor's non-blocking look at the Reporter. It consumes a
// pending heartbeat and fails with ErrReporterGone if the Reporter stopped.
func (l *Liveness) Check() error {
	select {
	case <-l.reporterDone:
		return ErrReporterGone
	default:
	}

	select {
	case <-l.beats:
	default:
	}
	return nil
}

// ReporterDone is closed once the Reporter has stopped.
func (l *Liveness) ReporterDone() <-chan struct{} {
	return l.reporterDone
}

// ProcessorDone is closed once the Processor has stopped.
func (l *Liveness) ProcessorDone() <-chan struct{} {
	return l.processorDone
}

// StopReporter marks the Reporter side as gone. Safe to call repeatedly.
func (l *Liveness) StopReporter() {
	l.reporterOnce.Do(func() { close(l.reporterDone) })
}

// StopProcessor marks the Processor side as gone. Safe to call repeatedly.
func (l *Liveness) StopProcessor() {
	l.processorOnce.Do(func() { close(l.processorDone) })
}
