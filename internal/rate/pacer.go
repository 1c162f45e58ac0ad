// Package rate paces repeated operations at a fixed rate.
package rate

import (
	"context"
	"sync"
	"time"
)

// Pacer schedules events on an evenly spaced virtual clock, the leaky bucket
// without bursting. An event that falls behind schedule runs immediately and
// the schedule restarts from now, so a slow consumer never causes a burst.
//
// Pacer is safe for concurrent use.
type Pacer struct {
	interval time.Duration

	mu     sync.Mutex
	next   time.Time
	events int64
}

// NewPacer creates a Pacer for perSecond events per second. A non-positive
// rate disables pacing.
func NewPacer(perSecond float64) *Pacer {
	p := &Pacer{}
	if perSecond > 0 {
		p.interval = time.Duration(float64(time.Second) / perSecond)
	}
	return p
}

// Interval returns the spacing between two events.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Next reserves the next slot and returns when it starts. The first slot
// starts immediately.
func (p *Pacer) Next() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if p.next.Before(now) {
		p.next = now
	}
	at := p.next
	p.next = at.Add(p.interval)
	p.events++
	return at
}

// Wait blocks until the next slot or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	delay := time.Until(p.Next())
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Events returns the number of reserved slots.
func (p *Pacer) Events() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events
}
