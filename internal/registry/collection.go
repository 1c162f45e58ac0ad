package registry

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/okorienev/palantir-agent/internal/apm"
	"github.com/okorienev/palantir-agent/internal/fingerprint"
	"github.com/okorienev/palantir-agent/internal/metrics"
)

// Collection groups the histograms of one action identity: one per span name
// plus the derived total and untracked spans. Histograms are kept in creation
// order.
type Collection struct {
	tags       []metrics.Tag
	index      map[uint64]*metrics.Histogram
	histograms []*metrics.Histogram
	lastHit    time.Time
}

// NewCollection creates an empty collection whose histograms all carry tags.
func NewCollection(tags []metrics.Tag) *Collection {
	return &Collection{
		tags:  tags,
		index: make(map[uint64]*metrics.Histogram),
	}
}

// CollectionFor creates an empty collection for the identity of r.
func CollectionFor(r *apm.Record) *Collection {
	tags := make([]metrics.Tag, 0, 5+len(r.Dimensions))
	tags = append(tags,
		metrics.Tag{Key: RealmTagName, Value: r.Realm},
		metrics.Tag{Key: ApplicationTagName, Value: r.Application},
		metrics.Tag{Key: ApplicationHashTagName, Value: r.ApplicationHash},
		metrics.Tag{Key: ActionKindTagName, Value: r.ActionKind},
		metrics.Tag{Key: ActionNameTagName, Value: r.ActionName},
	)
	tags = append(tags, r.Dimensions...)
	return NewCollection(tags)
}

// Tags returns the identity tags shared by every histogram.
func (c *Collection) Tags() []metrics.Tag { return c.tags }

// LastHit returns the time of the most recent Fold.
func (c *Collection) LastHit() time.Time { return c.lastHit }

// Len returns the number of span histograms.
func (c *Collection) Len() int { return len(c.histograms) }

// Histogram returns the histogram of span, or nil if nothing was tracked
// under that name yet.
func (c *Collection) Histogram(span string) *metrics.Histogram {
	return c.index[fingerprint.Name(span)]
}

// Fold tracks every measurement of r under its span, then the untracked
// remainder and the total. When the measurements add up to more than the
// reported total, the measured sum is used as the total and untracked is 0.
func (c *Collection) Fold(r *apm.Record) {
	for _, m := range r.Measurements {
		c.track(m.Name, m.ElapsedUS)
	}

	total := r.TotalUS
	var untracked uint64

	measured, ok := r.MeasuredUS()
	switch {
	case !ok:
		log.WithFields(log.Fields{
			"action": r.ActionName,
			"total":  r.TotalUS,
		}).Warn("measurement sum overflows, untracked time set to 0")
	case measured > total:
		log.WithFields(log.Fields{
			"action":   r.ActionName,
			"total":    r.TotalUS,
			"measured": measured,
		}).Warn("measurements exceed action total, using measured sum as total")
		total = measured
	default:
		untracked = total - measured
	}

	c.track(UntrackedSpan, untracked)
	c.track(TotalSpan, total)
	c.lastHit = time.Now()
}

func (c *Collection) track(span string, value uint64) {
	key := fingerprint.Name(span)
	h, ok := c.index[key]
	if !ok {
		tags := make([]metrics.Tag, 0, len(c.tags)+1)
		tags = append(tags, c.tags...)
		tags = append(tags, metrics.Tag{Key: SpanTagName, Value: span})
		h = metrics.NewHistogram(ActionMetricName, tags)
		c.index[key] = h
		c.histograms = append(c.histograms, h)
	}
	h.Track(value)
}

// SerializePrometheus concatenates the lines of all span histograms.
func (c *Collection) SerializePrometheus() []string {
	var lines []string
	for _, h := range c.histograms {
		lines = append(lines, h.SerializePrometheus()...)
	}
	return lines
}
