package registry

import (
	"bytes"
	"sync"
	"time"

	"github.com/okorienev/palantir-agent/internal/apm"
	"github.com/okorienev/palantir-agent/internal/metrics"
)

// Table is the shared fingerprint -> Collection map. One mutex guards the
// whole table; the Processor holds it per record and the Reporter while it
// serializes.
type Table struct {
	mu          sync.Mutex
	collections map[uint64]*Collection
	order       []uint64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{collections: make(map[uint64]*Collection)}
}

// Fold merges r into the collection keyed by fp, creating it first if
// needed. It reports whether a new collection was created.
func (t *Table) Fold(fp uint64, r *apm.Record) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.collections[fp]
	if !ok {
		c = CollectionFor(r)
		t.collections[fp] = c
		t.order = append(t.order, fp)
	}
	c.Fold(r)
	return !ok
}

// Len returns the number of collections.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.collections)
}

// Get returns the collection keyed by fp.
func (t *Table) Get(fp uint64) (*Collection, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.collections[fp]
	return c, ok
}

// Stale returns the fingerprints of collections not hit since before. Nothing
// is removed; the result is informational.
func (t *Table) Stale(before time.Time) []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var stale []uint64
	for _, fp := range t.order {
		if t.collections[fp].LastHit().Before(before) {
			stale = append(stale, fp)
		}
	}
	return stale
}

// Serialize appends every collection to buf, one newline-terminated line per
// sample, and returns the number of lines written.
func (t *Table) Serialize(buf *bytes.Buffer) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, fp := range t.order {
		n += writeLines(buf, t.collections[fp].SerializePrometheus())
	}
	return n
}

// LockedHistogram is a histogram shared between goroutines.
type LockedHistogram struct {
	mu sync.Mutex
	h  *metrics.Histogram
}

// NewLockedHistogram wraps h.
func NewLockedHistogram(h *metrics.Histogram) *LockedHistogram {
	return &LockedHistogram{h: h}
}

// Track records value.
func (l *LockedHistogram) Track(value uint64) {
	l.mu.Lock()
	l.h.Track(value)
	l.mu.Unlock()
}

// Count returns the number of values tracked in the current generation.
func (l *LockedHistogram) Count() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.Count()
}

// Serialize appends the histogram lines to buf and returns their number.
func (l *LockedHistogram) Serialize(buf *bytes.Buffer) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return writeLines(buf, l.h.SerializePrometheus())
}

func writeLines(buf *bytes.Buffer, lines []string) int {
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return len(lines)
}
