package metrics

import (
	"math"
	"math/bits"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	e2Min = 8
	e2Max = 36

	// BucketsCount is the number of buckets in every histogram.
	BucketsCount = e2Max - e2Min + 2
)

// bucketUpperBounds holds 2^i - 1 for i in [e2Min, e2Max] plus the catch-all.
var bucketUpperBounds = func() [BucketsCount]uint64 {
	var bounds [BucketsCount]uint64
	for i := 0; i < BucketsCount-1; i++ {
		bounds[i] = 1<<(e2Min+i) - 1
	}
	bounds[BucketsCount-1] = math.MaxUint64
	return bounds
}()

// BucketUpperBound returns the inclusive upper bound of bucket n.
func BucketUpperBound(n int) uint64 {
	return bucketUpperBounds[n]
}

// VMRange renders the vmrange label value of bucket n.
func VMRange(n int) string {
	switch {
	case n == 0:
		return "0..." + strconv.FormatUint(bucketUpperBounds[0], 10)
	case n == BucketsCount-1:
		return strconv.FormatUint(bucketUpperBounds[BucketsCount-2]+1, 10) + "...+Inf"
	default:
		return strconv.FormatUint(bucketUpperBounds[n-1]+1, 10) + "..." +
			strconv.FormatUint(bucketUpperBounds[n], 10)
	}
}

// bucketFor returns the smallest bucket whose upper bound is >= value.
func bucketFor(value uint64) int {
	for n, upper := range bucketUpperBounds {
		if value <= upper {
			return n
		}
	}
	// unreachable, the last bound is MaxUint64
	return BucketsCount - 1
}

// Histogram accumulates uint64 values into the shared bucket layout.
type Histogram struct {
	name       string
	tags       []Tag
	generation uint64
	count      uint64
	sum        uint64
	buckets    [BucketsCount]uint64
}

// NewHistogram creates an empty histogram at generation 1.
func NewHistogram(name string, tags []Tag) *Histogram {
	return &Histogram{
		name:       name,
		tags:       tags,
		generation: 1,
	}
}

// Name returns the metric name.
func (h *Histogram) Name() string { return h.name }

// Tags returns the histogram tags in render order.
func (h *Histogram) Tags() []Tag { return h.tags }

// Generation returns the number of resets plus one.
func (h *Histogram) Generation() uint64 { return h.generation }

// Count returns the number of values tracked in this generation.
func (h *Histogram) Count() uint64 { return h.count }

// Sum returns the sum of values tracked in this generation.
func (h *Histogram) Sum() uint64 { return h.sum }

// Bucket returns the accumulator of bucket n.
func (h *Histogram) Bucket(n int) uint64 { return h.buckets[n] }

// Reset zeroes all counters and bumps the generation.
func (h *Histogram) Reset() {
	h.sum = 0
	h.count = 0
	h.buckets = [BucketsCount]uint64{}
	h.generation++
}

// Track records value. If any counter would overflow the histogram is reset
// instead and value is dropped.
func (h *Histogram) Track(value uint64) {
	n := bucketFor(value)

	bucket, bucketCarry := bits.Add64(h.buckets[n], value, 0)
	sum, sumCarry := bits.Add64(h.sum, value, 0)
	count, countCarry := bits.Add64(h.count, 1, 0)

	if bucketCarry|sumCarry|countCarry != 0 {
		h.Reset()
		log.WithFields(log.Fields{
			"histogram":  h.name,
			"generation": h.generation,
		}).Warn("histogram counter overflow, histogram reset")
		return
	}

	h.buckets[n] = bucket
	h.sum = sum
	h.count = count
}

// SerializePrometheus renders non-zero buckets followed by _count and _sum.
func (h *Histogram) SerializePrometheus() []string {
	result := make([]string, 0, BucketsCount+2)

	var common strings.Builder
	common.Grow(128)
	common.WriteString(`{generation="`)
	common.WriteString(strconv.FormatUint(h.generation, 10))
	common.WriteByte('"')
	for _, tag := range h.tags {
		common.WriteByte(',')
		writeTag(&common, tag.Key, tag.Value)
	}
	tags := common.String()

	for n, bucket := range h.buckets {
		if bucket == 0 {
			continue
		}
		var line strings.Builder
		line.Grow(len(h.name) + len(tags) + 64)
		line.WriteString(h.name)
		line.WriteString("_bucket")
		line.WriteString(tags)
		line.WriteString(`,vmrange="`)
		line.WriteString(VMRange(n))
		line.WriteString(`"} `)
		line.WriteString(strconv.FormatUint(bucket, 10))
		result = append(result, line.String())
	}

	result = append(result,
		h.name+"_count"+tags+"} "+strconv.FormatUint(h.count, 10),
		h.name+"_sum"+tags+"} "+strconv.FormatUint(h.sum, 10),
	)
	return result
}
