package metrics

import (
	"math"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVMRange(t *testing.T) {
	tests := []struct {
		name   string
		bucket int
		want   string
	}{
		{name: "first bucket", bucket: 0, want: "0...255"},
		{name: "second bucket", bucket: 1, want: "256...511"},
		{name: "bucket 5", bucket: 5, want: "4096...8191"},
		{name: "bucket 6", bucket: 6, want: "8192...16383"},
		{name: "last bucket", bucket: BucketsCount - 1, want: "68719476736...+Inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VMRange(tt.bucket); got != tt.want {
				t.Errorf("VMRange(%d) = %q, want %q", tt.bucket, got, tt.want)
			}
		})
	}
}

func TestBucketLayout(t *testing.T) {
	require.Equal(t, 30, BucketsCount)
	assert.Equal(t, uint64(255), BucketUpperBound(0))
	assert.Equal(t, uint64(68719476735), BucketUpperBound(BucketsCount-2))
	assert.Equal(t, uint64(math.MaxUint64), BucketUpperBound(BucketsCount-1))

	for n := 1; n < BucketsCount-1; n++ {
		assert.Equal(t, BucketUpperBound(n-1)*2+1, BucketUpperBound(n), "bucket %d", n)
	}
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		value uint64
		want  int
	}{
		{value: 0, want: 0},
		{value: 255, want: 0},
		{value: 256, want: 1},
		{value: 511, want: 1},
		{value: 512, want: 2},
		{value: 68719476735, want: BucketsCount - 2},
		{value: 68719476736, want: BucketsCount - 1},
		{value: math.MaxUint64, want: BucketsCount - 1},
	}

	for _, tt := range tests {
		if got := bucketFor(tt.value); got != tt.want {
			t.Errorf("bucketFor(%d) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestHistogram_Track(t *testing.T) {
	h := NewHistogram("hist", nil)

	h.Track(1)

	assert.Equal(t, uint64(1), h.Sum())
	assert.Equal(t, uint64(1), h.Count())
	assert.Equal(t, uint64(1), h.Bucket(0))
	assert.Equal(t, uint64(1), h.Generation())
}

func TestHistogram_TrackTwoBuckets(t *testing.T) {
	h := NewHistogram("hist", nil)

	h.Track(1)
	h.Track(256)

	assert.Equal(t, uint64(257), h.Sum())
	assert.Equal(t, uint64(2), h.Count())
	assert.Equal(t, uint64(1), h.Bucket(0))
	assert.Equal(t, uint64(256), h.Bucket(1))
}

func TestHistogram_TrackMaxValue(t *testing.T) {
	h := NewHistogram("hist", nil)

	h.Track(math.MaxUint64)

	assert.Equal(t, uint64(math.MaxUint64), h.Bucket(BucketsCount-1))
	lines := h.SerializePrometheus()
	require.Len(t, lines, 3)
	assert.Equal(t, `hist_bucket{generation="1",vmrange="68719476736...+Inf"} 18446744073709551615`, lines[0])
}

func TestHistogram_OverflowSum(t *testing.T) {
	hook := test.NewGlobal()
	h := NewHistogram("hist", nil)
	h.Track(1)
	h.Track(2)
	require.Empty(t, hook.AllEntries())

	h.Track(math.MaxUint64 - 1)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, log.WarnLevel, entry.Level)
	assert.Equal(t, "histogram counter overflow, histogram reset", entry.Message)
	assert.Equal(t, log.Fields{"histogram": "hist", "generation": uint64(2)}, entry.Data)

	assert.Equal(t, uint64(2), h.Generation())
	assert.Equal(t, uint64(0), h.Sum())
	assert.Equal(t, uint64(0), h.Count())
	for n := 0; n < BucketsCount; n++ {
		assert.Equal(t, uint64(0), h.Bucket(n), "bucket %d", n)
	}
}

func TestHistogram_OverflowBucket(t *testing.T) {
	h := NewHistogram("hist", nil)
	h.Track(math.MaxUint64 - 1)

	h.Track(math.MaxUint64 - 1)

	assert.Equal(t, uint64(2), h.Generation())
	assert.Equal(t, uint64(0), h.Sum())
	assert.Equal(t, uint64(0), h.Count())
}

func TestHistogram_TrackAfterReset(t *testing.T) {
	h := NewHistogram("hist", nil)
	h.Track(math.MaxUint64)
	h.Track(1)
	require.Equal(t, uint64(2), h.Generation())

	h.Track(10)

	assert.Equal(t, uint64(10), h.Sum())
	assert.Equal(t, uint64(1), h.Count())
	assert.Equal(t, []string{
		`hist_bucket{generation="2",vmrange="0...255"} 10`,
		`hist_count{generation="2"} 1`,
		`hist_sum{generation="2"} 10`,
	}, h.SerializePrometheus())
}

func TestHistogram_Reset(t *testing.T) {
	h := NewHistogram("hist", nil)
	h.Track(100)
	h.Track(1000)

	h.Reset()
	h.Reset()

	assert.Equal(t, uint64(3), h.Generation())
	assert.Equal(t, uint64(0), h.Count())
	assert.Equal(t, uint64(0), h.Sum())
	assert.Equal(t, uint64(0), h.Bucket(0))
	assert.Equal(t, uint64(0), h.Bucket(2))
}

func TestHistogram_SerializeEmpty(t *testing.T) {
	h := NewHistogram("hist", nil)

	lines := h.SerializePrometheus()

	assert.Equal(t, []string{
		`hist_count{generation="1"} 0`,
		`hist_sum{generation="1"} 0`,
	}, lines)
}

func TestHistogram_SerializeBuckets(t *testing.T) {
	h := NewHistogram("hist", nil)
	h.Track(1)
	h.Track(256)
	h.Track(512)

	lines := h.SerializePrometheus()

	assert.Equal(t, []string{
		`hist_bucket{generation="1",vmrange="0...255"} 1`,
		`hist_bucket{generation="1",vmrange="256...511"} 256`,
		`hist_bucket{generation="1",vmrange="512...1023"} 512`,
		`hist_count{generation="1"} 3`,
		`hist_sum{generation="1"} 769`,
	}, lines)
}

func TestHistogram_SerializeWithTags(t *testing.T) {
	h := NewHistogram("hist", []Tag{{Key: "key", Value: "value"}, {Key: "other", Value: "x"}})
	h.Track(1)

	lines := h.SerializePrometheus()

	assert.Equal(t, []string{
		`hist_bucket{generation="1",key="value",other="x",vmrange="0...255"} 1`,
		`hist_count{generation="1",key="value",other="x"} 1`,
		`hist_sum{generation="1",key="value",other="x"} 1`,
	}, lines)
}

func TestHistogram_SerializeEscapesValues(t *testing.T) {
	h := NewHistogram("hist", []Tag{{Key: "path", Value: "a\"b\\c\nd"}})

	lines := h.SerializePrometheus()

	assert.Equal(t, `hist_count{generation="1",path="a\"b\\c\nd"} 0`, lines[0])
}

func TestBuilder(t *testing.T) {
	b := Named("histogram").Tag("key1", "val1").Tag("key2", "val2")

	first := b.Finish()
	second := b.Tag("key3", "val3").Finish()

	assert.Equal(t, "histogram", first.Name())
	assert.Equal(t, []Tag{{Key: "key1", Value: "val1"}, {Key: "key2", Value: "val2"}}, first.Tags())
	assert.Len(t, second.Tags(), 3)
}

func BenchmarkHistogram_Track(b *testing.B) {
	h := NewHistogram("hist", nil)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h.Track(uint64(i) & 0xfffff)
	}
}

func BenchmarkHistogram_SerializePrometheus(b *testing.B) {
	h := Named("histogram").Tag("key1", "val1").Tag("key2", "val2").Finish()
	v := uint64(128)
	for i := 0; i < 30; i++ {
		h.Track(v)
		v <<= 1
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = h.SerializePrometheus()
	}
}
