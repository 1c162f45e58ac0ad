// Package fingerprint computes the order-independent 64-bit keys used to
// group APM records into aggregation buckets.
//
// Two records fingerprint equally when their identity fields match and their
// dimension tags form the same set, in any order. Collisions are possible and
// are not mitigated.
package fingerprint

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/okorienev/palantir-agent/internal/apm"
	"github.com/okorienev/palantir-agent/internal/metrics"
)

// separator terminates every variable-length field so that ("ab", "c") and
// ("a", "bc") hash differently.
var separator = []byte{0}

// Tag hashes a single key/value pair.
func Tag(t metrics.Tag) uint64 {
	var d xxhash.Digest
	d.Reset()
	writeField(&d, t.Key)
	writeField(&d, t.Value)
	return d.Sum64()
}

// Tags hashes a tag set. Per-tag hashes are sorted before they are combined,
// which makes the result independent of input order.
func Tags(tags []metrics.Tag) uint64 {
	sums := make([]uint64, len(tags))
	for i, t := range tags {
		sums[i] = Tag(t)
	}
	slices.Sort(sums)

	var d xxhash.Digest
	d.Reset()
	var buf [8]byte
	for _, sum := range sums {
		binary.LittleEndian.PutUint64(buf[:], sum)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// Record hashes realm, application, application hash, action kind and action
// name in that order, then folds in Tags of the record dimensions.
func Record(r *apm.Record) uint64 {
	var d xxhash.Digest
	d.Reset()
	writeField(&d, r.Realm)
	writeField(&d, r.Application)
	writeField(&d, r.ApplicationHash)
	writeField(&d, r.ActionKind)
	writeField(&d, r.ActionName)

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], Tags(r.Dimensions))
	_, _ = d.Write(buf[:])
	return d.Sum64()
}

// Name hashes a measurement name. It keys sub-histograms of a collection.
func Name(name string) uint64 {
	return xxhash.Sum64String(name)
}

func writeField(d *xxhash.Digest, s string) {
	_, _ = d.WriteString(s)
	_, _ = d.Write(separator)
}
