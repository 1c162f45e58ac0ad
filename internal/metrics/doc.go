// Package metrics provides the fixed-layout histogram used by the agent to
// aggregate APM timings and its Prometheus/VictoriaMetrics text serialization.
//
// # Bucket Layout
//
// Every histogram shares the same 30 buckets. Upper bounds are 2^i - 1 for
// i = 8..36, and the last bucket is a catch-all ending at 2^64 - 1. Bucket
// boundaries are inclusive:
//
//	0...255, 256...511, 512...1023, ..., 34359738368...68719476735, 68719476736...+Inf
//
// # Overflow Policy
//
// Counters exposed to a monitoring system must stay monotonic. Instead of
// wrapping around, a histogram whose sum, bucket or count would overflow is
// reset to zero and its generation is bumped. The "generation" label lets
// consumers see the discontinuity.
//
// # Basic Usage
//
//	h := metrics.Named("palantir_apm").
//	    Tag("palantir_realm", "production").
//	    Finish()
//
//	h.Track(1500)
//	for _, line := range h.SerializePrometheus() {
//	    fmt.Println(line)
//	}
//
// Output:
//
//	palantir_apm_bucket{generation="1",palantir_realm="production",vmrange="1024...2047"} 1500
//	palantir_apm_count{generation="1",palantir_realm="production"} 1
//	palantir_apm_sum{generation="1",palantir_realm="production"} 1500
//
// # Thread Safety
//
// Histogram is not safe for concurrent use. Owners guard it with a mutex.
package metrics
