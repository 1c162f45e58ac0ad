package server

import (
	"errors"
	"fmt"

	"github.com/okorienev/palantir-agent/internal/apm"
)

// Supported payload formats.
const (
	FormatProtobuf = "protobuf"
	FormatJSON     = "json"
)

var (
	// ErrNoAction is returned for a well-formed request without an action.
	ErrNoAction = errors.New("request carries no action")

	// ErrTooManyHits is returned when the measurements of one record expand
	// to more than apm.MaxHits entries.
	ErrTooManyHits = fmt.Errorf("record expands to more than %d measurements", apm.MaxHits)
)

// DecodeFunc decodes one payload into a record.
type DecodeFunc func(payload []byte) (*apm.Record, error)

// DecoderFor returns the decoder of format.
func DecoderFor(format string) (DecodeFunc, error) {
	switch format {
	case FormatProtobuf, "":
		return DecodeProtobuf, nil
	case FormatJSON:
		return DecodeJSON, nil
	default:
		return nil, fmt.Errorf("unknown payload format %q", format)
	}
}

// appendHits validates hits and appends the expanded measurements. dst holds
// the measurements already decoded for the same record; the record as a
// whole may not grow past apm.MaxHits.
func appendHits(dst []apm.Measurement, name string, totalUS, hits uint64) ([]apm.Measurement, error) {
	if hits > apm.MaxHits || uint64(len(dst))+max(hits, 1) > apm.MaxHits {
		return nil, fmt.Errorf("measurement %q: %w", name, ErrTooManyHits)
	}
	return append(dst, apm.ExpandHits(name, totalUS, hits)...), nil
}
