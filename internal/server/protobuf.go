package server

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/okorienev/palantir-agent/internal/apm"
	"github.com/okorienev/palantir-agent/internal/metrics"
)

// Field numbers of the palantir request messages.
const (
	requestApmV1Action protowire.Number = 1

	actionRealm           protowire.Number = 1
	actionApplication     protowire.Number = 2
	actionApplicationHash protowire.Number = 3
	actionKind            protowire.Number = 4
	actionName            protowire.Number = 5
	actionTotalUS         protowire.Number = 6
	actionDimensions      protowire.Number = 7
	actionMeasurements    protowire.Number = 8

	tagKey   protowire.Number = 1
	tagValue protowire.Number = 2

	measurementName    protowire.Number = 1
	measurementTotalUS protowire.Number = 2
	measurementHits    protowire.Number = 3
)

// errWireType is returned for a known field sent with an unexpected wire type.
var errWireType = errors.New("unexpected wire type")

// fieldFunc handles one field of a message and returns the number of bytes
// of b it consumed. Returning 0 and no error skips the field.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// walk calls fn for each field of b.
func walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, errWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = string(v)
	return n, nil
}

func consumeUint(typ protowire.Type, b []byte, dst *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, errWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

// DecodeProtobuf decodes a protobuf encoded Request.
func DecodeProtobuf(payload []byte) (*apm.Record, error) {
	var action []byte
	found := false

	err := walk(payload, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != requestApmV1Action {
			return 0, nil
		}
		v, n, err := consumeBytes(typ, b)
		if err != nil {
			return 0, err
		}
		action, found = v, true
		return n, nil
	})
	if err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	if !found {
		return nil, ErrNoAction
	}

	record, err := decodeAction(action)
	if err != nil {
		return nil, fmt.Errorf("decoding action: %w", err)
	}
	return record, nil
}

func decodeAction(b []byte) (*apm.Record, error) {
	r := &apm.Record{}

	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case actionRealm:
			return consumeString(typ, b, &r.Realm)
		case actionApplication:
			return consumeString(typ, b, &r.Application)
		case actionApplicationHash:
			return consumeString(typ, b, &r.ApplicationHash)
		case actionKind:
			return consumeString(typ, b, &r.ActionKind)
		case actionName:
			return consumeString(typ, b, &r.ActionName)
		case actionTotalUS:
			return consumeUint(typ, b, &r.TotalUS)
		case actionDimensions:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			return n, decodeTag(v, r)
		case actionMeasurements:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			return n, decodeMeasurement(v, r)
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func decodeTag(b []byte, r *apm.Record) error {
	var tag metrics.Tag
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case tagKey:
			return consumeString(typ, b, &tag.Key)
		case tagValue:
			return consumeString(typ, b, &tag.Value)
		}
		return 0, nil
	})
	if err != nil {
		return fmt.Errorf("dimension: %w", err)
	}
	r.Dimensions = append(r.Dimensions, tag)
	return nil
}

func decodeMeasurement(b []byte, r *apm.Record) error {
	var (
		name    string
		totalUS uint64
		hits    uint64
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case measurementName:
			return consumeString(typ, b, &name)
		case measurementTotalUS:
			return consumeUint(typ, b, &totalUS)
		case measurementHits:
			return consumeUint(typ, b, &hits)
		}
		return 0, nil
	})
	if err != nil {
		return fmt.Errorf("measurement: %w", err)
	}

	r.Measurements, err = appendHits(r.Measurements, name, totalUS, hits)
	return err
}

// EncodeProtobuf encodes r as a Request. Every measurement is sent with a
// single hit.
func EncodeProtobuf(r *apm.Record) []byte {
	var action []byte
	action = appendString(action, actionRealm, r.Realm)
	action = appendString(action, actionApplication, r.Application)
	action = appendString(action, actionApplicationHash, r.ApplicationHash)
	action = appendString(action, actionKind, r.ActionKind)
	action = appendString(action, actionName, r.ActionName)
	if r.TotalUS != 0 {
		action = protowire.AppendTag(action, actionTotalUS, protowire.VarintType)
		action = protowire.AppendVarint(action, r.TotalUS)
	}

	for _, tag := range r.Dimensions {
		var msg []byte
		msg = appendString(msg, tagKey, tag.Key)
		msg = appendString(msg, tagValue, tag.Value)
		action = protowire.AppendTag(action, actionDimensions, protowire.BytesType)
		action = protowire.AppendBytes(action, msg)
	}

	for _, m := range r.Measurements {
		var msg []byte
		msg = appendString(msg, measurementName, m.Name)
		msg = protowire.AppendTag(msg, measurementTotalUS, protowire.VarintType)
		msg = protowire.AppendVarint(msg, m.ElapsedUS)
		msg = protowire.AppendTag(msg, measurementHits, protowire.VarintType)
		msg = protowire.AppendVarint(msg, 1)
		action = protowire.AppendTag(action, actionMeasurements, protowire.BytesType)
		action = protowire.AppendBytes(action, msg)
	}

	request := protowire.AppendTag(nil, requestApmV1Action, protowire.BytesType)
	return protowire.AppendBytes(request, action)
}

// AppendFrame appends payload prefixed with its varint length, the framing
// used on TCP connections.
func AppendFrame(dst, payload []byte) []byte {
	dst = protowire.AppendVarint(dst, uint64(len(payload)))
	return append(dst, payload...)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}
