package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okorienev/palantir-agent/internal/apm"
	"github.com/okorienev/palantir-agent/internal/metrics"
)

// ErrMalformedJSON is returned for payloads that are not a JSON object.
var ErrMalformedJSON = errors.New("malformed json payload")

// DecodeJSON decodes a JSON encoded Request:
//
//	{"apm_v1_action": {"realm": "...", "total_us": 100,
//	  "additional_dimensions": [{"key": "k", "value": "v"}],
//	  "measurements": [{"name": "db", "total_us": 40, "hits": 1}]}}
func DecodeJSON(payload []byte) (*apm.Record, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrMalformedJSON
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return nil, ErrMalformedJSON
	}

	action := root.Get("apm_v1_action")
	if !action.Exists() || action.Type == gjson.Null {
		return nil, ErrNoAction
	}
	if !action.IsObject() {
		return nil, fmt.Errorf("apm_v1_action: %w", ErrMalformedJSON)
	}

	r := &apm.Record{}
	var err error
	if r.Realm, err = jsonString(action, "realm"); err != nil {
		return nil, err
	}
	if r.Application, err = jsonString(action, "application"); err != nil {
		return nil, err
	}
	if r.ApplicationHash, err = jsonString(action, "application_hash"); err != nil {
		return nil, err
	}
	if r.ActionKind, err = jsonString(action, "action_kind"); err != nil {
		return nil, err
	}
	if r.ActionName, err = jsonString(action, "action_name"); err != nil {
		return nil, err
	}
	if r.TotalUS, err = jsonUint(action, "total_us"); err != nil {
		return nil, err
	}

	dims := action.Get("additional_dimensions")
	if dims.Exists() && !dims.IsArray() {
		return nil, fmt.Errorf("additional_dimensions: %w", ErrMalformedJSON)
	}
	for _, dim := range dims.Array() {
		var tag metrics.Tag
		if tag.Key, err = jsonString(dim, "key"); err != nil {
			return nil, fmt.Errorf("dimension: %w", err)
		}
		if tag.Value, err = jsonString(dim, "value"); err != nil {
			return nil, fmt.Errorf("dimension: %w", err)
		}
		r.Dimensions = append(r.Dimensions, tag)
	}

	measurements := action.Get("measurements")
	if measurements.Exists() && !measurements.IsArray() {
		return nil, fmt.Errorf("measurements: %w", ErrMalformedJSON)
	}
	for _, m := range measurements.Array() {
		name, err := jsonString(m, "name")
		if err != nil {
			return nil, fmt.Errorf("measurement: %w", err)
		}
		totalUS, err := jsonUint(m, "total_us")
		if err != nil {
			return nil, fmt.Errorf("measurement: %w", err)
		}
		hits, err := jsonUint(m, "hits")
		if err != nil {
			return nil, fmt.Errorf("measurement: %w", err)
		}
		if r.Measurements, err = appendHits(r.Measurements, name, totalUS, hits); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func jsonString(obj gjson.Result, field string) (string, error) {
	v := obj.Get(field)
	switch v.Type {
	case gjson.Null:
		return "", nil
	case gjson.String:
		return v.Str, nil
	default:
		return "", fmt.Errorf("%s: expected string: %w", field, ErrMalformedJSON)
	}
}

func jsonUint(obj gjson.Result, field string) (uint64, error) {
	v := obj.Get(field)
	switch {
	case v.Type == gjson.Null:
		return 0, nil
	case v.Type != gjson.Number, strings.ContainsAny(v.Raw, "-.eE"):
		return 0, fmt.Errorf("%s: expected unsigned integer: %w", field, ErrMalformedJSON)
	}
	return v.Uint(), nil
}

type jsonRequest struct {
	Action jsonAction `json:"apm_v1_action"`
}

type jsonAction struct {
	Realm           string            `json:"realm"`
	Application     string            `json:"application"`
	ApplicationHash string            `json:"application_hash"`
	ActionKind      string            `json:"action_kind"`
	ActionName      string            `json:"action_name"`
	TotalUS         uint64            `json:"total_us"`
	Dimensions      []jsonTag         `json:"additional_dimensions,omitempty"`
	Measurements    []jsonMeasurement `json:"measurements,omitempty"`
}

type jsonTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type jsonMeasurement struct {
	Name    string `json:"name"`
	TotalUS uint64 `json:"total_us"`
	Hits    uint64 `json:"hits"`
}

// EncodeJSON encodes r in the form DecodeJSON accepts, without a trailing
// newline.
func EncodeJSON(r *apm.Record) ([]byte, error) {
	action := jsonAction{
		Realm:           r.Realm,
		Application:     r.Application,
		ApplicationHash: r.ApplicationHash,
		ActionKind:      r.ActionKind,
		ActionName:      r.ActionName,
		TotalUS:         r.TotalUS,
	}
	for _, tag := range r.Dimensions {
		action.Dimensions = append(action.Dimensions, jsonTag{Key: tag.Key, Value: tag.Value})
	}
	for _, m := range r.Measurements {
		action.Measurements = append(action.Measurements, jsonMeasurement{Name: m.Name, TotalUS: m.ElapsedUS, Hits: 1})
	}
	return json.Marshal(jsonRequest{Action: action})
}
