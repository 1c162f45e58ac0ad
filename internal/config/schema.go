package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Listener transports.
const (
	ListenerUDP = "udp"
	ListenerTCP = "tcp"
)

// Payload formats.
const (
	FormatProtobuf = "protobuf"
	FormatJSON     = "json"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultAddress    = "127.0.0.1"
	DefaultBufferSize = 4096
	DefaultPeriod     = 10 * time.Second
	DefaultTimeout    = 5 * time.Second
	DefaultQueueSize  = 4096
	DefaultLogLevel   = "info"
)

// MaxBufferSize is the largest UDP payload over IPv4.
const MaxBufferSize = 65507

// Config is the root agent configuration.
type Config struct {
	// Listeners receive APM records. At least one is required.
	Listeners []ListenerConfig `json:"listeners" yaml:"listeners"`

	// Reporter configures the export stage.
	Reporter ReporterConfig `json:"reporter" yaml:"reporter"`

	// Queue configures the ingestion queue.
	Queue QueueConfig `json:"queue,omitempty" yaml:"queue,omitempty"`

	// Telemetry configures the agent's own metrics endpoint.
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`

	// Logging configures the process logger.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// ListenerConfig defines one network listener.
type ListenerConfig struct {
	// Type is the transport: "udp" or "tcp"
	Type string `json:"type" yaml:"type"`

	// Address is the local address to bind
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// Port is the local port to bind
	Port int `json:"port" yaml:"port"`

	// BufferSize is the largest accepted payload in bytes
	BufferSize int `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"`

	// Format is the payload encoding: "protobuf" or "json"
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// ReporterConfig defines how aggregates are pushed.
type ReporterConfig struct {
	// VMImportURL is the Prometheus text import endpoint
	VMImportURL string `json:"vm_import_url" yaml:"vm_import_url"`

	// Period is the time between two pushes
	Period Duration `json:"period,omitempty" yaml:"period,omitempty"`

	// Timeout bounds a single push
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Headers are added to every push request
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// QueueConfig defines the ingestion queue.
type QueueConfig struct {
	Size int `json:"size,omitempty" yaml:"size,omitempty"`
}

// TelemetryConfig defines the self metrics endpoint.
type TelemetryConfig struct {
	// Listen is the host:port serving /metrics. Empty disables it.
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
}

// LoggingConfig defines the process logger.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Duration is a time.Duration that can be unmarshaled from JSON/YAML strings.
type Duration time.Duration

// GetDuration returns the duration or a default if empty.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return d.set(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a string", value.Line)
	}
	return d.set(value.Value)
}

func (d *Duration) set(s string) error {
	if s == "" || s == "null" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}
