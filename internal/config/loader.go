package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okorienev/palantir-agent/pkg/jsonschema"
)

//go:embed schema.json
var schemaSource string

var configSchema = jsonschema.MustCompile("schema.json", schemaSource)

// LoadConfig reads, decodes, completes and validates the configuration file
// at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ParseConfig checks data against the configuration schema and decodes it.
//
// The format is determined by the file extension in path: .json is JSON,
// anything else is YAML. Defaults are not applied.
func ParseConfig(data []byte, path string) (*Config, error) {
	isJSON := strings.ToLower(filepath.Ext(path)) == ".json"

	var document interface{}
	if isJSON {
		if err := json.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := checkSchema(document); err != nil {
		return nil, err
	}

	var config Config
	if isJSON {
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	return &config, nil
}

// checkSchema validates a decoded document. YAML documents are normalized
// through JSON so that numbers and maps have the types the validator expects.
func checkSchema(document interface{}) error {
	if document == nil {
		return fmt.Errorf("config file is empty")
	}

	raw, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}

	if errs := configSchema.Validate(normalized); len(errs) > 0 {
		return fmt.Errorf("config does not match schema: %w", errs)
	}
	return nil
}

// ApplyDefaults fills unset optional fields.
func ApplyDefaults(c *Config) {
	for i := range c.Listeners {
		l := &c.Listeners[i]
		if l.Type == "" {
			l.Type = ListenerUDP
		}
		if l.Address == "" {
			l.Address = DefaultAddress
		}
		if l.BufferSize == 0 {
			l.BufferSize = DefaultBufferSize
		}
		if l.Format == "" {
			l.Format = FormatProtobuf
		}
	}

	c.Reporter.Period = Duration(c.Reporter.Period.GetDuration(DefaultPeriod))
	c.Reporter.Timeout = Duration(c.Reporter.Timeout.GetDuration(DefaultTimeout))

	if c.Queue.Size == 0 {
		c.Queue.Size = DefaultQueueSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
}
