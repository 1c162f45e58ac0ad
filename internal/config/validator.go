package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks the configuration after defaults have been applied.
//
// Returns nil if valid, or a *ValidationErrors containing all problems.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	validateListeners(c.Listeners, errs)
	validateReporter(&c.Reporter, errs)

	if c.Queue.Size < 1 {
		errs.Add("queue.size", "must be at least 1")
	}

	if c.Telemetry.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Telemetry.Listen); err != nil {
			errs.Add("telemetry.listen", fmt.Sprintf("must be host:port: %v", err))
		}
	}

	validateLogging(&c.Logging, errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateListeners(listeners []ListenerConfig, errs *ValidationErrors) {
	if len(listeners) == 0 {
		errs.Add("listeners", "at least one listener is required")
		return
	}

	// ports are unique across transports
	ports := make(map[int]int, len(listeners))
	for i, l := range listeners {
		prefix := fmt.Sprintf("listeners[%d]", i)

		switch l.Type {
		case ListenerUDP, ListenerTCP:
		default:
			errs.Add(prefix+".type", fmt.Sprintf("unknown listener type: %s", l.Type))
		}

		switch l.Format {
		case FormatProtobuf, FormatJSON:
		default:
			errs.Add(prefix+".format", fmt.Sprintf("unknown payload format: %s", l.Format))
		}

		if l.Port < 1 || l.Port > 65535 {
			errs.Add(prefix+".port", fmt.Sprintf("port %d out of range 1..65535", l.Port))
		} else if first, seen := ports[l.Port]; seen {
			errs.Add(prefix+".port", fmt.Sprintf("port %d already used by listeners[%d]", l.Port, first))
		} else {
			ports[l.Port] = i
		}

		if l.BufferSize < 1 || l.BufferSize > MaxBufferSize {
			errs.Add(prefix+".buffer_size", fmt.Sprintf("must be between 1 and %d", MaxBufferSize))
		}

		if net.ParseIP(l.Address) == nil && l.Address != "localhost" {
			errs.Add(prefix+".address", fmt.Sprintf("invalid address: %s", l.Address))
		}
	}
}

func validateReporter(r *ReporterConfig, errs *ValidationErrors) {
	const field = "reporter.vm_import_url"

	if r.VMImportURL == "" {
		errs.Add(field, "import url is required")
	} else if u, err := url.Parse(r.VMImportURL); err != nil {
		errs.Add(field, fmt.Sprintf("invalid url: %v", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add(field, "must be an absolute http or https url")
	} else if u.Host == "" {
		errs.Add(field, "url has no host")
	}

	if r.Period <= 0 {
		errs.Add("reporter.period", "must be positive")
	}
	if r.Timeout <= 0 {
		errs.Add("reporter.timeout", "must be positive")
	}
}

func validateLogging(l *LoggingConfig, errs *ValidationErrors) {
	if _, err := log.ParseLevel(l.Level); err != nil {
		errs.Add("logging.level", fmt.Sprintf("unknown log level: %s", l.Level))
	}

	switch l.Format {
	case LogFormatText, LogFormatJSON:
	default:
		errs.Add("logging.format", fmt.Sprintf("unknown log format: %s", l.Format))
	}
}
