package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okorienev/palantir-agent/internal/config"
)

// Formatter renders command output.
type Formatter struct {
	NoColor bool
	scheme  *ColorScheme
}

// NewFormatter creates a Formatter.
func NewFormatter(noColor bool) *Formatter {
	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}
	return &Formatter{NoColor: noColor, scheme: scheme}
}

// FormatConfig summarizes a valid configuration.
func (f *Formatter) FormatConfig(path string, cfg *config.Config) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s\n", SuccessIcon(f.NoColor), f.scheme.Success.Sprintf("%s is valid", path))
	sb.WriteString(f.scheme.Title.Sprint("Listeners") + "\n")
	for _, l := range cfg.Listeners {
		fmt.Fprintf(&sb, "  %s %s:%d %s%s\n",
			f.scheme.Highlight.Sprint(l.Type),
			l.Address, l.Port,
			f.scheme.Field.Sprint("format="), f.scheme.Value.Sprint(l.Format))
	}

	sb.WriteString(f.scheme.Title.Sprint("Reporter") + "\n")
	f.writeField(&sb, "import url", cfg.Reporter.VMImportURL)
	f.writeField(&sb, "period", cfg.Reporter.Period.GetDuration(config.DefaultPeriod).String())
	f.writeField(&sb, "timeout", cfg.Reporter.Timeout.GetDuration(config.DefaultTimeout).String())
	if cfg.Telemetry.Listen != "" {
		f.writeField(&sb, "telemetry", cfg.Telemetry.Listen)
	}
	return sb.String()
}

// FormatError renders a load failure. Validation errors are listed one per
// line.
func (f *Formatter) FormatError(path string, err error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", ErrorIcon(f.NoColor), f.scheme.Error.Sprintf("%s is invalid", path))

	var verrs *config.ValidationErrors
	if !errors.As(err, &verrs) {
		fmt.Fprintf(&sb, "  %s\n", err)
		return sb.String()
	}
	for _, e := range verrs.Errors {
		fmt.Fprintf(&sb, "  %s %s\n", f.scheme.Field.Sprint(e.Field+":"), e.Message)
	}
	return sb.String()
}

// FormatSent reports a finished send command.
func (f *Formatter) FormatSent(count, bytes int, addr string) string {
	return fmt.Sprintf("%s sent %s records (%d bytes) to %s\n",
		SuccessIcon(f.NoColor), f.scheme.Highlight.Sprint(count), bytes, addr)
}

func (f *Formatter) writeField(sb *strings.Builder, name, value string) {
	fmt.Fprintf(sb, "  %s %s\n", f.scheme.Field.Sprint(name+":"), f.scheme.Value.Sprint(value))
}
