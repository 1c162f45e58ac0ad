package output

import (
	"errors"
	"strings"
	"testing"

	"github.com/okorienev/palantir-agent/internal/config"
)

func TestFormatConfig(t *testing.T) {
	cfg := &config.Config{
		Listeners: []config.ListenerConfig{{Type: "udp", Port: 5545}},
		Reporter:  config.ReporterConfig{VMImportURL: "http://vm/import"},
		Telemetry: config.TelemetryConfig{Listen: ":9230"},
	}
	config.ApplyDefaults(cfg)

	got := NewFormatter(true).FormatConfig("agent.yaml", cfg)

	for _, want := range []string{
		"✓ agent.yaml is valid",
		"udp 127.0.0.1:5545 format=protobuf",
		"import url: http://vm/import",
		"period: 10s",
		"timeout: 5s",
		"telemetry: :9230",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatConfig() missing %q in:\n%s", want, got)
		}
	}
}

func TestFormatError(t *testing.T) {
	f := NewFormatter(true)

	verrs := &config.ValidationErrors{}
	verrs.Add("listeners", "at least one listener is required")
	verrs.Add("reporter.period", "must be positive")

	got := f.FormatError("agent.yaml", verrs)
	if !strings.HasPrefix(got, "✗ agent.yaml is invalid\n") {
		t.Errorf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "  listeners: at least one listener is required\n") {
		t.Errorf("listener error missing: %q", got)
	}
	if !strings.Contains(got, "  reporter.period: must be positive\n") {
		t.Errorf("period error missing: %q", got)
	}

	got = f.FormatError("agent.yaml", errors.New("failed to read config file"))
	if !strings.Contains(got, "  failed to read config file\n") {
		t.Errorf("plain error missing: %q", got)
	}
}

func TestFormatSent(t *testing.T) {
	got := NewFormatter(true).FormatSent(3, 120, "127.0.0.1:5545")
	if got != "✓ sent 3 records (120 bytes) to 127.0.0.1:5545\n" {
		t.Errorf("FormatSent() = %q", got)
	}
}

func TestIcons(t *testing.T) {
	if SuccessIcon(true) != "✓" {
		t.Errorf("SuccessIcon(true) = %q", SuccessIcon(true))
	}
	if ErrorIcon(true) != "✗" {
		t.Errorf("ErrorIcon(true) = %q", ErrorIcon(true))
	}
	if !strings.Contains(SuccessIcon(false), "✓") {
		t.Error("SuccessIcon(false) should contain the checkmark")
	}
}
