package metrics

import "strings"

// Tag is a single label attached to a histogram.
type Tag struct {
	Key   string
	Value string
}

// PrometheusMetric is implemented by everything the reporter can export.
type PrometheusMetric interface {
	// SerializePrometheus returns exposition lines without trailing newlines.
	SerializePrometheus() []string
}

var labelValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// writeTag appends key="value" to sb, escaping the value per the text format.
func writeTag(sb *strings.Builder, key, value string) {
	sb.WriteString(key)
	sb.WriteString(`="`)
	labelValueEscaper.WriteString(sb, value)
	sb.WriteByte('"')
}
