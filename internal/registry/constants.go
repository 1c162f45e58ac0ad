package registry

// Identity tag names attached to every APM histogram.
const (
	RealmTagName           = "palantir_realm"
	ApplicationTagName     = "palantir_application"
	ApplicationHashTagName = "palantir_application_hash"
	ActionKindTagName      = "palantir_action_kind"
	ActionNameTagName      = "palantir_action_name"
	SpanTagName            = "palantir_span"
)

// Metric names.
const (
	ActionMetricName     = "palantir_apm"
	HandleTimeMetricName = "palantir_agent_request_handle_time"
)

// Span values of the derived pseudo-measurements.
const (
	TotalSpan     = "total"
	UntrackedSpan = "untracked"
)
