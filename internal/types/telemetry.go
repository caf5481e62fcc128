package types

// Telemetry metric names for CloudWatch.
const (
	MetricReminderSent      = "ReminderSent"
	MetricReminderFailed    = "ReminderFailed"
	MetricReminderDropped   = "ReminderDropped"
	MetricReminderLatency   = "ReminderLatency"
	MetricReminderPending   = "ReminderPending"

	// Dimension Keys
	DimProvider = "Provider"
	DimReason   = "Reason"

	MetricNamespace = "Noteria"
)
