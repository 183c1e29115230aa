package telemetry

// Event names
const (
	EventRoundCompleted = "round_completed"
	EventRoundFailed    = "round_failed"
	EventServerStarted  = "server_started"
)
