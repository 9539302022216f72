package model

// Pipeline status strings. These cross the public boundary as-is; callers
// observe statuses, not typed errors.
const (
	StatusRunning        = "running"
	StatusEnded          = "ended"
	StatusDisconnected   = "disconnected"
	StatusError          = "error"
	StatusStopped        = "stopped"
	StatusAlreadyRunning = "already_running"
	StatusNotRunning     = "not_running"
)
