package model

// Log levels used by the pipeline. These are domain levels shown on the
// dashboard, not severity levels of the process logger.
const (
	LogLevelInfo   = "info"
	LogLevelWarn   = "warn"
	LogLevelError  = "error"
	LogLevelGift   = "gift"
	LogLevelQueue  = "queue"
	LogLevelNotify = "notify"
)

// LogEntry is one operational message in an account's bounded event log.
// Time is unix milliseconds.
type LogEntry struct {
	Time  int64  `json:"time"`
	Level string `json:"level"`
	Text  string `json:"text"`
}
