package model

// Job statuses. There is no intermediate state between pending and done;
// a popped-but-unfinished job exists only in consumer memory.
const (
	JobStatusPending = "pending"
	JobStatusDone    = "done"
)

// Job is a drawing request derived from a qualifying chat event.
type Job struct {
	JobID     string `json:"jobId"`
	User      string `json:"user"`
	ImageURL  string `json:"imageUrl"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
}
