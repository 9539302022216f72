package model

// Account is a tracked live-stream identity owned by a tenant.
// Accounts are created via the account-management API; the pipeline
// references them but never mutates the record itself.
type Account struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Username  string         `json:"username"`
	Settings  map[string]any `json:"settings"`
	Status    string         `json:"status"`
	CreatedAt int64          `json:"createdAt"`
}

// ListenerInfo is the display view of an active listener.
type ListenerInfo struct {
	AccountID string `json:"accountId"`
	Username  string `json:"username"`
	Status    string `json:"status"`
}
