package model

import "time"

// TokenData contains the data stored with a session token.
type TokenData struct {
	ActivationID int64     `json:"activation_id"`
	UserID       string    `json:"user_id"`
	DeviceID     string    `json:"device_id"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ActivationValidation contains the result of activation-key validation.
type ActivationValidation struct {
	ActivationID int64
	UserID       string
	DeviceID     string
	KeyStatus    string
}
