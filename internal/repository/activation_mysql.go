package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"giftcanvas-api/internal/model"
)

// MySQLActivationRepository implements ActivationRepository using MySQL.
// Activation keys are issued by the payment flow (external collaborator)
// and consumed here to open dashboard sessions.
type MySQLActivationRepository struct {
	db *sql.DB
}

// NewMySQLActivationRepository creates a new MySQL activation repository.
func NewMySQLActivationRepository(db *sql.DB) *MySQLActivationRepository {
	return &MySQLActivationRepository{db: db}
}

// ValidateKey validates an activation key for token generation. The key
// is bound to the first device that uses it; later calls must present the
// same device id.
func (r *MySQLActivationRepository) ValidateKey(ctx context.Context, key, deviceID string) (*model.ActivationValidation, error) {
	query := `
		SELECT id, user_id, device_id, status
		FROM activation_keys
		WHERE ` + "`key`" + ` = ?
		  AND is_active = 1
		  AND LOWER(status) = 'active'
		LIMIT 1`

	var result model.ActivationValidation
	var boundDevice sql.NullString
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&result.ActivationID,
		&result.UserID,
		&boundDevice,
		&result.KeyStatus,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("invalid or inactive activation key")
		}
		return nil, fmt.Errorf("failed to validate activation key: %w", err)
	}

	result.DeviceID = boundDevice.String
	if result.DeviceID != "" && result.DeviceID != deviceID {
		return nil, fmt.Errorf("device mismatch")
	}

	if result.DeviceID == "" && deviceID != "" {
		updateQuery := `UPDATE activation_keys SET device_id = ? WHERE id = ?`
		if _, err := r.db.ExecContext(ctx, updateQuery, deviceID, result.ActivationID); err != nil {
			log.Printf("[ActivationRepository] Failed to bind device: %v", err)
		}
		result.DeviceID = deviceID
	}

	return &result, nil
}

var _ ActivationRepository = (*MySQLActivationRepository)(nil)
