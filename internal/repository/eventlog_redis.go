package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"giftcanvas-api/internal/model"

	"github.com/redis/go-redis/v9"
)

// MaxLogEntries caps the per-account event log. Older entries are
// silently discarded on every write.
const MaxLogEntries = 100

// RedisEventLogRepository implements EventLogRepository on a Redis list.
// Every append is also published on channel log:{accountId} so detached
// consumers (overlay renderer, plugin bridge) see entries in write order.
type RedisEventLogRepository struct {
	client *redis.Client
}

// NewRedisEventLogRepository creates a Redis-backed event log.
func NewRedisEventLogRepository(client *redis.Client) *RedisEventLogRepository {
	return &RedisEventLogRepository{client: client}
}

func logKey(accountID string) string {
	return "logs:" + accountID
}

func logChannel(accountID string) string {
	return "log:" + accountID
}

// Append writes an entry, trims to the cap and publishes it.
func (r *RedisEventLogRepository) Append(ctx context.Context, accountID string, entry model.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize log entry: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, logKey(accountID), data)
	pipe.LTrim(ctx, logKey(accountID), 0, MaxLogEntries-1)
	pipe.Publish(ctx, logChannel(accountID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

// List returns entries newest-first. Undecodable rows are skipped.
func (r *RedisEventLogRepository) List(ctx context.Context, accountID string) ([]model.LogEntry, error) {
	rows, err := r.client.LRange(ctx, logKey(accountID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	entries := make([]model.LogEntry, 0, len(rows))
	for _, row := range rows {
		var entry model.LogEntry
		if err := json.Unmarshal([]byte(row), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

var _ EventLogRepository = (*RedisEventLogRepository)(nil)
