package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"giftcanvas-api/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisAccountRepository stores tracked accounts as a per-tenant id list
// plus one hash per account holding the serialized record.
type RedisAccountRepository struct {
	client *redis.Client
}

// NewRedisAccountRepository creates a Redis-backed account repository.
func NewRedisAccountRepository(client *redis.Client) *RedisAccountRepository {
	return &RedisAccountRepository{client: client}
}

func accountListKey(userID string) string {
	return "accounts:" + userID
}

func accountKey(userID, accountID string) string {
	return "account:" + userID + ":" + accountID
}

// Create registers a new account under its tenant.
func (r *RedisAccountRepository) Create(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to serialize account: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.RPush(ctx, accountListKey(account.UserID), account.ID)
	pipe.HSet(ctx, accountKey(account.UserID, account.ID), "data", data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// Get returns the account or nil when it does not exist.
func (r *RedisAccountRepository) Get(ctx context.Context, userID, accountID string) (*model.Account, error) {
	data, err := r.client.HGet(ctx, accountKey(userID, accountID), "data").Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to parse account: %w", err)
	}
	return &account, nil
}

// Update overwrites the account record.
func (r *RedisAccountRepository) Update(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to serialize account: %w", err)
	}
	if err := r.client.HSet(ctx, accountKey(account.UserID, account.ID), "data", data).Err(); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// Delete removes the account from the tenant list and drops its hash.
func (r *RedisAccountRepository) Delete(ctx context.Context, userID, accountID string) error {
	pipe := r.client.Pipeline()
	pipe.LRem(ctx, accountListKey(userID), 0, accountID)
	pipe.Del(ctx, accountKey(userID, accountID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// List returns the tenant's accounts in creation order. Missing or
// undecodable records are skipped.
func (r *RedisAccountRepository) List(ctx context.Context, userID string) ([]model.Account, error) {
	ids, err := r.client.LRange(ctx, accountListKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, pipe.HGet(ctx, accountKey(userID, id), "data"))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}

	accounts := make([]model.Account, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var account model.Account
		if err := json.Unmarshal(data, &account); err != nil {
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

var _ AccountRepository = (*RedisAccountRepository)(nil)
