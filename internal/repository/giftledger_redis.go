package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisGiftLedgerRepository implements GiftLedgerRepository on a Redis set.
type RedisGiftLedgerRepository struct {
	client *redis.Client
}

// NewRedisGiftLedgerRepository creates a Redis-backed gift ledger.
func NewRedisGiftLedgerRepository(client *redis.Client) *RedisGiftLedgerRepository {
	return &RedisGiftLedgerRepository{client: client}
}

func giftedKey(accountID string) string {
	return "gifted:" + accountID
}

// MarkGift records a gift from the viewer. Idempotent.
func (r *RedisGiftLedgerRepository) MarkGift(ctx context.Context, accountID, viewer string) error {
	if err := r.client.SAdd(ctx, giftedKey(accountID), viewer).Err(); err != nil {
		return fmt.Errorf("failed to mark gift: %w", err)
	}
	return nil
}

// HasGifted reports set membership for the viewer.
func (r *RedisGiftLedgerRepository) HasGifted(ctx context.Context, accountID, viewer string) (bool, error) {
	member, err := r.client.SIsMember(ctx, giftedKey(accountID), viewer).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check gift ledger: %w", err)
	}
	return member, nil
}

// GiftedViewers returns all viewers who have gifted, unordered.
func (r *RedisGiftLedgerRepository) GiftedViewers(ctx context.Context, accountID string) ([]string, error) {
	viewers, err := r.client.SMembers(ctx, giftedKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list gifted viewers: %w", err)
	}
	return viewers, nil
}

var _ GiftLedgerRepository = (*RedisGiftLedgerRepository)(nil)
