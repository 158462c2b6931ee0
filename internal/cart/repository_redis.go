package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "cart:"
	maxTxRetries   = 5
)

var ErrConflict = errors.New("cart changed concurrently, retry")

// RedisRepository stores each cart as a hash (item id -> quantity) whose TTL
// is refreshed on every change, so idle carts expire on their own.
type RedisRepository struct {
	client   *redis.Client
	maxItems int
	ttl      time.Duration
}

func NewRedisRepository(client *redis.Client, maxItems int, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, maxItems: maxItems, ttl: ttl}
}

func (r *RedisRepository) key(customerID string) string {
	return redisKeyPrefix + customerID
}

func readItems(ctx context.Context, c redis.Cmdable, key string) (map[string]int, error) {
	raw, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read cart %s: %w", key, err)
	}
	items := make(map[string]int, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("cart %s: bad quantity %q for %s", key, v, k)
		}
		items[k] = n
	}
	return items, nil
}

// update runs mutate against the current cart under WATCH and writes the
// resulting quantity for itemID, retrying when another writer got in first.
func (r *RedisRepository) update(ctx context.Context, customerID, itemID string, mutate func(items map[string]int) (int, error)) (int, error) {
	key := r.key(customerID)
	var qty int
	txf := func(tx *redis.Tx) error {
		items, err := readItems(ctx, tx, key)
		if err != nil {
			return err
		}
		if qty, err = mutate(items); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if qty > 0 {
				pipe.HSet(ctx, key, itemID, qty)
			} else {
				pipe.HDel(ctx, key, itemID)
			}
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return qty, err
	}
	return 0, ErrConflict
}

func (r *RedisRepository) Add(ctx context.Context, customerID, itemID string, delta int) (int, error) {
	return r.update(ctx, customerID, itemID, func(items map[string]int) (int, error) {
		return applyAdd(items, itemID, delta, r.maxItems)
	})
}

func (r *RedisRepository) SetQuantity(ctx context.Context, customerID, itemID string, qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	_, err := r.update(ctx, customerID, itemID, func(items map[string]int) (int, error) {
		return qty, applySet(items, itemID, qty, r.maxItems)
	})
	return err
}

func (r *RedisRepository) Remove(ctx context.Context, customerID, itemID string) error {
	if err := r.client.HDel(ctx, r.key(customerID), itemID).Err(); err != nil {
		return fmt.Errorf("remove %s from cart: %w", itemID, err)
	}
	return nil
}

func (r *RedisRepository) Quantity(ctx context.Context, customerID, itemID string) (int, error) {
	n, err := r.client.HGet(ctx, r.key(customerID), itemID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quantity of %s: %w", itemID, err)
	}
	return n, nil
}

func (r *RedisRepository) Items(ctx context.Context, customerID string) (map[string]int, error) {
	return readItems(ctx, r.client, r.key(customerID))
}

func (r *RedisRepository) Clear(ctx context.Context, customerID string) error {
	if err := r.client.Del(ctx, r.key(customerID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
