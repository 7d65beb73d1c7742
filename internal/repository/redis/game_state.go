package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key patterns for Redis game state.
func boardKey(gameID string) string  { return "game:" + gameID + ":board" }
func ordersKey(gameID string) string { return "game:" + gameID + ":orders" }
func lockKey(gameID string) string   { return "game:" + gameID + ":lock" }
func timerKey(gameID string) string  { return "game:" + gameID + ":timer" }

// releaseScript deletes the lock only if the caller still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SetBoard stores the current DFEN board of a game.
func (c *Client) SetBoard(ctx context.Context, gameID, dfen string) error {
	return c.rdb.Set(ctx, boardKey(gameID), dfen, 0).Err()
}

// GetBoard retrieves the cached board, or "" when none is cached.
func (c *Client) GetBoard(ctx context.Context, gameID string) (string, error) {
	board, err := c.rdb.Get(ctx, boardKey(gameID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get board: %w", err)
	}
	return board, nil
}

// SetOrders stores a power's orders for the current phase, replacing any
// earlier submission.
func (c *Client) SetOrders(ctx context.Context, gameID, power, dson string) error {
	return c.rdb.HSet(ctx, ordersKey(gameID), power, dson).Err()
}

// GetAllOrders retrieves the orders of every power that has submitted.
func (c *Client) GetAllOrders(ctx context.Context, gameID string) (map[string]string, error) {
	orders, err := c.rdb.HGetAll(ctx, ordersKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	return orders, nil
}

// AcquireLock takes the per-game resolution lock. It returns "" without an
// error when another holder has it.
func (c *Client) AcquireLock(ctx context.Context, gameID string, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	ok, err := c.rdb.SetNX(ctx, lockKey(gameID), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseLock drops the lock if token still holds it.
func (c *Client) ReleaseLock(ctx context.Context, gameID, token string) error {
	if err := releaseScript.Run(ctx, c.rdb, []string{lockKey(gameID)}, token).Err(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// phaseGracePeriod is the extra time after the displayed deadline before
// phase resolution triggers, giving players a few seconds of leeway.
const phaseGracePeriod = 5 * time.Second

// SetTimer creates a timer key with a TTL. When the key expires, Redis
// keyspace notifications trigger phase resolution.
func (c *Client) SetTimer(ctx context.Context, gameID string, deadline time.Time) error {
	ttl := time.Until(deadline) + phaseGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, timerKey(gameID), deadline.Unix(), ttl).Err()
}

// ClearPhaseData removes the submitted orders and timer of a game. Called
// after phase resolution to prepare for the next phase.
func (c *Client) ClearPhaseData(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, ordersKey(gameID), timerKey(gameID)).Err()
}

// DeleteGameData removes all Redis data for a game except a held lock.
func (c *Client) DeleteGameData(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, boardKey(gameID), ordersKey(gameID), timerKey(gameID)).Err()
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
