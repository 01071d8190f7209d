package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/loan-engine/internal/domain"
)

const loanKeyPrefix = "loan:"

// storeIfNewer writes the entry unless the cached one carries the same or a
// higher version. KEYS[1] loan key, ARGV: version, json, ttl in ms.
var storeIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// RedisLoanCache stores loans as a hash {version, data} under "loan:<id>".
// Writes are ordered by loan version, so a reader holding an older copy can
// never replace a newer one.
type RedisLoanCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLoanCache(client *redis.Client, ttl time.Duration) *RedisLoanCache {
	return &RedisLoanCache{client: client, ttl: ttl}
}

func LoanKey(id uuid.UUID) string {
	return loanKeyPrefix + id.String()
}

// Get returns nil, nil when the loan is not cached.
func (c *RedisLoanCache) Get(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	raw, err := c.client.HGet(ctx, LoanKey(id), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", id, err)
	}

	var loan domain.Loan
	if err := json.Unmarshal(raw, &loan); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", id, err)
	}
	return &loan, nil
}

// Set caches loan unless a copy with the same or a newer version is already
// there.
func (c *RedisLoanCache) Set(ctx context.Context, loan *domain.Loan) error {
	raw, err := json.Marshal(loan)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", loan.ID, err)
	}

	err = storeIfNewer.Run(ctx, c.client, []string{LoanKey(loan.ID)},
		loan.Version, raw, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("cache set %s: %w", loan.ID, err)
	}
	return nil
}

func (c *RedisLoanCache) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, LoanKey(id)).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", id, err)
	}
	return nil
}
