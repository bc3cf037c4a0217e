package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/shopspring/decimal"
)

// CachedClient memoizes balance reads for a short TTL. A wallet's entry is dropped as
// soon as a deposit or transfer from it confirms.
type CachedClient struct {
	inner Client
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewCachedClient(inner Client, ttl time.Duration) (*CachedClient, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("balance cache: %w", err)
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedClient{inner: inner, cache: cache, ttl: ttl}, nil
}

func (c *CachedClient) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	key := strings.ToLower(address)
	if val, ok := c.cache.Get(key); ok {
		if bal, ok := val.(decimal.Decimal); ok {
			return bal, nil
		}
	}

	bal, err := c.inner.BalanceOf(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	c.cache.SetWithTTL(key, bal, 1, c.ttl)
	c.cache.Wait()
	return bal, nil
}

func (c *CachedClient) Deposit(ctx context.Context, secret string, amount decimal.Decimal) (string, error) {
	ref, err := c.inner.Deposit(ctx, secret, amount)
	c.invalidate(secret)
	return ref, err
}

func (c *CachedClient) Transfer(ctx context.Context, secret string, amount decimal.Decimal) (string, error) {
	ref, err := c.inner.Transfer(ctx, secret, amount)
	c.invalidate(secret)
	return ref, err
}

// Close releases the cache's background goroutines.
func (c *CachedClient) Close() {
	c.cache.Close()
}

func (c *CachedClient) invalidate(secret string) {
	addr, err := AddressFromSecret(secret)
	if err != nil {
		return
	}
	c.cache.Del(addr)
}
