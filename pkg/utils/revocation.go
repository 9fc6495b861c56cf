package utils

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// TokenBlacklist remembers logged-out token ids until their natural expiry.
type TokenBlacklist struct {
	cache *ttlcache.Cache[string, struct{}]
}

func NewTokenBlacklist() *TokenBlacklist {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, struct{}](DefaultTokenTTL),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go cache.Start()
	return &TokenBlacklist{cache: cache}
}

func (b *TokenBlacklist) Revoke(tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if tokenID == "" || ttl <= 0 {
		return
	}
	b.cache.Set(tokenID, struct{}{}, ttl)
}

func (b *TokenBlacklist) IsRevoked(tokenID string) bool {
	if b == nil || tokenID == "" {
		return false
	}
	return b.cache.Get(tokenID) != nil
}

func (b *TokenBlacklist) Stop() {
	b.cache.Stop()
}
