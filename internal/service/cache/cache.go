package cache

import "time"

// BytesCache is the minimal backend contract shared by the in-memory and
// Redis implementations.
type BytesCache interface {
	GetBytes(key string) ([]byte, bool, error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
