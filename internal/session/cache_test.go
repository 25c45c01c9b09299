package session

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// TestNewRedisCacheTTL verifies a non-positive TTL is replaced so snapshot
// keys never persist forever.
func TestNewRedisCacheTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	tests := []struct {
		in, want time.Duration
	}{
		{0, DefaultSnapshotTTL},
		{-time.Second, DefaultSnapshotTTL},
		{time.Minute, time.Minute},
	}
	for _, tt := range tests {
		if got := NewRedisCache(client, tt.in).ttl; got != tt.want {
			t.Errorf("NewRedisCache(ttl=%v).ttl = %v, want %v", tt.in, got, tt.want)
		}
	}
}
