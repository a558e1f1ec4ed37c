package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-redcloud/demand-planning/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), &config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	assert.False(t, client.Enabled())
	assert.Empty(t, client.Addr())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestNewClient_UnreachableFailsWithinTimeout(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: "1"}}

	start := time.Now()
	client, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1 unreachable")
	assert.Less(t, time.Since(start), PingTimeout+time.Second)
}

func TestNewClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &config.Config{Redis: config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: "1"}}
	_, err := New(ctx, cfg)
	assert.Error(t, err)
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(disabledClient(t), "demand")

	var dest map[string]int64
	found, err := cache.Get(ctx, IdentityMapKey(), &dest)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, IdentityMapKey(), map[string]int64{"592": 1}, TTLMaster))

	n, err := cache.DeletePattern(ctx, "report:*")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCache_GetOrSetFallsThrough(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(disabledClient(t), "demand")

	calls := 0
	var dest []string
	err := cache.GetOrSet(ctx, EntityRecordsKey("sku", "SKU-1"), &dest, TTLShort, func() (interface{}, error) {
		calls++
		return []string{"2025-W27", "2025-W28"}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"2025-W27", "2025-W28"}, dest)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "report:sku:ENTITY", ReportKey("sku", "ENTITY"))
	assert.Equal(t, "records:customer:12", EntityRecordsKey("customer", "12"))
	assert.Equal(t, "selection:category", SelectionKey("category"))
	assert.Equal(t, "run:latest", LatestRunKey())
}
