package redisstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/uninotes/core/audit"
	redisstore "github.com/trezcool/uninotes/storage/redis"
	testutil "github.com/trezcool/uninotes/tests"
)

// TEST_REDIS_ADDR points the tests to a disposable Redis server.
func setup(t *testing.T, capacity int) *redisstore.AuditStore {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	conf := testutil.NewConfig()
	conf.Redis.Addr = addr
	conf.Audit.Capacity = capacity
	conf.Audit.Key = "test:audit:" + t.Name()

	ctx := context.Background()
	client, err := redisstore.Open(ctx, conf)
	require.NoError(t, err)
	require.NoError(t, client.Del(ctx, conf.Audit.Key).Err())
	t.Cleanup(func() {
		_ = client.Del(context.Background(), conf.Audit.Key).Err()
		_ = client.Close()
	})
	return redisstore.NewAuditStore(client, conf)
}

func TestAuditStore(t *testing.T) {
	store := setup(t, 3)
	ctx := context.Background()

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(ctx, audit.NewEntry("root@test.cd", audit.ActionDeletePost, fmt.Sprintf("n%d", i))))
	}

	entries, err = store.List(ctx, 0)
	require.NoError(t, err)
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "n5", entries[0].TargetID)
		assert.Equal(t, "n3", entries[2].TargetID)
		assert.Equal(t, "root@test.cd", entries[0].ActingAdminEmail)
		assert.Equal(t, audit.ActionDeletePost, entries[0].ActionType)
	}

	entries, err = store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
