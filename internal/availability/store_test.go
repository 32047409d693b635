package availability

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestStores(t *testing.T) {
	_, client := setupTestRedis(t)
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			w := mondayNineToFive("prov-" + name)
			w.Timezone = "Europe/London"
			w.Overrides = []Override{{Date: "2024-01-15", Available: false}}
			w.Vacations = []Vacation{{StartDate: "2024-08-01", EndDate: "2024-08-14"}}
			require.NoError(t, store.Put(ctx, w))

			got, err := store.Get(ctx, w.ProviderID)
			require.NoError(t, err)
			assert.Equal(t, "Europe/London", got.Timezone)
			require.NotNil(t, got.Weekly.Monday)
			assert.Equal(t, []TimeRange{{Start: "09:00", End: "17:00"}}, got.Weekly.Monday.Ranges)
			assert.Nil(t, got.Weekly.Sunday)
			assert.Len(t, got.Overrides, 1)
			assert.Len(t, got.Vacations, 1)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, mondayNineToFive("prov-1")))

	got, err := store.Get(ctx, "prov-1")
	require.NoError(t, err)
	got.Weekly.Monday.Ranges[0].End = "23:00"

	again, err := store.Get(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, "17:00", again.Weekly.Monday.Ranges[0].End)
}

func TestRedisStoreKeyLayout(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client)
	require.NoError(t, store.Put(context.Background(), mondayNineToFive("prov-9")))
	assert.True(t, mr.Exists("availability:window:prov-9"))
}
