package state

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract checks the behaviour every backend must share.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	alice := Key{ChatID: 100, UserID: 1}
	bob := Key{ChatID: 100, UserID: 2}

	t.Run("unknown key is idle and empty", func(t *testing.T) {
		st, err := store.GetState(ctx, Key{ChatID: 9, UserID: 9})
		require.NoError(t, err)
		assert.Equal(t, StateIdle, st)

		data, err := store.GetData(ctx, Key{ChatID: 9, UserID: 9})
		require.NoError(t, err)
		assert.NotNil(t, data)
		assert.Empty(t, data)
	})

	t.Run("state round trip", func(t *testing.T) {
		require.NoError(t, store.SetState(ctx, alice, State("signup.name")))
		st, err := store.GetState(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, State("signup.name"), st)
	})

	t.Run("update merges values", func(t *testing.T) {
		require.NoError(t, store.UpdateData(ctx, alice, map[string]any{"signup:name": "Alice"}))
		require.NoError(t, store.UpdateData(ctx, alice, map[string]any{"signup:age": 30}))

		data, err := store.GetData(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "Alice", data["signup:name"])
		assert.Equal(t, "30", fmt.Sprint(data["signup:age"]), "numbers may come back as json.Number")

		st, err := store.GetState(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, State("signup.name"), st, "data writes keep the state")
	})

	t.Run("keys are independent", func(t *testing.T) {
		st, err := store.GetState(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, StateIdle, st)

		data, err := store.GetData(ctx, bob)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("set data replaces the bag", func(t *testing.T) {
		require.NoError(t, store.SetData(ctx, alice, map[string]any{"signup:email": "a@example.com"}))
		data, err := store.GetData(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"signup:email": "a@example.com"}, data)

		st, err := store.GetState(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, State("signup.name"), st)
	})

	t.Run("reset keeping data", func(t *testing.T) {
		require.NoError(t, store.Reset(ctx, alice, true))
		st, err := store.GetState(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, StateIdle, st)

		data, err := store.GetData(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", data["signup:email"])
	})

	t.Run("reset dropping data", func(t *testing.T) {
		require.NoError(t, store.SetState(ctx, alice, State("signup.age")))
		require.NoError(t, store.Reset(ctx, alice, false))

		st, err := store.GetState(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, StateIdle, st)

		data, err := store.GetData(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, data)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	runStoreContract(t, store)
}

func TestMemoryStore_Closed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, err := store.GetState(context.Background(), Key{ChatID: 1, UserID: 1})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.SetState(context.Background(), Key{ChatID: 1, UserID: 1}, "x"), ErrClosed)
}

func TestMemoryStore_GetDataReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := Key{ChatID: 1, UserID: 1}
	require.NoError(t, store.UpdateData(ctx, key, map[string]any{"a": "b"}))

	data, err := store.GetData(ctx, key)
	require.NoError(t, err)
	data["a"] = "mutated"

	again, err := store.GetData(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "b", again["a"])
}

func TestRedisStore_Contract(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := NewRedisStore(backend.NewClient(&backend.Options{Addr: mr.Addr()}))
	defer store.Close()
	runStoreContract(t, store)
}

func TestRedisStore_TTLAndPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := NewRedisStore(
		backend.NewClient(&backend.Options{Addr: mr.Addr()}),
		WithRedisTTL(time.Minute),
		WithRedisPrefix("test:"),
	)
	defer store.Close()

	ctx := context.Background()
	key := Key{ChatID: -5, UserID: 7}
	require.NoError(t, store.SetState(ctx, key, State("signup.name")))

	assert.True(t, mr.Exists("test:session:-5:7"))
	assert.Equal(t, time.Minute, mr.TTL("test:session:-5:7"))

	mr.FastForward(2 * time.Minute)
	st, err := store.GetState(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)
}

func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("TGFORMS_TEST_DSN")
	if dsn == "" {
		t.Skip("TGFORMS_TEST_DSN not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS form_sessions (
		chat_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		state TEXT NOT NULL DEFAULT 'idle',
		data JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (chat_id, user_id)
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM form_sessions WHERE chat_id IN (9, 100)`)
	require.NoError(t, err)

	runStoreContract(t, NewPostgresStore(db))
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "-100:42", Key{ChatID: -100, UserID: 42}.String())
}

func TestRedisStore_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	store := DialRedis(mr.Addr(), "", 0)
	defer store.Close()
	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
