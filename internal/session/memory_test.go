package session

import (
	"testing"
	"time"

	"github.com/bissquit/account-garden/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestMemoryStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.Now
	return store, clock
}

func TestMemoryStore_SaveGetDelete(t *testing.T) {
	store, _ := newTestMemoryStore()
	ctx := t.Context()

	rec := &Record{User: domain.Identity{UserID: 1, Email: "alice@x.com", Role: domain.RoleUser}}
	require.NoError(t, store.Save(ctx, "s1", rec, time.Hour))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, rec.User, got.User)

	got.User.Email = "mutated@x.com"
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", again.User.Email)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store, clock := newTestMemoryStore()
	ctx := t.Context()

	require.NoError(t, store.Save(ctx, "s1", &Record{}, time.Minute))
	require.NoError(t, store.PutFlash(ctx, "s2", Flash{Success: "hi"}, time.Minute))

	clock.Advance(59 * time.Second)
	_, err := store.Get(ctx, "s1")
	assert.NoError(t, err)

	clock.Advance(time.Second)
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	flash, err := store.TakeFlash(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, flash.IsEmpty())
}

func TestMemoryStore_TakeFlashOnce(t *testing.T) {
	store, _ := newTestMemoryStore()
	ctx := t.Context()

	require.NoError(t, store.PutFlash(ctx, "s1", Flash{Error: "boom"}, time.Minute))

	flash, err := store.TakeFlash(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "boom", flash.Error)

	flash, err = store.TakeFlash(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, flash.IsEmpty())

	flash, err = store.TakeFlash(ctx, "unknown")
	require.NoError(t, err)
	assert.True(t, flash.IsEmpty())
}

func TestMemoryStore_Sweep(t *testing.T) {
	store, clock := newTestMemoryStore()
	ctx := t.Context()

	require.NoError(t, store.Save(ctx, "short", &Record{}, time.Minute))
	require.NoError(t, store.Save(ctx, "long", &Record{}, time.Hour))
	require.NoError(t, store.PutFlash(ctx, "flash", Flash{Success: "ok"}, time.Minute))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, store.Sweep())

	_, err := store.Get(ctx, "long")
	assert.NoError(t, err)
}
