package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryMarkGenerating_SingleWinner(t *testing.T) {
	store := NewMemoryStore()
	a := NewMemory(store)
	b := NewMemory(store)
	ctx := t.Context()

	gotA, err := a.TryMarkGenerating(ctx, "naksir:cache:predictions:{fixture=7}")
	require.NoError(t, err)
	gotB, err := b.TryMarkGenerating(ctx, "naksir:cache:predictions:{fixture=7}")
	require.NoError(t, err)

	assert.True(t, gotA)
	assert.False(t, gotB, "second handle must lose the claim")
}

func TestTryMarkGenerating_ReclaimsFailedRow(t *testing.T) {
	store := NewMemoryStore()
	m := NewMemory(store)
	ctx := t.Context()
	const key = "naksir:cache:predictions:{fixture=8}"

	got, err := m.TryMarkGenerating(ctx, key)
	require.NoError(t, err)
	require.True(t, got)
	require.NoError(t, m.SaveFailed(ctx, key, "model unavailable"))

	got, err = m.TryMarkGenerating(ctx, key)
	require.NoError(t, err)
	assert.True(t, got, "a failed row is reclaimable")

	rec, err := m.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusGenerating, rec.Status)
	assert.Empty(t, rec.Error, "reclaim clears the previous failure")
}

func TestSaveOK_RoundTrip(t *testing.T) {
	m := NewMemory(NewMemoryStore())
	ctx := t.Context()
	const key = "naksir:cache:predictions:{fixture=9}"
	payload := json.RawMessage(`{"verdict":"home win"}`)

	got, err := m.TryMarkGenerating(ctx, key)
	require.NoError(t, err)
	require.True(t, got)
	require.NoError(t, m.SaveOK(ctx, key, payload))

	rec, err := m.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusReady, rec.Status)
	assert.JSONEq(t, string(payload), string(rec.Payload))
}

func TestGet_MissingKey(t *testing.T) {
	m := NewMemory(NewMemoryStore())

	rec, err := m.Get(t.Context(), "naksir:cache:predictions:{fixture=404}")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestWaitForReady_SeesOwnerResult(t *testing.T) {
	store := NewMemoryStore()
	owner := NewMemory(store)
	waiter := NewMemory(store)
	ctx := t.Context()
	const key = "naksir:cache:predictions:{fixture=10}"

	got, err := owner.TryMarkGenerating(ctx, key)
	require.NoError(t, err)
	require.True(t, got)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = owner.SaveOK(context.Background(), key, json.RawMessage(`{"verdict":"draw"}`))
	}()

	rec, err := waiter.WaitForReady(ctx, key, 3*time.Second)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusReady, rec.Status)
}

func TestWaitForReady_LapsedBudget(t *testing.T) {
	store := NewMemoryStore()
	m := NewMemory(store)
	ctx := t.Context()
	const key = "naksir:cache:predictions:{fixture=11}"

	got, err := m.TryMarkGenerating(ctx, key)
	require.NoError(t, err)
	require.True(t, got)

	rec, err := NewMemory(store).WaitForReady(ctx, key, 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusGenerating, rec.Status, "the last observed row comes back on timeout")
}
