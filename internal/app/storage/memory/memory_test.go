package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrovia/backend/internal/app/storage"
)

func TestDeductCreditsIsAtomic(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.GrantCredits(ctx, "user-1", 5, "seed")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.DeductCredits(ctx, "user-1", 1, "race", "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, refused int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, storage.ErrInsufficientBalance):
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 5, ok, "exactly the funded deductions should succeed")
	require.Equal(t, 15, refused)

	balance, err := store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), balance.Balance)

	// One grant plus one ledger entry per successful deduction.
	txs, err := store.ListTransactions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, txs, 6)
}

func TestDeductCreditsWithoutBalance(t *testing.T) {
	store := New()

	_, err := store.DeductCredits(context.Background(), "user-1", 1, "usage", "")
	require.ErrorIs(t, err, storage.ErrInsufficientBalance)
}

func TestIdentityLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	store.AddIdentity("user-1", "token-1")

	userID, err := store.ResolveIdentity(ctx, "token-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)

	require.NoError(t, store.DeleteIdentity(ctx, "user-1"))
	require.False(t, store.HasIdentity("user-1"))

	_, err = store.ResolveIdentity(ctx, "token-1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
