package session

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestConcurrentRotateSingleWinner drives many rotations of the same
// record in parallel. Exactly one must succeed; every loser must be
// classified as reuse.
func TestConcurrentRotateSingleWinner(t *testing.T) {
	store, _ := newStoreTest(t)
	ctx := context.Background()

	rec := activeRecord(rawID(1), "u1", 1)
	if err := store.Save(ctx, rec, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	const workers = 16

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		reused  int
		others  []error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			var successorRaw [sessionIDRawLen]byte
			successorRaw[0] = 0xF0
			successorRaw[1] = byte(n)
			successorID := base64.RawURLEncoding.EncodeToString(successorRaw[:])

			_, err := store.Rotate(ctx, rec.SessionID, secretHash(1), secretHash(byte(100+n)), successorID, time.Hour)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrRotateReused):
				reused++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}
	if reused != workers-1 {
		t.Fatalf("expected %d reuse losers, got %d (others: %v)", workers-1, reused, others)
	}
	if len(others) != 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
}
