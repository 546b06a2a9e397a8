package idempotency

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(4)

	res, err := store.Reserve(ctx, "k", "fp", fixedTime, time.Minute)
	if err != nil || res.State != ReservationStateNew {
		t.Fatalf("expected new reservation, got %v %v", res.State, err)
	}
	res, err = store.Reserve(ctx, "k", "fp", fixedTime, time.Minute)
	if err != nil || res.State != ReservationStatePending {
		t.Fatalf("expected pending reservation, got %v %v", res.State, err)
	}
	if _, err := store.Reserve(ctx, "k", "other", fixedTime, time.Minute); !errors.Is(err, ErrFingerprintMismatch) {
		t.Fatalf("expected fingerprint mismatch, got %v", err)
	}

	header := http.Header{"Content-Type": {"application/json"}, "Content-Length": {"2"}}
	if err := store.SaveResponse(ctx, "k", "fp", Response{Status: http.StatusOK, Headers: header, Body: []byte("{}")}, fixedTime, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err = store.Reserve(ctx, "k", "fp", fixedTime.Add(30*time.Second), time.Minute)
	if err != nil || res.State != ReservationStateCompleted {
		t.Fatalf("expected completed reservation, got %v %v", res.State, err)
	}
	if _, ok := res.Record.ResponseHeaders["Content-Length"]; ok {
		t.Fatalf("hop-by-hop headers must not be stored")
	}
	if string(res.Record.ResponseBody) != "{}" {
		t.Fatalf("unexpected body %q", res.Record.ResponseBody)
	}

	res, err = store.Reserve(ctx, "k", "fp", fixedTime.Add(2*time.Minute), time.Minute)
	if err != nil || res.State != ReservationStateNew {
		t.Fatalf("expected expired record to be reserved again, got %v %v", res.State, err)
	}
}

func TestMemoryStore_ReleaseIgnoresOtherFingerprints(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(4)

	if _, err := store.Reserve(ctx, "k", "fp", fixedTime, time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	_ = store.Release(ctx, "k", "other")
	if store.Len() != 1 {
		t.Fatalf("expected record to survive a foreign release")
	}
	_ = store.Release(ctx, "k", "fp")
	if store.Len() != 0 {
		t.Fatalf("expected record to be released")
	}
}

func TestMemoryStore_CleanupExpiredAndCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	for i, key := range []string{"a", "b", "c", "d"} {
		if _, err := store.Reserve(ctx, key, "fp", fixedTime.Add(time.Duration(i)*time.Minute), time.Minute); err != nil {
			t.Fatalf("reserve %s: %v", key, err)
		}
	}
	if store.Len() != 3 {
		t.Fatalf("expected capacity to bound the store, got %d", store.Len())
	}

	removed, err := store.CleanupExpired(ctx, fixedTime.Add(3*time.Minute), 1)
	if err != nil || removed != 1 {
		t.Fatalf("expected one removal under the limit, got %d %v", removed, err)
	}
	removed, err = store.CleanupExpired(ctx, fixedTime.Add(3*time.Minute), 0)
	if err != nil || removed != 1 {
		t.Fatalf("expected the remaining expired record to be removed, got %d %v", removed, err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected only the live record to remain, got %d", store.Len())
	}
}
