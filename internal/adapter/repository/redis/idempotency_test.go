package redis

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestCheckAndSetFirstClaim(t *testing.T) {
	client, _ := newTestRedisClient(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, existing, err := store.CheckAndSet(ctx, "dep-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("check and set failed: %v", err)
	}
	if exists {
		t.Fatalf("expected fresh key to be claimable")
	}
	if existing != nil {
		t.Fatalf("expected no existing value, got %q", existing)
	}
}

func TestCheckAndSetSecondRequestSeesPlaceholder(t *testing.T) {
	client, _ := newTestRedisClient(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "dep-1", nil, time.Minute); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	exists, existing, err := store.CheckAndSet(ctx, "dep-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	if !exists {
		t.Fatalf("expected duplicate submission to be detected")
	}
	if !bytes.Equal(existing, []byte("processing")) {
		t.Fatalf("expected processing placeholder, got %q", existing)
	}
}

func TestUpdateReplacesPlaceholderWithResponse(t *testing.T) {
	client, _ := newTestRedisClient(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "dep-1", nil, time.Minute); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	response := []byte(`{"id":"txn-1","status":"approved"}`)
	if err := store.Update(ctx, "dep-1", response, time.Minute); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	exists, existing, err := store.CheckAndSet(ctx, "dep-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("replay check failed: %v", err)
	}
	if !exists {
		t.Fatalf("expected key to exist after update")
	}
	if !bytes.Equal(existing, response) {
		t.Fatalf("expected stored response to replay, got %q", existing)
	}
}

func TestCheckAndSetExpiredKeyIsClaimable(t *testing.T) {
	client, mr := newTestRedisClient(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "dep-1", []byte("done"), time.Minute); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	exists, _, err := store.CheckAndSet(ctx, "dep-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("check after expiry failed: %v", err)
	}
	if exists {
		t.Fatalf("expected expired key to be claimable again")
	}
}
