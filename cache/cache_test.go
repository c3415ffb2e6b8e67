package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/amintahir16/lpg-gas-app-sub000/cache"
	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := cache.NewMemoryCheckpointCache()
	ctx := context.Background()

	cp := ledger.Checkpoint{CustomerID: "cust-1", TxCount: 3, Balance: ledger.NewMoney(1500)}
	if err := c.Set(ctx, cp, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.Get(ctx, "cust-1")
	if err != nil || !ok {
		t.Fatalf("expected a hit, ok=%v err=%v", ok, err)
	}
	if got.TxCount != 3 || !got.Balance.Equal(cp.Balance) {
		t.Errorf("checkpoint mangled in cache: %+v", got)
	}

	if err := c.Delete(ctx, "cust-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "cust-1"); ok {
		t.Error("expected a miss after delete")
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c := cache.NewMemoryCheckpointCache()
	ctx := context.Background()

	cp := ledger.Checkpoint{CustomerID: "cust-1", TxCount: 1}
	if err := c.Set(ctx, cp, time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "cust-1"); ok {
		t.Error("expected expiry after TTL")
	}
}

func TestMemoryCache_MissIsNotAnError(t *testing.T) {
	c := cache.NewMemoryCheckpointCache()

	_, ok, err := c.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("miss must not error: %v", err)
	}
	if ok {
		t.Error("expected a miss")
	}
}
