package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

func TestNewContractStore(t *testing.T) {
	store := NewNewContractStore()
	ctx := context.Background()

	rec := &domain.NewContractRecord{ID: "c1", ContractAddress: "0xC0FFEE", CreationBlock: 7}
	ok, err := store.InsertIgnore(ctx, rec)
	if err != nil || !ok {
		t.Fatalf("InsertIgnore: ok=%v err=%v", ok, err)
	}
	ok, err = store.InsertIgnore(ctx, &domain.NewContractRecord{ID: "c2", ContractAddress: "0xc0ffee"})
	if err != nil || ok {
		t.Fatalf("duplicate InsertIgnore: ok=%v err=%v", ok, err)
	}

	n, _ := store.Count(ctx)
	if n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
	got, err := store.GetByAddress(ctx, "0xc0ffee")
	if err != nil {
		t.Fatalf("GetByAddress failed: %v", err)
	}
	if got.CreationBlock != 7 {
		t.Errorf("CreationBlock: got %d, want 7", got.CreationBlock)
	}
}

func TestProgressStore(t *testing.T) {
	store := NewProgressStore()
	ctx := context.Background()

	if _, err := store.GetLastProcessed(ctx, "backfill"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.SetLastProcessed(ctx, "backfill", &storage.Progress{Block: 42, TxIndex: 3}); err != nil {
		t.Fatalf("SetLastProcessed failed: %v", err)
	}
	p, err := store.GetLastProcessed(ctx, "backfill")
	if err != nil {
		t.Fatalf("GetLastProcessed failed: %v", err)
	}
	if p.Block != 42 || p.TxIndex != 3 {
		t.Errorf("unexpected progress %+v", p)
	}
}

func TestLaunchSink_KeepsNewestVersion(t *testing.T) {
	sink := NewLaunchSink()
	ctx := context.Background()

	if err := sink.Publish(ctx, &domain.LaunchSummary{PoolID: "p1", Version: 2, InitialLiquidity: big.NewInt(15)}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := sink.Publish(ctx, &domain.LaunchSummary{PoolID: "p1", Version: 1, InitialLiquidity: big.NewInt(10)}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got, ok := sink.Get("p1")
	if !ok {
		t.Fatal("summary missing")
	}
	if got.InitialLiquidity.Int64() != 15 {
		t.Errorf("older version replaced newer: %s", got.InitialLiquidity)
	}
	if sink.Publishes() != 2 {
		t.Errorf("expected 2 publishes, got %d", sink.Publishes())
	}
}
