package memrepo

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/core"
	"github.com/sksmith/inventory-allocation/core/inventory"
)

var key = inventory.Key{SkuCode: "sku1", WarehouseID: "wh1"}

func journal(qty, allocated int64) *inventory.Journal {
	return &inventory.Journal{Key: key, QuantityOnHandDelta: qty, AllocatedQuantityDelta: allocated, EventType: inventory.EventAdjust}
}

func TestStagedWritesHiddenUntilCommit(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepo()

	tx, err := repo.BeginTransaction(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err = repo.SaveJournal(ctx, journal(10, 0), core.UpdateOptions{Tx: tx}); err != nil {
		t.Fatal(err)
	}
	if err = repo.SaveInventory(ctx, inventory.Inventory{Key: key, QuantityOnHand: 5}, core.UpdateOptions{Tx: tx}); err != nil {
		t.Fatal(err)
	}

	inTx, _ := repo.GetRollup(ctx, key, core.QueryOptions{Tx: tx})
	if inTx.QuantityOnHandDelta != 10 {
		t.Errorf("transaction should see its own entry got=%d", inTx.QuantityOnHandDelta)
	}
	outside, _ := repo.GetRollup(ctx, key)
	if outside.Entries != 0 {
		t.Errorf("uncommitted entry visible outside the transaction entries=%d", outside.Entries)
	}
	if _, err = repo.GetInventory(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("uncommitted snapshot visible outside the transaction err=%v", err)
	}

	if err = tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	after, _ := repo.GetRollup(ctx, key)
	if after.QuantityOnHandDelta != 10 || after.Entries != 1 {
		t.Errorf("unexpected rollup after commit %+v", after)
	}
	if err = tx.Commit(ctx); err == nil {
		t.Error("expected error committing a closed transaction")
	}
}

func TestRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepo()

	tx, _ := repo.BeginTransaction(ctx)
	_ = repo.SaveJournal(ctx, journal(3, 0), core.UpdateOptions{Tx: tx})
	_ = repo.SaveAudit(ctx, &inventory.Audit{Key: key, Quantity: 3}, core.UpdateOptions{Tx: tx})
	if err := tx.Rollback(ctx); err != nil {
		t.Fatal(err)
	}

	if repo.JournalLen() != 0 {
		t.Errorf("rolled back journal entry was kept")
	}
	audits, _ := repo.GetAudits(ctx, key, 10, 0)
	if len(audits) != 0 {
		t.Errorf("rolled back audit was kept")
	}
}

func TestDeleteJournalUpTo(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepo()
	other := inventory.Key{SkuCode: "sku2", WarehouseID: "wh1"}

	_ = repo.SaveJournal(ctx, journal(10, 0))
	_ = repo.SaveJournal(ctx, journal(0, 4))
	_ = repo.SaveJournal(ctx, &inventory.Journal{Key: other, QuantityOnHandDelta: 7})
	late := journal(0, 1)
	_ = repo.SaveJournal(ctx, late)

	removed, err := repo.DeleteJournalUpTo(ctx, key, 2)
	if err != nil {
		t.Fatal(err)
	}
	if removed.QuantityOnHandDelta != 10 || removed.AllocatedQuantityDelta != 4 || removed.Entries != 2 || removed.HighWaterMark != 2 {
		t.Errorf("unexpected removed rollup %+v", removed)
	}

	left, _ := repo.GetJournal(ctx, key, 10, 0)
	if len(left) != 1 || left[0].ID != late.ID {
		t.Errorf("expected only the entry above the high water mark to survive got=%+v", left)
	}
	keys, _ := repo.GetJournaledKeys(ctx, 10)
	if len(keys) != 2 {
		t.Errorf("expected both keys to still have entries got=%v", keys)
	}
}

func TestForeignTransaction(t *testing.T) {
	ctx := context.Background()
	a, b := NewInventoryRepo(), NewInventoryRepo()

	tx, _ := a.BeginTransaction(ctx)
	err := b.SaveJournal(ctx, journal(1, 0), core.UpdateOptions{Tx: tx})
	if !errors.Is(err, ErrForeignTx) {
		t.Errorf("expected ErrForeignTx got=%v", err)
	}
}

func TestCompactionKeepsEntriesCommittedMeanwhile(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepo()

	txA, _ := repo.BeginTransaction(ctx)
	if err := repo.SaveJournal(ctx, journal(0, 7), core.UpdateOptions{Tx: txA}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveJournal(ctx, journal(0, 3)); err != nil {
		t.Fatal(err)
	}

	txC, _ := repo.BeginTransaction(ctx)
	snapshot, err := repo.LockInventory(ctx, key, core.UpdateOptions{Tx: txC})
	if err != nil {
		t.Fatal(err)
	}
	rollup, _ := repo.GetRollup(ctx, key, core.QueryOptions{Tx: txC})
	if rollup.HighWaterMark != 2 {
		t.Fatalf("unexpected high water mark got=%d want=2", rollup.HighWaterMark)
	}
	folded, err := repo.DeleteJournalUpTo(ctx, key, rollup.HighWaterMark, core.UpdateOptions{Tx: txC})
	if err != nil {
		t.Fatal(err)
	}
	if folded.AllocatedQuantityDelta != 3 || folded.Entries != 1 {
		t.Fatalf("unexpected folded rollup %+v", folded)
	}
	if err = repo.SaveInventory(ctx, snapshot.Fold(folded), core.UpdateOptions{Tx: txC}); err != nil {
		t.Fatal(err)
	}

	if err = txA.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err = txC.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	inv, left, err := repo.GetLevel(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if inv.AllocatedQuantity != 3 || left.AllocatedQuantityDelta != 7 || left.Entries != 1 {
		t.Errorf("unexpected level snapshot=%+v rollup=%+v", inv, left)
	}
	if total := inv.AllocatedQuantity + left.AllocatedQuantityDelta; total != 10 {
		t.Errorf("allocated lost by compaction got=%d want=10", total)
	}
}

func TestLockInventoryHeldUntilClose(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepo()

	first, _ := repo.BeginTransaction(ctx)
	if _, err := repo.LockInventory(ctx, key, core.UpdateOptions{Tx: first}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveInventory(ctx, inventory.Inventory{Key: key, QuantityOnHand: 4}, core.UpdateOptions{Tx: first}); err != nil {
		t.Fatal(err)
	}

	got := make(chan inventory.Inventory)
	go func() {
		second, _ := repo.BeginTransaction(ctx)
		inv, err := repo.LockInventory(ctx, key, core.UpdateOptions{Tx: second})
		if err != nil {
			t.Error(err)
		}
		_ = second.Rollback(ctx)
		got <- inv
	}()

	select {
	case inv := <-got:
		t.Fatalf("lock was granted while held, read %+v", inv)
	case <-time.After(50 * time.Millisecond):
	}

	if err := first.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case inv := <-got:
		if inv.QuantityOnHand != 4 {
			t.Errorf("waiting transaction must read the committed snapshot got=%+v", inv)
		}
	case <-time.After(time.Second):
		t.Fatal("lock not released on commit")
	}
}

func TestGetLevelZeroBaseline(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepo()
	_ = repo.SaveJournal(ctx, journal(5, 1))

	inv, rollup, err := repo.GetLevel(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if inv != (inventory.Inventory{Key: key}) {
		t.Errorf("expected zero baseline got=%+v", inv)
	}
	if rollup.QuantityOnHandDelta != 5 || rollup.AllocatedQuantityDelta != 1 {
		t.Errorf("unexpected rollup %+v", rollup)
	}
}
