package memrepo

import (
	"context"
	"testing"

	"github.com/sksmith/inventory-allocation/core"
)

func TestCounterStagedInTransaction(t *testing.T) {
	ctx := context.Background()
	inv := NewInventoryRepo()
	products := NewProductRepo()

	tests := []struct {
		name   string
		commit bool
		want   int64
	}{
		{name: "committed", commit: true, want: 6},
		{name: "rolled back", commit: false, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skuCode := "sku-" + tt.name
			tx, _ := inv.BeginTransaction(ctx)

			if _, err := products.GetPreOrBackOrderQuantity(ctx, skuCode, core.QueryOptions{Tx: tx, ForUpdate: true}); err != nil {
				t.Fatal(err)
			}
			total, err := products.AddPreOrBackOrderQuantity(ctx, skuCode, 6, core.UpdateOptions{Tx: tx})
			if err != nil {
				t.Fatal(err)
			}
			if total != 6 {
				t.Errorf("unexpected staged total got=%d want=6", total)
			}
			if inTx, _ := products.GetPreOrBackOrderQuantity(ctx, skuCode, core.QueryOptions{Tx: tx}); inTx != 6 {
				t.Errorf("transaction should see its own change got=%d", inTx)
			}
			if outside, _ := products.GetPreOrBackOrderQuantity(ctx, skuCode); outside != 0 {
				t.Errorf("uncommitted change visible outside the transaction got=%d", outside)
			}

			if tt.commit {
				err = tx.Commit(ctx)
			} else {
				err = tx.Rollback(ctx)
			}
			if err != nil {
				t.Fatal(err)
			}

			got, _ := products.GetPreOrBackOrderQuantity(ctx, skuCode)
			if got != tt.want {
				t.Errorf("unexpected counter got=%d want=%d", got, tt.want)
			}

			// the lock must be free again
			next, _ := inv.BeginTransaction(ctx)
			if _, err = products.AddPreOrBackOrderQuantity(ctx, skuCode, -10, core.UpdateOptions{Tx: next}); err != nil {
				t.Fatal(err)
			}
			_ = next.Commit(ctx)
			if got, _ = products.GetPreOrBackOrderQuantity(ctx, skuCode); got != 0 {
				t.Errorf("counter must not go below zero got=%d", got)
			}
		})
	}
}
