package prodrepo_test

import (
	"context"
	"testing"

	"github.com/sksmith/inventory-allocation/core/allocation"
	"github.com/sksmith/inventory-allocation/db/prodrepo"
)

type countingRepo struct {
	allocation.ProductRepository
	products map[string]allocation.ProductSku
	reads    int
}

func (r *countingRepo) GetProductSku(_ context.Context, skuCode string) (allocation.ProductSku, error) {
	r.reads++
	return r.products[skuCode], nil
}

func (r *countingRepo) SaveProductSku(_ context.Context, product allocation.ProductSku) error {
	r.products[product.SkuCode] = product
	return nil
}

func TestCachedRepo(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{products: map[string]allocation.ProductSku{
		"sku-1": {SkuCode: "sku-1", Criteria: allocation.AvailableWhenInStock},
	}}

	cached, err := prodrepo.NewCachedRepo(repo, 8)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		p, err := cached.GetProductSku(ctx, "sku-1")
		if err != nil {
			t.Fatal(err)
		}
		if p.Criteria != allocation.AvailableWhenInStock {
			t.Errorf("unexpected criteria got=%s", p.Criteria)
		}
	}
	if repo.reads != 1 {
		t.Errorf("unexpected reads got=%d want=1", repo.reads)
	}

	if err := cached.SaveProductSku(ctx, allocation.ProductSku{SkuCode: "sku-1", Criteria: allocation.AlwaysAvailable}); err != nil {
		t.Fatal(err)
	}
	p, err := cached.GetProductSku(ctx, "sku-1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Criteria != allocation.AlwaysAvailable {
		t.Errorf("cache served a stale product got=%s", p.Criteria)
	}
	if repo.reads != 1 {
		t.Errorf("unexpected reads got=%d want=1", repo.reads)
	}
}

func TestNewCachedRepoRejectsBadSize(t *testing.T) {
	if _, err := prodrepo.NewCachedRepo(&countingRepo{}, 0); err == nil {
		t.Errorf("expected error, got none")
	}
}
