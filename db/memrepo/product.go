package memrepo

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/core"
	"github.com/sksmith/inventory-allocation/core/allocation"
)

// ProductRepo keeps product skus and pre/back-order counters. Counter changes made inside a transaction of an
// InventoryRepo are staged and applied when it commits.
type ProductRepo struct {
	mu       sync.Mutex
	products map[string]allocation.ProductSku
	counters map[string]int64
	pending  map[*tx]map[string]int64
	locks    *rowLocks
}

func NewProductRepo() *ProductRepo {
	return &ProductRepo{
		products: make(map[string]allocation.ProductSku),
		counters: make(map[string]int64),
		pending:  make(map[*tx]map[string]int64),
		locks:    newRowLocks(),
	}
}

func (r *ProductRepo) GetProductSku(_ context.Context, skuCode string) (allocation.ProductSku, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[skuCode]
	if !ok {
		return allocation.ProductSku{}, errors.WithStack(core.ErrNotFound)
	}
	return product, nil
}

func (r *ProductRepo) SaveProductSku(_ context.Context, product allocation.ProductSku) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.SkuCode] = product
	return nil
}

func (r *ProductRepo) GetPreOrBackOrderQuantity(_ context.Context, skuCode string, options ...core.QueryOptions) (int64, error) {
	var t *tx
	if len(options) > 0 && options[0].Tx != nil {
		var err error
		if t, err = memTx(options[0].Tx); err != nil {
			return 0, err
		}
		if options[0].ForUpdate {
			r.locks.acquire(t, skuCode)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counter(t, skuCode), nil
}

func (r *ProductRepo) AddPreOrBackOrderQuantity(_ context.Context, skuCode string, delta int64, options ...core.UpdateOptions) (int64, error) {
	if len(options) == 0 || options[0].Tx == nil {
		r.mu.Lock()
		defer r.mu.Unlock()

		total := nonNegative(r.counters[skuCode] + delta)
		r.counters[skuCode] = total
		return total, nil
	}

	t, err := memTx(options[0].Tx)
	if err != nil {
		return 0, err
	}
	r.locks.acquire(t, skuCode)

	r.mu.Lock()
	defer r.mu.Unlock()

	staged, ok := r.pending[t]
	if !ok {
		staged = make(map[string]int64)
		r.pending[t] = staged
		t.onCommit = append(t.onCommit, func() { r.commit(t) })
		t.onClose = append(t.onClose, func() { r.discard(t) })
	}
	total := nonNegative(r.counter(t, skuCode) + delta)
	staged[skuCode] = total
	return total, nil
}

// counter is called with mu held.
func (r *ProductRepo) counter(t *tx, skuCode string) int64 {
	if t != nil {
		if total, ok := r.pending[t][skuCode]; ok {
			return total
		}
	}
	return r.counters[skuCode]
}

func (r *ProductRepo) commit(t *tx) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for skuCode, total := range r.pending[t] {
		r.counters[skuCode] = total
	}
	delete(r.pending, t)
}

func (r *ProductRepo) discard(t *tx) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, t)
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
