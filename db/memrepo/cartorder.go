package memrepo

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/core"
	"github.com/sksmith/inventory-allocation/core/cartorder"
)

type CartOrderRepo struct {
	mu     sync.Mutex
	orders map[string]cartorder.CartOrder
}

func NewCartOrderRepo() *CartOrderRepo {
	return &CartOrderRepo{orders: make(map[string]cartorder.CartOrder)}
}

func (r *CartOrderRepo) Insert(_ context.Context, order cartorder.CartOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.CartGUID]; ok {
		return errors.WithStack(cartorder.ErrDuplicate)
	}
	r.orders[order.CartGUID] = order
	return nil
}

func (r *CartOrderRepo) GetByCart(_ context.Context, cartGUID string) (cartorder.CartOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[cartGUID]
	if !ok {
		return cartorder.CartOrder{}, errors.WithStack(core.ErrNotFound)
	}
	return order, nil
}
