package allocation

import (
	"context"

	"github.com/sksmith/inventory-allocation/core"
	"github.com/sksmith/inventory-allocation/core/inventory"
)

type ProductRepository interface {
	GetProductSku(ctx context.Context, skuCode string) (ProductSku, error)
	SaveProductSku(ctx context.Context, product ProductSku) error

	// GetPreOrBackOrderQuantity reads the counter of skuCode. With ForUpdate inside a transaction the counter is
	// held until the transaction ends, so allocations of the sku against its limit run one at a time.
	GetPreOrBackOrderQuantity(ctx context.Context, skuCode string, options ...core.QueryOptions) (int64, error)
	// AddPreOrBackOrderQuantity adds delta to the counter of skuCode, never taking it below zero, and returns
	// the new value.
	AddPreOrBackOrderQuantity(ctx context.Context, skuCode string, delta int64, options ...core.UpdateOptions) (int64, error)
}

// InventoryService is the part of the inventory service allocation depends on.
type InventoryService interface {
	ProcessCommand(ctx context.Context, cmd inventory.Command, check inventory.Check, hooks ...inventory.Hook) (inventory.ExecutionResult, error)
	GetInventory(ctx context.Context, skuCode, warehouseID string) (inventory.Dto, error)
	CommandFactory() inventory.CommandFactory
}

// Notifier asks the search index to refresh an entity.
type Notifier interface {
	AddNotificationForEntityIndexUpdate(ctx context.Context, entityType EntityType, entityID string) error
}

// IdempotencyStore remembers which events were already processed.
type IdempotencyStore interface {
	// SetIfAbsent records key and reports whether it was not recorded before.
	SetIfAbsent(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}
