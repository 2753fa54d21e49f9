// Package inventory tracks on-hand and allocated stock per SKU and warehouse. Commands never update the
// inventory row in place; they append signed deltas to a journal, and the current level of a key is its last
// compacted snapshot plus the sum of the journal entries written since.
package inventory

import (
	"time"

	"github.com/pkg/errors"
)

// Key is a value object. It identifies the stock of one SKU held at one warehouse.
type Key struct {
	SkuCode     string `json:"skuCode"`
	WarehouseID string `json:"warehouseId"`
}

func NewKey(skuCode, warehouseID string) (Key, error) {
	if skuCode == "" {
		return Key{}, errors.New("sku code is required")
	}
	if warehouseID == "" {
		return Key{}, errors.New("warehouse id is required")
	}
	return Key{SkuCode: skuCode, WarehouseID: warehouseID}, nil
}

func (k Key) String() string {
	return k.SkuCode + "@" + k.WarehouseID
}

// Inventory is an entity. It is the compacted baseline for a key and is only rewritten by compaction or by the
// direct strategy.
type Inventory struct {
	Key
	QuantityOnHand    int64 `json:"quantityOnHand"`
	AllocatedQuantity int64 `json:"allocatedQuantity"`
	ReservedQuantity  int64 `json:"reservedQuantity"`
	ReorderMinimum    int64 `json:"reorderMinimum"`
	ReorderQuantity   int64 `json:"reorderQuantity"`
}

// Journal is an entity. One entry is appended for every command that passes validation.
type Journal struct {
	ID                     uint64    `json:"id"`
	Key                    Key       `json:"key"`
	QuantityOnHandDelta    int64     `json:"quantityOnHandDelta"`
	AllocatedQuantityDelta int64     `json:"allocatedQuantityDelta"`
	EventType              EventType `json:"eventType"`
	Originator             string    `json:"originator"`
	Created                time.Time `json:"created"`
}

// Audit is an entity, written once alongside each journal entry. Audits outlive compaction.
type Audit struct {
	ID         uint64    `json:"id"`
	JournalID  uint64    `json:"journalId"`
	Key        Key       `json:"key"`
	EventType  EventType `json:"eventType"`
	Quantity   int64     `json:"quantity"`
	Originator string    `json:"originator"`
	Created    time.Time `json:"created"`
}

// Rollup is the sum of the uncompacted journal entries of a key. HighWaterMark is the largest journal id that
// took part in the sum.
type Rollup struct {
	Key                    Key    `json:"key"`
	QuantityOnHandDelta    int64  `json:"quantityOnHandDelta"`
	AllocatedQuantityDelta int64  `json:"allocatedQuantityDelta"`
	Entries                int64  `json:"entries"`
	HighWaterMark          uint64 `json:"highWaterMark"`
}

// Add folds a journal entry into the rollup.
func (r Rollup) Add(j Journal) Rollup {
	r.QuantityOnHandDelta += j.QuantityOnHandDelta
	r.AllocatedQuantityDelta += j.AllocatedQuantityDelta
	r.Entries++
	if j.ID > r.HighWaterMark {
		r.HighWaterMark = j.ID
	}
	return r
}

// Dto is the read model of a key. It is rebuilt on every read and never persisted.
type Dto struct {
	Key
	QuantityOnHand           int64 `json:"quantityOnHand"`
	AllocatedQuantity        int64 `json:"allocatedQuantity"`
	AvailableQuantityInStock int64 `json:"availableQuantityInStock"`
	ReservedQuantity         int64 `json:"reservedQuantity"`
	ReorderMinimum           int64 `json:"reorderMinimum"`
	ReorderQuantity          int64 `json:"reorderQuantity"`
}

// Assemble combines a snapshot with the rollup of the entries written after it.
func Assemble(key Key, snapshot Inventory, rollup Rollup) Dto {
	dto := Dto{
		Key:               key,
		QuantityOnHand:    snapshot.QuantityOnHand + rollup.QuantityOnHandDelta,
		AllocatedQuantity: snapshot.AllocatedQuantity + rollup.AllocatedQuantityDelta,
		ReservedQuantity:  snapshot.ReservedQuantity,
		ReorderMinimum:    snapshot.ReorderMinimum,
		ReorderQuantity:   snapshot.ReorderQuantity,
	}
	dto.AvailableQuantityInStock = dto.QuantityOnHand - dto.AllocatedQuantity
	return dto
}

// Apply returns the level after adding the given delta.
func (d Dto) Apply(delta Delta) Dto {
	d.QuantityOnHand += delta.QuantityOnHand
	d.AllocatedQuantity += delta.AllocatedQuantity
	d.AvailableQuantityInStock = d.QuantityOnHand - d.AllocatedQuantity
	return d
}

// InStock reports whether anything is left to allocate from physical stock.
func (d Dto) InStock() bool {
	return d.AvailableQuantityInStock > 0
}

// Fold returns the snapshot with the rollup added to it.
func (i Inventory) Fold(rollup Rollup) Inventory {
	i.QuantityOnHand += rollup.QuantityOnHandDelta
	i.AllocatedQuantity += rollup.AllocatedQuantityDelta
	return i
}

// LineItem is a value object describing one order line. Allocations holds the quantity allocated to the line
// for each of the order's shipments.
type LineItem struct {
	SkuCode     string  `json:"skuCode"`
	WarehouseID string  `json:"warehouseId"`
	Quantity    int64   `json:"quantity"`
	Allocations []int64 `json:"allocations"`
}

// ExecutionResult is produced once per command execution.
type ExecutionResult struct {
	InventoryBefore   Dto    `json:"inventoryBefore"`
	InventoryAfter    Dto    `json:"inventoryAfter"`
	QuantityProcessed int64  `json:"quantityProcessed"`
	JournalID         uint64 `json:"journalId,omitempty"`
}

// CrossedStockBoundary reports whether the command moved the key in or out of stock.
func (r ExecutionResult) CrossedStockBoundary() bool {
	return r.InventoryBefore.InStock() != r.InventoryAfter.InStock()
}
