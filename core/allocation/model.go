// Package allocation turns order lifecycle events into inventory commands. It decides, per product, whether
// stock has to be on hand, may be back-ordered or pre-ordered up to a limit, or is not tracked at all.
package allocation

import (
	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/core/inventory"
)

type Criteria string

const (
	AlwaysAvailable       Criteria = "ALWAYS_AVAILABLE"
	AvailableWhenInStock  Criteria = "AVAILABLE_WHEN_IN_STOCK"
	AvailableForBackOrder Criteria = "AVAILABLE_FOR_BACK_ORDER"
	AvailableForPreOrder  Criteria = "AVAILABLE_FOR_PRE_ORDER"
)

func ParseCriteria(v string) (Criteria, error) {
	switch Criteria(v) {
	case AlwaysAvailable, AvailableWhenInStock, AvailableForBackOrder, AvailableForPreOrder:
		return Criteria(v), nil
	default:
		return "", errors.Errorf("invalid availability criteria %q", v)
	}
}

// PreOrBackOrder reports whether the criteria allows allocating beyond the stock on hand.
func (c Criteria) PreOrBackOrder() bool {
	return c == AvailableForBackOrder || c == AvailableForPreOrder
}

// ProductSku is a value object. It carries the availability settings of a SKU.
type ProductSku struct {
	SkuCode             string   `json:"skuCode"`
	ProductCode         string   `json:"productCode"`
	Criteria            Criteria `json:"availabilityCriteria"`
	PreOrBackOrderLimit int64    `json:"preOrBackOrderLimit"`
}

type EventType string

const (
	OrderPlaced              EventType = "ORDER_PLACED"
	OrderAdjustmentAddSku    EventType = "ORDER_ADJUSTMENT_ADDSKU"
	OrderAdjustmentRemoveSku EventType = "ORDER_ADJUSTMENT_REMOVESKU"
	OrderAdjustmentChangeQty EventType = "ORDER_ADJUSTMENT_CHANGEQTY"
	OrderCancellation        EventType = "ORDER_CANCELLATION"
	ShipmentReleased         EventType = "SHIPMENT_RELEASED"
)

func ParseEventType(v string) (EventType, error) {
	switch EventType(v) {
	case OrderPlaced, OrderAdjustmentAddSku, OrderAdjustmentRemoveSku,
		OrderAdjustmentChangeQty, OrderCancellation, ShipmentReleased:
		return EventType(v), nil
	default:
		return "", errors.Errorf("invalid allocation event type %q", v)
	}
}

// Event is a value object. PreviousQuantity is only read for ORDER_ADJUSTMENT_CHANGEQTY, where Quantity is the
// new quantity of the line.
type Event struct {
	EventID          string    `json:"eventId"`
	EventType        EventType `json:"eventType"`
	SkuCode          string    `json:"skuCode"`
	WarehouseID      string    `json:"warehouseId"`
	Quantity         int64     `json:"quantity"`
	PreviousQuantity int64     `json:"previousQuantity"`
	Originator       string    `json:"originator"`
}

// Result describes what processing an event did. Command is empty when no command was issued.
type Result struct {
	Command       inventory.EventType       `json:"command,omitempty"`
	Execution     inventory.ExecutionResult `json:"execution"`
	Bypassed      bool                      `json:"bypassed"`
	Duplicate     bool                      `json:"duplicate"`
	IndexNotified bool                      `json:"indexNotified"`
}

type EntityType string

const EntityProduct EntityType = "PRODUCT"
