package allocation

import (
	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/core/inventory"
)

// AvailabilityRule decides whether qty more units of a product may be allocated from the given level.
// preOrBackOrdered is the quantity already allocated beyond stock for the SKU.
type AvailabilityRule interface {
	Check(product ProductSku, before inventory.Dto, preOrBackOrdered, qty int64) error
}

// CriteriaRule applies the product's availability criteria.
type CriteriaRule struct{}

func (CriteriaRule) Check(product ProductSku, before inventory.Dto, preOrBackOrdered, qty int64) error {
	switch product.Criteria {
	case AlwaysAvailable:
		return nil
	case AvailableWhenInStock:
		if qty <= before.AvailableQuantityInStock {
			return nil
		}
		return &inventory.InsufficientInventoryError{
			Key:       before.Key,
			Requested: qty,
			Available: before.AvailableQuantityInStock,
			Reason:    "not enough stock",
		}
	case AvailableForBackOrder, AvailableForPreOrder:
		available := before.AvailableQuantityInStock + (product.PreOrBackOrderLimit - preOrBackOrdered)
		if qty <= available {
			return nil
		}
		return &inventory.InsufficientInventoryError{
			Key:       before.Key,
			Requested: qty,
			Available: available,
			Reason:    "exceeds stock and remaining " + string(product.Criteria) + " limit",
		}
	default:
		return errors.Errorf("sku %s has unknown availability criteria %q", product.SkuCode, product.Criteria)
	}
}

// RuleFunc adapts a function to AvailabilityRule.
type RuleFunc func(product ProductSku, before inventory.Dto, preOrBackOrdered, qty int64) error

func (f RuleFunc) Check(product ProductSku, before inventory.Dto, preOrBackOrdered, qty int64) error {
	return f(product, before, preOrBackOrdered, qty)
}
