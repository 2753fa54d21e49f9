package allocation

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/inventory-allocation/core"
	"github.com/sksmith/inventory-allocation/core/inventory"
)

const idempotencyPrefix = "allocation:"

type Service interface {
	ProcessAllocationEvent(ctx context.Context, event Event) (Result, error)
	IsAvailable(ctx context.Context, skuCode, warehouseID string, qty int64) (bool, error)

	GetProduct(ctx context.Context, skuCode string) (ProductSku, error)
	SaveProduct(ctx context.Context, product ProductSku) error
}

// NewService creates the allocation service. notifier and idempotency may be nil, in which case index
// notifications and duplicate detection are skipped.
func NewService(inv InventoryService, products ProductRepository, rule AvailabilityRule, notifier Notifier, idempotency IdempotencyStore) *service {
	if rule == nil {
		rule = CriteriaRule{}
	}
	return &service{
		inventory:   inv,
		products:    products,
		rule:        rule,
		notifier:    notifier,
		idempotency: idempotency,
	}
}

type service struct {
	inventory   InventoryService
	products    ProductRepository
	rule        AvailabilityRule
	notifier    Notifier
	idempotency IdempotencyStore
}

func (s *service) ProcessAllocationEvent(ctx context.Context, event Event) (result Result, err error) {
	const funcName = "ProcessAllocationEvent"

	log.Info().
		Str("func", funcName).
		Str("eventId", event.EventID).
		Str("eventType", string(event.EventType)).
		Str("sku", event.SkuCode).
		Str("warehouse", event.WarehouseID).
		Int64("quantity", event.Quantity).
		Msg("processing allocation event")

	key, err := inventory.NewKey(event.SkuCode, event.WarehouseID)
	if err != nil {
		return Result{}, err
	}

	product, err := s.products.GetProductSku(ctx, event.SkuCode)
	if err != nil {
		return Result{}, errors.WithMessage(err, "failed to get product sku")
	}

	if product.Criteria == AlwaysAvailable {
		log.Debug().
			Str("func", funcName).
			Str("sku", event.SkuCode).
			Msg("sku is always available, inventory untouched")
		return Result{Bypassed: true}, nil
	}

	cmd, err := s.command(key, event)
	if err != nil || cmd == nil {
		return Result{}, err
	}

	if s.idempotency != nil && event.EventID != "" {
		var first bool
		first, err = s.idempotency.SetIfAbsent(ctx, idempotencyPrefix+event.EventID)
		if err != nil {
			return Result{}, errors.WithMessage(err, "failed to check allocation event idempotency")
		}
		if !first {
			log.Warn().
				Str("func", funcName).
				Str("eventId", event.EventID).
				Msg("allocation event already processed")
			return Result{Duplicate: true}, nil
		}
		defer func() {
			if err != nil {
				s.forget(ctx, event.EventID)
			}
		}()
	}

	var check inventory.Check
	var hooks []inventory.Hook
	var preOrBackOrdered int64
	if cmd.EventType() == inventory.EventAllocate {
		check = func(before inventory.Dto) error {
			return s.rule.Check(product, before, preOrBackOrdered, cmd.Quantity())
		}
	}
	if product.Criteria.PreOrBackOrder() {
		hooks = append(hooks, s.preOrBackOrderHook(product, cmd, &preOrBackOrdered))
	}

	execution, err := s.inventory.ProcessCommand(ctx, cmd, check, hooks...)
	if err != nil {
		return Result{}, err
	}

	result = Result{Command: cmd.EventType(), Execution: execution}
	if execution.CrossedStockBoundary() {
		result.IndexNotified = s.notify(ctx, product)
	}

	return result, nil
}

func (s *service) IsAvailable(ctx context.Context, skuCode, warehouseID string, qty int64) (bool, error) {
	product, err := s.products.GetProductSku(ctx, skuCode)
	if err != nil {
		return false, errors.WithMessage(err, "failed to get product sku")
	}
	if product.Criteria == AlwaysAvailable {
		return true, nil
	}

	dto, err := s.inventory.GetInventory(ctx, skuCode, warehouseID)
	if err != nil {
		return false, err
	}

	var preOrBackOrdered int64
	if product.Criteria.PreOrBackOrder() {
		if preOrBackOrdered, err = s.products.GetPreOrBackOrderQuantity(ctx, skuCode); err != nil {
			return false, errors.WithStack(err)
		}
	}

	err = s.rule.Check(product, dto, preOrBackOrdered, qty)
	if errors.Is(err, inventory.ErrInsufficientInventory) {
		return false, nil
	}
	return err == nil, err
}

func (s *service) GetProduct(ctx context.Context, skuCode string) (ProductSku, error) {
	return s.products.GetProductSku(ctx, skuCode)
}

func (s *service) SaveProduct(ctx context.Context, product ProductSku) error {
	if product.SkuCode == "" {
		return errors.New("sku code is required")
	}
	if _, err := ParseCriteria(string(product.Criteria)); err != nil {
		return err
	}
	if product.PreOrBackOrderLimit < 0 {
		return errors.Wrap(inventory.ErrInvalidQuantity, "pre or back order limit must not be negative")
	}

	log.Info().
		Str("sku", product.SkuCode).
		Str("criteria", string(product.Criteria)).
		Int64("limit", product.PreOrBackOrderLimit).
		Msg("saving product sku")

	return errors.WithStack(s.products.SaveProductSku(ctx, product))
}

// command maps an event to the inventory command it implies. A quantity change of zero implies no command.
func (s *service) command(key inventory.Key, event Event) (inventory.Command, error) {
	factory := s.inventory.CommandFactory()

	switch event.EventType {
	case OrderPlaced, OrderAdjustmentAddSku:
		return factory.Allocate(key, event.Quantity, event.Originator), nil
	case OrderAdjustmentRemoveSku, OrderCancellation:
		return factory.Deallocate(key, event.Quantity, event.Originator), nil
	case ShipmentReleased:
		return factory.Release(key, event.Quantity, event.Originator), nil
	case OrderAdjustmentChangeQty:
		diff := event.Quantity - event.PreviousQuantity
		switch {
		case diff > 0:
			return factory.Allocate(key, diff, event.Originator), nil
		case diff < 0:
			return factory.Deallocate(key, -diff, event.Originator), nil
		default:
			return nil, nil
		}
	default:
		return nil, errors.Errorf("unsupported allocation event type %q", event.EventType)
	}
}

// preOrBackOrderHook runs inside the command's transaction. It locks the sku's pre/back-order counter before
// the inventory level is read, so counter stores the value the check sees, and moves the counter with the
// command before commit.
func (s *service) preOrBackOrderHook(product ProductSku, cmd inventory.Command, counter *int64) inventory.Hook {
	return inventory.Hook{
		Before: func(ctx context.Context, options core.UpdateOptions) error {
			qty, err := s.products.GetPreOrBackOrderQuantity(ctx, product.SkuCode, core.QueryOptions{Tx: options.Tx, ForUpdate: true})
			if err != nil {
				return errors.WithMessage(err, "failed to get pre or back order quantity")
			}
			*counter = qty
			return nil
		},
		After: func(ctx context.Context, execution inventory.ExecutionResult, options core.UpdateOptions) error {
			return s.trackPreOrBackOrder(ctx, product, cmd, execution, options)
		},
	}
}

// trackPreOrBackOrder keeps the quantity allocated beyond stock in line with the command just applied.
func (s *service) trackPreOrBackOrder(ctx context.Context, product ProductSku, cmd inventory.Command, execution inventory.ExecutionResult, options core.UpdateOptions) error {
	var delta int64
	switch cmd.EventType() {
	case inventory.EventAllocate:
		inStock := execution.InventoryBefore.AvailableQuantityInStock
		if inStock < 0 {
			inStock = 0
		}
		delta = cmd.Quantity() - inStock
		if delta <= 0 {
			return nil
		}
	case inventory.EventDeallocate, inventory.EventRelease:
		delta = -cmd.Quantity()
	default:
		return nil
	}

	total, err := s.products.AddPreOrBackOrderQuantity(ctx, product.SkuCode, delta, options)
	if err != nil {
		return errors.WithMessage(err, "failed to update pre or back order quantity")
	}

	log.Debug().
		Str("sku", product.SkuCode).
		Int64("delta", delta).
		Int64("total", total).
		Msg("updated pre or back order quantity")

	return nil
}

func (s *service) notify(ctx context.Context, product ProductSku) bool {
	if s.notifier == nil {
		return false
	}
	productCode := product.ProductCode
	if productCode == "" {
		productCode = product.SkuCode
	}
	if err := s.notifier.AddNotificationForEntityIndexUpdate(ctx, EntityProduct, productCode); err != nil {
		notificationFailures.Inc()
		log.Error().Err(err).
			Str("product", productCode).
			Msg("failed to request index update")
		return false
	}
	return true
}

func (s *service) forget(ctx context.Context, eventID string) {
	if err := s.idempotency.Forget(ctx, idempotencyPrefix+eventID); err != nil {
		log.Warn().Err(err).Str("eventId", eventID).Msg("failed to forget allocation event")
	}
}
