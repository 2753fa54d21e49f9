package inventory

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/inventory-allocation/core"
)

const compactionBatchSize = 100

func NewService(repo Repository, facade *Facade, q Queue) *service {
	return &service{
		repo:    repo,
		facade:  facade,
		queue:   q,
		factory: NewCommandFactory(),
	}
}

// Hook takes part in the transaction of a command. Before runs ahead of the command and may lock rows its check
// depends on. After runs once the command is applied. An error from either rolls the command back.
type Hook struct {
	Before func(ctx context.Context, options core.UpdateOptions) error
	After  func(ctx context.Context, result ExecutionResult, options core.UpdateOptions) error
}

type Service interface {
	ProcessCommand(ctx context.Context, cmd Command, check Check, hooks ...Hook) (ExecutionResult, error)
	CommandFactory() CommandFactory

	CreateInventory(ctx context.Context, inventory Inventory) error
	GetInventory(ctx context.Context, skuCode, warehouseID string) (Dto, error)
	IsSelfAllocationSufficient(ctx context.Context, item LineItem, shipmentIndex int) (bool, error)

	GetJournal(ctx context.Context, key Key, limit, offset int) ([]Journal, error)
	GetAudits(ctx context.Context, key Key, limit, offset int) ([]Audit, error)

	Compact(ctx context.Context, key Key) (Inventory, error)
	CompactAll(ctx context.Context) (int, error)
}

type service struct {
	repo    Repository
	facade  *Facade
	queue   Queue
	factory CommandFactory
}

func (s *service) CommandFactory() CommandFactory {
	return s.factory
}

func (s *service) ProcessCommand(ctx context.Context, cmd Command, check Check, hooks ...Hook) (result ExecutionResult, err error) {
	const funcName = "ProcessCommand"

	key := cmd.Key()
	log.Info().
		Str("func", funcName).
		Str("sku", key.SkuCode).
		Str("warehouse", key.WarehouseID).
		Str("eventType", string(cmd.EventType())).
		Int64("quantity", cmd.Quantity()).
		Str("originator", cmd.Originator()).
		Msg("processing inventory command")

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return ExecutionResult{}, errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	options := core.UpdateOptions{Tx: tx}
	for _, hook := range hooks {
		if hook.Before == nil {
			continue
		}
		if err = hook.Before(ctx, options); err != nil {
			return ExecutionResult{}, err
		}
	}

	result, err = s.facade.Execute(ctx, cmd, check, options)
	if err != nil {
		return ExecutionResult{}, err
	}

	for _, hook := range hooks {
		if hook.After == nil {
			continue
		}
		if err = hook.After(ctx, result, options); err != nil {
			return ExecutionResult{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return ExecutionResult{}, errors.WithMessage(err, "failed to commit inventory command")
	}

	s.publishInventory(ctx, result.InventoryAfter)

	return result, nil
}

func (s *service) CreateInventory(ctx context.Context, inventory Inventory) (err error) {
	const funcName = "CreateInventory"

	if _, err = NewKey(inventory.SkuCode, inventory.WarehouseID); err != nil {
		return err
	}
	if inventory.QuantityOnHand < 0 || inventory.AllocatedQuantity < 0 || inventory.ReservedQuantity < 0 {
		return errors.Wrap(ErrInvalidQuantity, "inventory quantities must not be negative")
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	existing, err := s.repo.GetInventory(ctx, inventory.Key, core.QueryOptions{Tx: tx, ForUpdate: true})
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return errors.WithStack(err)
	}
	if err == nil && existing.SkuCode != "" {
		log.Debug().
			Str("func", funcName).
			Str("sku", inventory.SkuCode).
			Str("warehouse", inventory.WarehouseID).
			Msg("inventory already exists")
		err = nil
		return tx.Commit(ctx)
	}

	log.Info().
		Str("func", funcName).
		Str("sku", inventory.SkuCode).
		Str("warehouse", inventory.WarehouseID).
		Int64("quantityOnHand", inventory.QuantityOnHand).
		Msg("creating inventory")

	if err = s.repo.SaveInventory(ctx, inventory, core.UpdateOptions{Tx: tx}); err != nil {
		return errors.WithStack(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (s *service) GetInventory(ctx context.Context, skuCode, warehouseID string) (Dto, error) {
	const funcName = "GetInventory"

	log.Debug().
		Str("func", funcName).
		Str("sku", skuCode).
		Str("warehouse", warehouseID).
		Msg("getting inventory")

	key, err := NewKey(skuCode, warehouseID)
	if err != nil {
		return Dto{}, err
	}

	return s.facade.GetInventory(ctx, key)
}

// IsSelfAllocationSufficient reports whether the shipment's allocation fits in the quantity on hand for the
// item's sku and warehouse. The comparison is against the whole quantity on hand, not against what is left
// after the allocations of other orders, because the shipment's own units are part of the allocated quantity.
func (s *service) IsSelfAllocationSufficient(ctx context.Context, item LineItem, shipmentIndex int) (bool, error) {
	if shipmentIndex < 0 || shipmentIndex >= len(item.Allocations) {
		return false, errors.Errorf("shipment index %d out of range for sku %s", shipmentIndex, item.SkuCode)
	}

	dto, err := s.GetInventory(ctx, item.SkuCode, item.WarehouseID)
	if err != nil {
		return false, err
	}

	return item.Allocations[shipmentIndex] <= dto.QuantityOnHand, nil
}

func (s *service) GetJournal(ctx context.Context, key Key, limit, offset int) ([]Journal, error) {
	journal, err := s.repo.GetJournal(ctx, key, limit, offset)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return journal, nil
}

func (s *service) GetAudits(ctx context.Context, key Key, limit, offset int) ([]Audit, error) {
	audits, err := s.repo.GetAudits(ctx, key, limit, offset)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return audits, nil
}

// Compact folds the journal entries of key into its snapshot and removes them. Only entries up to the
// high-water mark read under the snapshot lock are folded, so entries appended meanwhile are left for the next
// run. Compactions of the same key run one at a time.
func (s *service) Compact(ctx context.Context, key Key) (snapshot Inventory, err error) {
	const funcName = "Compact"

	pending, err := s.repo.GetRollup(ctx, key)
	if err != nil {
		return Inventory{}, errors.WithStack(err)
	}
	if pending.Entries == 0 {
		snapshot, _, err = s.repo.GetLevel(ctx, key)
		return snapshot, errors.WithStack(err)
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return Inventory{}, errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	snapshot, err = s.repo.LockInventory(ctx, key, core.UpdateOptions{Tx: tx})
	if err != nil {
		return Inventory{}, errors.WithMessage(err, "failed to lock inventory for compaction")
	}

	rollup, err := s.repo.GetRollup(ctx, key, core.QueryOptions{Tx: tx})
	if err != nil {
		return Inventory{}, errors.WithStack(err)
	}
	if rollup.Entries == 0 {
		if err = tx.Commit(ctx); err != nil {
			return Inventory{}, errors.WithStack(err)
		}
		return snapshot, nil
	}

	folded, err := s.repo.DeleteJournalUpTo(ctx, key, rollup.HighWaterMark, core.UpdateOptions{Tx: tx})
	if err != nil {
		return Inventory{}, errors.WithMessage(err, "failed to remove compacted journal entries")
	}

	snapshot = snapshot.Fold(folded)
	if err = s.repo.SaveInventory(ctx, snapshot, core.UpdateOptions{Tx: tx}); err != nil {
		return Inventory{}, errors.WithMessage(err, "failed to save compacted inventory")
	}

	if err = tx.Commit(ctx); err != nil {
		return Inventory{}, errors.WithMessage(err, "failed to commit compaction")
	}

	log.Info().
		Str("func", funcName).
		Str("sku", key.SkuCode).
		Str("warehouse", key.WarehouseID).
		Int64("entries", folded.Entries).
		Uint64("highWaterMark", rollup.HighWaterMark).
		Msg("compacted inventory journal")

	return snapshot, nil
}

// CompactAll compacts every key that has journal entries and returns how many keys were compacted. A failing
// key is logged and skipped.
func (s *service) CompactAll(ctx context.Context) (int, error) {
	const funcName = "CompactAll"

	keys, err := s.repo.GetJournaledKeys(ctx, compactionBatchSize)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	compacted := 0
	for _, key := range keys {
		if _, err := s.Compact(ctx, key); err != nil {
			log.Error().Err(err).
				Str("func", funcName).
				Str("sku", key.SkuCode).
				Str("warehouse", key.WarehouseID).
				Msg("failed to compact inventory")
			continue
		}
		compacted++
	}

	return compacted, nil
}

// RunCompaction compacts all keys every interval until ctx is done.
func RunCompaction(ctx context.Context, s Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.CompactAll(ctx)
			if err != nil {
				log.Error().Err(err).Msg("scheduled compaction failed")
				continue
			}
			log.Debug().Int("keys", n).Msg("scheduled compaction finished")
		}
	}
}

func (s *service) publishInventory(ctx context.Context, dto Dto) {
	if s.queue == nil {
		return
	}
	if err := s.queue.PublishInventory(ctx, dto); err != nil {
		log.Warn().Err(err).
			Str("sku", dto.SkuCode).
			Str("warehouse", dto.WarehouseID).
			Msg("failed to publish inventory")
	}
}
