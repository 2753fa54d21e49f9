package inventory

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/inventory-allocation/core"
)

// Strategy applies commands to the stored inventory of a key and reads its current level.
type Strategy interface {
	Kind() StrategyKind
	Execute(ctx context.Context, cmd Command, check Check, options ...core.UpdateOptions) (ExecutionResult, error)
	GetInventory(ctx context.Context, key Key, options ...core.QueryOptions) (Dto, error)
}

// JournalingStrategy appends one journal entry per command and never locks the inventory row. Concurrent
// commands against the same key commute because the level is the sum of their deltas.
type JournalingStrategy struct {
	repo Repository
	now  func() time.Time
}

func NewJournalingStrategy(repo Repository) *JournalingStrategy {
	return &JournalingStrategy{repo: repo, now: time.Now}
}

func (s *JournalingStrategy) Kind() StrategyKind {
	return StrategyJournaling
}

func (s *JournalingStrategy) GetInventory(ctx context.Context, key Key, options ...core.QueryOptions) (Dto, error) {
	return currentLevel(ctx, s.repo, key, options...)
}

func (s *JournalingStrategy) Execute(ctx context.Context, cmd Command, check Check, options ...core.UpdateOptions) (ExecutionResult, error) {
	const funcName = "JournalingStrategy.Execute"

	key := cmd.Key()
	qopts := queryOptions(options)

	snapshot, rollup, err := s.repo.GetLevel(ctx, key, qopts...)
	if err != nil {
		return ExecutionResult{}, errors.WithStack(err)
	}
	before := Assemble(key, snapshot, rollup)

	if err = validate(cmd, check, before); err != nil {
		return ExecutionResult{}, err
	}

	delta := cmd.Delta()
	now := s.now()
	journal := &Journal{
		Key:                    key,
		QuantityOnHandDelta:    delta.QuantityOnHand,
		AllocatedQuantityDelta: delta.AllocatedQuantity,
		EventType:              cmd.EventType(),
		Originator:             cmd.Originator(),
		Created:                now,
	}
	if err = s.repo.SaveJournal(ctx, journal, options...); err != nil {
		return ExecutionResult{}, errors.WithMessage(err, "failed to save journal entry")
	}

	audit := &Audit{
		JournalID:  journal.ID,
		Key:        key,
		EventType:  cmd.EventType(),
		Quantity:   cmd.Quantity(),
		Originator: cmd.Originator(),
		Created:    now,
	}
	if err = s.repo.SaveAudit(ctx, audit, options...); err != nil {
		return ExecutionResult{}, errors.WithMessage(err, "failed to save inventory audit")
	}

	snapshot, rollup, err = s.repo.GetLevel(ctx, key, qopts...)
	if err != nil {
		return ExecutionResult{}, errors.WithStack(err)
	}

	result := ExecutionResult{
		InventoryBefore:   before,
		InventoryAfter:    Assemble(key, snapshot, rollup),
		QuantityProcessed: cmd.Quantity(),
		JournalID:         journal.ID,
	}
	cmd.record(result)

	log.Debug().
		Str("func", funcName).
		Str("sku", key.SkuCode).
		Str("warehouse", key.WarehouseID).
		Str("eventType", string(cmd.EventType())).
		Int64("quantity", cmd.Quantity()).
		Uint64("journalId", journal.ID).
		Int64("rollupEntries", rollup.Entries).
		Msg("journaled inventory command")

	return result, nil
}

// DirectStrategy locks the inventory row and rewrites it for every command. No journal entries are written,
// only audits.
type DirectStrategy struct {
	repo Repository
	now  func() time.Time
}

func NewDirectStrategy(repo Repository) *DirectStrategy {
	return &DirectStrategy{repo: repo, now: time.Now}
}

func (s *DirectStrategy) Kind() StrategyKind {
	return StrategyDirect
}

func (s *DirectStrategy) GetInventory(ctx context.Context, key Key, options ...core.QueryOptions) (Dto, error) {
	return currentLevel(ctx, s.repo, key, options...)
}

func (s *DirectStrategy) Execute(ctx context.Context, cmd Command, check Check, options ...core.UpdateOptions) (ExecutionResult, error) {
	const funcName = "DirectStrategy.Execute"

	key := cmd.Key()

	snapshot, err := s.repo.LockInventory(ctx, key, options...)
	if err != nil {
		return ExecutionResult{}, errors.WithStack(err)
	}
	// entries left behind by the journaling strategy still count until compacted
	rollup, err := s.repo.GetRollup(ctx, key, queryOptions(options)...)
	if err != nil {
		return ExecutionResult{}, errors.WithStack(err)
	}
	before := Assemble(key, snapshot, rollup)

	if err = validate(cmd, check, before); err != nil {
		return ExecutionResult{}, err
	}

	delta := cmd.Delta()
	snapshot.QuantityOnHand += delta.QuantityOnHand
	snapshot.AllocatedQuantity += delta.AllocatedQuantity
	if err = s.repo.SaveInventory(ctx, snapshot, options...); err != nil {
		return ExecutionResult{}, errors.WithMessage(err, "failed to save inventory")
	}

	audit := &Audit{
		Key:        key,
		EventType:  cmd.EventType(),
		Quantity:   cmd.Quantity(),
		Originator: cmd.Originator(),
		Created:    s.now(),
	}
	if err = s.repo.SaveAudit(ctx, audit, options...); err != nil {
		return ExecutionResult{}, errors.WithMessage(err, "failed to save inventory audit")
	}

	result := ExecutionResult{
		InventoryBefore:   before,
		InventoryAfter:    Assemble(key, snapshot, rollup),
		QuantityProcessed: cmd.Quantity(),
	}
	cmd.record(result)

	log.Debug().
		Str("func", funcName).
		Str("sku", key.SkuCode).
		Str("warehouse", key.WarehouseID).
		Str("eventType", string(cmd.EventType())).
		Int64("quantity", cmd.Quantity()).
		Msg("updated inventory")

	return result, nil
}

func validate(cmd Command, check Check, before Dto) error {
	if err := cmd.Validate(before); err != nil {
		return err
	}
	if check != nil {
		if err := check(before); err != nil {
			return err
		}
	}
	return nil
}

func currentLevel(ctx context.Context, repo Repository, key Key, options ...core.QueryOptions) (Dto, error) {
	snapshot, rollup, err := repo.GetLevel(ctx, key, options...)
	if err != nil {
		return Dto{}, errors.WithStack(err)
	}
	return Assemble(key, snapshot, rollup), nil
}

func queryOptions(options []core.UpdateOptions) []core.QueryOptions {
	if len(options) == 0 {
		return nil
	}
	return []core.QueryOptions{{Tx: options[0].Tx}}
}
