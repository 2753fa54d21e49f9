package inventory

import (
	"context"

	"github.com/sksmith/inventory-allocation/core"
	"github.com/sksmith/inventory-allocation/test"
)

type MockService struct {
	ProcessCommandFunc             func(ctx context.Context, cmd Command, check Check, hooks ...Hook) (ExecutionResult, error)
	CreateInventoryFunc            func(ctx context.Context, inventory Inventory) error
	GetInventoryFunc               func(ctx context.Context, skuCode, warehouseID string) (Dto, error)
	IsSelfAllocationSufficientFunc func(ctx context.Context, item LineItem, shipmentIndex int) (bool, error)
	GetJournalFunc                 func(ctx context.Context, key Key, limit, offset int) ([]Journal, error)
	GetAuditsFunc                  func(ctx context.Context, key Key, limit, offset int) ([]Audit, error)
	CompactFunc                    func(ctx context.Context, key Key) (Inventory, error)
	CompactAllFunc                 func(ctx context.Context) (int, error)
	*test.CallWatcher
}

func NewMockService() *MockService {
	return &MockService{
		ProcessCommandFunc: func(ctx context.Context, cmd Command, check Check, hooks ...Hook) (ExecutionResult, error) {
			return ExecutionResult{}, nil
		},
		CreateInventoryFunc: func(ctx context.Context, inventory Inventory) error { return nil },
		GetInventoryFunc: func(ctx context.Context, skuCode, warehouseID string) (Dto, error) {
			return Dto{Key: Key{SkuCode: skuCode, WarehouseID: warehouseID}}, nil
		},
		IsSelfAllocationSufficientFunc: func(ctx context.Context, item LineItem, shipmentIndex int) (bool, error) { return true, nil },
		GetJournalFunc:                 func(ctx context.Context, key Key, limit, offset int) ([]Journal, error) { return []Journal{}, nil },
		GetAuditsFunc:                  func(ctx context.Context, key Key, limit, offset int) ([]Audit, error) { return []Audit{}, nil },
		CompactFunc:                    func(ctx context.Context, key Key) (Inventory, error) { return Inventory{Key: key}, nil },
		CompactAllFunc:                 func(ctx context.Context) (int, error) { return 0, nil },
		CallWatcher:                    test.NewCallWatcher(),
	}
}

func (s *MockService) ProcessCommand(ctx context.Context, cmd Command, check Check, hooks ...Hook) (ExecutionResult, error) {
	s.AddCall(ctx, cmd, check, hooks)
	return s.ProcessCommandFunc(ctx, cmd, check, hooks...)
}

func (s *MockService) CommandFactory() CommandFactory {
	return NewCommandFactory()
}

func (s *MockService) CreateInventory(ctx context.Context, inventory Inventory) error {
	s.AddCall(ctx, inventory)
	return s.CreateInventoryFunc(ctx, inventory)
}

func (s *MockService) GetInventory(ctx context.Context, skuCode, warehouseID string) (Dto, error) {
	s.AddCall(ctx, skuCode, warehouseID)
	return s.GetInventoryFunc(ctx, skuCode, warehouseID)
}

func (s *MockService) IsSelfAllocationSufficient(ctx context.Context, item LineItem, shipmentIndex int) (bool, error) {
	s.AddCall(ctx, item, shipmentIndex)
	return s.IsSelfAllocationSufficientFunc(ctx, item, shipmentIndex)
}

func (s *MockService) GetJournal(ctx context.Context, key Key, limit, offset int) ([]Journal, error) {
	s.AddCall(ctx, key, limit, offset)
	return s.GetJournalFunc(ctx, key, limit, offset)
}

func (s *MockService) GetAudits(ctx context.Context, key Key, limit, offset int) ([]Audit, error) {
	s.AddCall(ctx, key, limit, offset)
	return s.GetAuditsFunc(ctx, key, limit, offset)
}

func (s *MockService) Compact(ctx context.Context, key Key) (Inventory, error) {
	s.AddCall(ctx, key)
	return s.CompactFunc(ctx, key)
}

func (s *MockService) CompactAll(ctx context.Context) (int, error) {
	s.AddCall(ctx)
	return s.CompactAllFunc(ctx)
}

// MockRepo is a Repository whose methods all succeed with zero values unless overridden.
type MockRepo struct {
	BeginTransactionFunc  func(ctx context.Context) (core.Transaction, error)
	GetLevelFunc          func(ctx context.Context, key Key, options ...core.QueryOptions) (Inventory, Rollup, error)
	GetInventoryFunc      func(ctx context.Context, key Key, options ...core.QueryOptions) (Inventory, error)
	LockInventoryFunc     func(ctx context.Context, key Key, options ...core.UpdateOptions) (Inventory, error)
	SaveInventoryFunc     func(ctx context.Context, inventory Inventory, options ...core.UpdateOptions) error
	GetRollupFunc         func(ctx context.Context, key Key, options ...core.QueryOptions) (Rollup, error)
	GetJournalFunc        func(ctx context.Context, key Key, limit, offset int, options ...core.QueryOptions) ([]Journal, error)
	GetJournaledKeysFunc  func(ctx context.Context, limit int, options ...core.QueryOptions) ([]Key, error)
	SaveJournalFunc       func(ctx context.Context, journal *Journal, options ...core.UpdateOptions) error
	DeleteJournalUpToFunc func(ctx context.Context, key Key, highWaterMark uint64, options ...core.UpdateOptions) (Rollup, error)
	GetAuditsFunc         func(ctx context.Context, key Key, limit, offset int, options ...core.QueryOptions) ([]Audit, error)
	SaveAuditFunc         func(ctx context.Context, audit *Audit, options ...core.UpdateOptions) error
	*test.CallWatcher
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		BeginTransactionFunc: func(ctx context.Context) (core.Transaction, error) { return mockTx{}, nil },
		GetLevelFunc: func(ctx context.Context, key Key, options ...core.QueryOptions) (Inventory, Rollup, error) {
			return Inventory{Key: key}, Rollup{Key: key}, nil
		},
		GetInventoryFunc: func(ctx context.Context, key Key, options ...core.QueryOptions) (Inventory, error) {
			return Inventory{Key: key}, nil
		},
		LockInventoryFunc: func(ctx context.Context, key Key, options ...core.UpdateOptions) (Inventory, error) {
			return Inventory{Key: key}, nil
		},
		SaveInventoryFunc: func(ctx context.Context, inventory Inventory, options ...core.UpdateOptions) error { return nil },
		GetRollupFunc: func(ctx context.Context, key Key, options ...core.QueryOptions) (Rollup, error) {
			return Rollup{Key: key}, nil
		},
		GetJournalFunc: func(ctx context.Context, key Key, limit, offset int, options ...core.QueryOptions) ([]Journal, error) {
			return []Journal{}, nil
		},
		GetJournaledKeysFunc: func(ctx context.Context, limit int, options ...core.QueryOptions) ([]Key, error) { return []Key{}, nil },
		SaveJournalFunc:      func(ctx context.Context, journal *Journal, options ...core.UpdateOptions) error { return nil },
		DeleteJournalUpToFunc: func(ctx context.Context, key Key, highWaterMark uint64, options ...core.UpdateOptions) (Rollup, error) {
			return Rollup{Key: key}, nil
		},
		GetAuditsFunc: func(ctx context.Context, key Key, limit, offset int, options ...core.QueryOptions) ([]Audit, error) {
			return []Audit{}, nil
		},
		SaveAuditFunc: func(ctx context.Context, audit *Audit, options ...core.UpdateOptions) error { return nil },
		CallWatcher:   test.NewCallWatcher(),
	}
}

func (r *MockRepo) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	r.AddCall(ctx)
	return r.BeginTransactionFunc(ctx)
}

func (r *MockRepo) GetLevel(ctx context.Context, key Key, options ...core.QueryOptions) (Inventory, Rollup, error) {
	r.AddCall(ctx, key, options)
	return r.GetLevelFunc(ctx, key, options...)
}

func (r *MockRepo) GetInventory(ctx context.Context, key Key, options ...core.QueryOptions) (Inventory, error) {
	r.AddCall(ctx, key, options)
	return r.GetInventoryFunc(ctx, key, options...)
}

func (r *MockRepo) LockInventory(ctx context.Context, key Key, options ...core.UpdateOptions) (Inventory, error) {
	r.AddCall(ctx, key, options)
	return r.LockInventoryFunc(ctx, key, options...)
}

func (r *MockRepo) SaveInventory(ctx context.Context, inventory Inventory, options ...core.UpdateOptions) error {
	r.AddCall(ctx, inventory, options)
	return r.SaveInventoryFunc(ctx, inventory, options...)
}

func (r *MockRepo) GetRollup(ctx context.Context, key Key, options ...core.QueryOptions) (Rollup, error) {
	r.AddCall(ctx, key, options)
	return r.GetRollupFunc(ctx, key, options...)
}

func (r *MockRepo) GetJournal(ctx context.Context, key Key, limit, offset int, options ...core.QueryOptions) ([]Journal, error) {
	r.AddCall(ctx, key, limit, offset, options)
	return r.GetJournalFunc(ctx, key, limit, offset, options...)
}

func (r *MockRepo) GetJournaledKeys(ctx context.Context, limit int, options ...core.QueryOptions) ([]Key, error) {
	r.AddCall(ctx, limit, options)
	return r.GetJournaledKeysFunc(ctx, limit, options...)
}

func (r *MockRepo) SaveJournal(ctx context.Context, journal *Journal, options ...core.UpdateOptions) error {
	r.AddCall(ctx, journal, options)
	return r.SaveJournalFunc(ctx, journal, options...)
}

func (r *MockRepo) DeleteJournalUpTo(ctx context.Context, key Key, highWaterMark uint64, options ...core.UpdateOptions) (Rollup, error) {
	r.AddCall(ctx, key, highWaterMark, options)
	return r.DeleteJournalUpToFunc(ctx, key, highWaterMark, options...)
}

func (r *MockRepo) GetAudits(ctx context.Context, key Key, limit, offset int, options ...core.QueryOptions) ([]Audit, error) {
	r.AddCall(ctx, key, limit, offset, options)
	return r.GetAuditsFunc(ctx, key, limit, offset, options...)
}

func (r *MockRepo) SaveAudit(ctx context.Context, audit *Audit, options ...core.UpdateOptions) error {
	r.AddCall(ctx, audit, options)
	return r.SaveAuditFunc(ctx, audit, options...)
}

type mockTx struct{}

func (mockTx) Commit(_ context.Context) error   { return nil }
func (mockTx) Rollback(_ context.Context) error { return nil }

type MockQueue struct {
	PublishInventoryFunc func(ctx context.Context, dto Dto) error
	*test.CallWatcher
}

func NewMockQueue() *MockQueue {
	return &MockQueue{
		PublishInventoryFunc: func(ctx context.Context, dto Dto) error { return nil },
		CallWatcher:          test.NewCallWatcher(),
	}
}

func (q *MockQueue) PublishInventory(ctx context.Context, dto Dto) error {
	q.AddCall(ctx, dto)
	return q.PublishInventoryFunc(ctx, dto)
}
