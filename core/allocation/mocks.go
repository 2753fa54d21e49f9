package allocation

import (
	"context"

	"github.com/sksmith/inventory-allocation/test"
)

type MockService struct {
	ProcessAllocationEventFunc func(ctx context.Context, event Event) (Result, error)
	IsAvailableFunc            func(ctx context.Context, skuCode, warehouseID string, qty int64) (bool, error)
	GetProductFunc             func(ctx context.Context, skuCode string) (ProductSku, error)
	SaveProductFunc            func(ctx context.Context, product ProductSku) error
	*test.CallWatcher
}

func NewMockService() *MockService {
	return &MockService{
		ProcessAllocationEventFunc: func(ctx context.Context, event Event) (Result, error) { return Result{}, nil },
		IsAvailableFunc:            func(ctx context.Context, skuCode, warehouseID string, qty int64) (bool, error) { return true, nil },
		GetProductFunc: func(ctx context.Context, skuCode string) (ProductSku, error) {
			return ProductSku{SkuCode: skuCode, Criteria: AvailableWhenInStock}, nil
		},
		SaveProductFunc: func(ctx context.Context, product ProductSku) error { return nil },
		CallWatcher:     test.NewCallWatcher(),
	}
}

func (s *MockService) ProcessAllocationEvent(ctx context.Context, event Event) (Result, error) {
	s.AddCall(ctx, event)
	return s.ProcessAllocationEventFunc(ctx, event)
}

func (s *MockService) IsAvailable(ctx context.Context, skuCode, warehouseID string, qty int64) (bool, error) {
	s.AddCall(ctx, skuCode, warehouseID, qty)
	return s.IsAvailableFunc(ctx, skuCode, warehouseID, qty)
}

func (s *MockService) GetProduct(ctx context.Context, skuCode string) (ProductSku, error) {
	s.AddCall(ctx, skuCode)
	return s.GetProductFunc(ctx, skuCode)
}

func (s *MockService) SaveProduct(ctx context.Context, product ProductSku) error {
	s.AddCall(ctx, product)
	return s.SaveProductFunc(ctx, product)
}

type MockNotifier struct {
	AddNotificationForEntityIndexUpdateFunc func(ctx context.Context, entityType EntityType, entityID string) error
	*test.CallWatcher
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		AddNotificationForEntityIndexUpdateFunc: func(ctx context.Context, entityType EntityType, entityID string) error {
			return nil
		},
		CallWatcher: test.NewCallWatcher(),
	}
}

func (n *MockNotifier) AddNotificationForEntityIndexUpdate(ctx context.Context, entityType EntityType, entityID string) error {
	n.AddCall(ctx, entityType, entityID)
	return n.AddNotificationForEntityIndexUpdateFunc(ctx, entityType, entityID)
}

type MockIdempotencyStore struct {
	SetIfAbsentFunc func(ctx context.Context, key string) (bool, error)
	ForgetFunc      func(ctx context.Context, key string) error
	*test.CallWatcher
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		SetIfAbsentFunc: func(ctx context.Context, key string) (bool, error) { return true, nil },
		ForgetFunc:      func(ctx context.Context, key string) error { return nil },
		CallWatcher:     test.NewCallWatcher(),
	}
}

func (m *MockIdempotencyStore) SetIfAbsent(ctx context.Context, key string) (bool, error) {
	m.AddCall(ctx, key)
	return m.SetIfAbsentFunc(ctx, key)
}

func (m *MockIdempotencyStore) Forget(ctx context.Context, key string) error {
	m.AddCall(ctx, key)
	return m.ForgetFunc(ctx, key)
}
