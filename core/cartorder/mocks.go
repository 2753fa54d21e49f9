package cartorder

import (
	"context"

	"github.com/sksmith/inventory-allocation/test"
)

type MockService struct {
	CreateIfAbsentFunc func(ctx context.Context, cartGUID, storeCode string) (CartOrder, error)
	*test.CallWatcher
}

func NewMockService() *MockService {
	return &MockService{
		CreateIfAbsentFunc: func(ctx context.Context, cartGUID, storeCode string) (CartOrder, error) {
			return CartOrder{ID: "id", CartGUID: cartGUID, StoreCode: storeCode}, nil
		},
		CallWatcher: test.NewCallWatcher(),
	}
}

func (s *MockService) CreateIfAbsent(ctx context.Context, cartGUID, storeCode string) (CartOrder, error) {
	s.AddCall(ctx, cartGUID, storeCode)
	return s.CreateIfAbsentFunc(ctx, cartGUID, storeCode)
}

type MockRepo struct {
	InsertFunc    func(ctx context.Context, order CartOrder) error
	GetByCartFunc func(ctx context.Context, cartGUID string) (CartOrder, error)
	*test.CallWatcher
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		InsertFunc:    func(ctx context.Context, order CartOrder) error { return nil },
		GetByCartFunc: func(ctx context.Context, cartGUID string) (CartOrder, error) { return CartOrder{CartGUID: cartGUID}, nil },
		CallWatcher:   test.NewCallWatcher(),
	}
}

func (r *MockRepo) Insert(ctx context.Context, order CartOrder) error {
	r.AddCall(ctx, order)
	return r.InsertFunc(ctx, order)
}

func (r *MockRepo) GetByCart(ctx context.Context, cartGUID string) (CartOrder, error) {
	r.AddCall(ctx, cartGUID)
	return r.GetByCartFunc(ctx, cartGUID)
}
