package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/api"
	"github.com/sksmith/inventory-allocation/core"
	"github.com/sksmith/inventory-allocation/core/inventory"
	"github.com/sksmith/inventory-allocation/testutil"
	"github.com/sksmith/inventory-allocation/test"
)

const inventoryMock = "github.com/sksmith/inventory-allocation/core/inventory.(*MockService)."

func setupInventoryTestServer() (*httptest.Server, *inventory.MockService) {
	mockSvc := inventory.NewMockService()
	invApi := api.NewInventoryApi(mockSvc)
	r := chi.NewRouter()
	invApi.ConfigureRouter(r)
	ts := httptest.NewServer(r)

	return ts, mockSvc
}

func TestInventoryGet(t *testing.T) {
	ts, mockSvc := setupInventoryTestServer()
	defer ts.Close()

	tests := []struct {
		name           string
		serviceErr     error
		wantStatusCode int
	}{
		{name: "found", wantStatusCode: http.StatusOK},
		{name: "not found", serviceErr: errors.WithStack(core.ErrNotFound), wantStatusCode: http.StatusNotFound},
		{name: "unexpected", serviceErr: errors.New("connection reset"), wantStatusCode: http.StatusInternalServerError},
	}

	for _, test := range tests {
		mockSvc.GetInventoryFunc = func(ctx context.Context, skuCode, warehouseID string) (inventory.Dto, error) {
			if skuCode != "sku1" || warehouseID != "wh1" {
				t.Errorf("%s: unexpected key %s@%s", test.name, skuCode, warehouseID)
			}
			return inventory.Dto{
				Key:                      inventory.Key{SkuCode: skuCode, WarehouseID: warehouseID},
				QuantityOnHand:           10,
				AllocatedQuantity:        3,
				AvailableQuantityInStock: 7,
			}, test.serviceErr
		}

		res := testutil.Get(ts.URL+"/sku1/wh1/", t)

		if res.StatusCode != test.wantStatusCode {
			t.Errorf("%s: status code got=[%d] want=[%d]", test.name, res.StatusCode, test.wantStatusCode)
		}
		if test.serviceErr == nil {
			got := inventory.Dto{}
			testutil.Unmarshal(res, &got, t)
			if got.AvailableQuantityInStock != 7 || got.SkuCode != "sku1" {
				t.Errorf("%s: unexpected dto %+v", test.name, got)
			}
		} else {
			res.Body.Close()
		}
	}
}

func TestInventoryJournalPagination(t *testing.T) {
	ts, mockSvc := setupInventoryTestServer()
	defer ts.Close()

	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{query: "", wantLimit: api.DefaultPageLimit, wantOffset: 0},
		{query: "?limit=5&offset=7", wantLimit: 5, wantOffset: 7},
		{query: "?limit=abc&offset=-3", wantLimit: api.DefaultPageLimit, wantOffset: 0},
	}

	for _, test := range tests {
		gotLimit, gotOffset := -1, -1
		mockSvc.GetJournalFunc = func(ctx context.Context, key inventory.Key, limit, offset int) ([]inventory.Journal, error) {
			gotLimit, gotOffset = limit, offset
			return []inventory.Journal{{ID: 1, Key: key, QuantityOnHandDelta: 5, EventType: inventory.EventAdjust}}, nil
		}

		res := testutil.Get(ts.URL+"/sku1/wh1/journal"+test.query, t)
		got := []inventory.Journal{}
		testutil.Unmarshal(res, &got, t)

		if len(got) != 1 || got[0].QuantityOnHandDelta != 5 {
			t.Errorf("unexpected journal %+v", got)
		}
		if gotLimit != test.wantLimit || gotOffset != test.wantOffset {
			t.Errorf("query %q got limit=%d offset=%d want limit=%d offset=%d",
				test.query, gotLimit, gotOffset, test.wantLimit, test.wantOffset)
		}
	}
}

func TestInventoryAudits(t *testing.T) {
	ts, mockSvc := setupInventoryTestServer()
	defer ts.Close()

	mockSvc.GetAuditsFunc = func(ctx context.Context, key inventory.Key, limit, offset int) ([]inventory.Audit, error) {
		return []inventory.Audit{
			{ID: 1, JournalID: 1, Key: key, EventType: inventory.EventAdjust, Quantity: 10, Originator: "receiving"},
			{ID: 2, JournalID: 2, Key: key, EventType: inventory.EventAllocate, Quantity: 2, Originator: "order-1"},
		}, nil
	}

	res := testutil.Get(ts.URL+"/sku1/wh1/audit", t)
	got := []inventory.Audit{}
	testutil.Unmarshal(res, &got, t)

	if len(got) != 2 || got[1].Originator != "order-1" {
		t.Errorf("unexpected audits %+v", got)
	}
}

func TestInventoryAdjust(t *testing.T) {
	ts, mockSvc := setupInventoryTestServer()
	defer ts.Close()

	tests := []struct {
		name           string
		request        api.AdjustmentRequest
		serviceErr     error
		wantCalls      int
		wantStatusCode int
	}{
		{
			name:           "received",
			request:        api.AdjustmentRequest{Quantity: 10, Originator: "receiving"},
			wantCalls:      1,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "zero quantity",
			request:        api.AdjustmentRequest{Quantity: 0, Originator: "receiving"},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing originator",
			request:        api.AdjustmentRequest{Quantity: 3},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:    "below zero",
			request: api.AdjustmentRequest{Quantity: -50, Originator: "cycle-count"},
			serviceErr: &inventory.InsufficientInventoryError{
				Key:       inventory.Key{SkuCode: "sku1", WarehouseID: "wh1"},
				Requested: -50,
				Available: 10,
			},
			wantCalls:      1,
			wantStatusCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		watcher := test.NewCallWatcher()
		mockSvc.CallWatcher = watcher
		var gotCmd inventory.Command
		mockSvc.ProcessCommandFunc = func(ctx context.Context, cmd inventory.Command, check inventory.Check, hooks ...inventory.Hook) (inventory.ExecutionResult, error) {
			gotCmd = cmd
			return inventory.ExecutionResult{QuantityProcessed: cmd.Quantity()}, tt.serviceErr
		}

		res := testutil.Put(ts.URL+"/sku1/wh1/adjustment", tt.request, t)
		res.Body.Close()

		if res.StatusCode != tt.wantStatusCode {
			t.Errorf("%s: status code got=[%d] want=[%d]", tt.name, res.StatusCode, tt.wantStatusCode)
		}
		test.VerifyCount(t, watcher, inventoryMock+"ProcessCommand", tt.wantCalls)
		if tt.wantCalls > 0 {
			if gotCmd.EventType() != inventory.EventAdjust || gotCmd.Quantity() != tt.request.Quantity {
				t.Errorf("%s: unexpected command %s %d", tt.name, gotCmd.EventType(), gotCmd.Quantity())
			}
		}
	}
}

func TestInventoryCreate(t *testing.T) {
	ts, mockSvc := setupInventoryTestServer()
	defer ts.Close()

	tests := []struct {
		name           string
		request        interface{}
		wantStatusCode int
	}{
		{
			name: "created",
			request: inventory.Inventory{
				Key:            inventory.Key{SkuCode: "sku1", WarehouseID: "wh1"},
				QuantityOnHand: 25,
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "missing warehouse",
			request:        inventory.Inventory{Key: inventory.Key{SkuCode: "sku1"}},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "negative",
			request: inventory.Inventory{
				Key:            inventory.Key{SkuCode: "sku1", WarehouseID: "wh1"},
				QuantityOnHand: -1,
			},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, test := range tests {
		res := testutil.Put(ts.URL+"/", test.request, t)
		res.Body.Close()
		if res.StatusCode != test.wantStatusCode {
			t.Errorf("%s: status code got=[%d] want=[%d]", test.name, res.StatusCode, test.wantStatusCode)
		}
	}
	test.VerifyCount(t, mockSvc.CallWatcher, inventoryMock+"CreateInventory", 1)
}

func TestInventoryCompaction(t *testing.T) {
	ts, mockSvc := setupInventoryTestServer()
	defer ts.Close()

	mockSvc.CompactFunc = func(ctx context.Context, key inventory.Key) (inventory.Inventory, error) {
		return inventory.Inventory{Key: key, QuantityOnHand: 40, AllocatedQuantity: 12}, nil
	}

	res := testutil.Put(ts.URL+"/sku1/wh1/compaction", nil, t)
	got := inventory.Inventory{}
	testutil.Unmarshal(res, &got, t)

	want := inventory.Inventory{Key: inventory.Key{SkuCode: "sku1", WarehouseID: "wh1"}, QuantityOnHand: 40, AllocatedQuantity: 12}
	if got != want {
		t.Errorf("unexpected snapshot\n got=%+v\nwant=%+v", got, want)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("status code got=[%d]", res.StatusCode)
	}
}
