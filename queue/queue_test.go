package queue

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sksmith/inventory-allocation/core/allocation"
	"github.com/sksmith/inventory-allocation/core/inventory"
	"github.com/sksmith/inventory-allocation/test"
)

const publishFunc = "github.com/sksmith/inventory-allocation/queue.(*MockPublisher).Publish"

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func TestPublishInventory(t *testing.T) {
	pub := NewMockPublisher()
	var gotExchange string
	var got inventory.Dto
	pub.PublishFunc = func(ctx context.Context, exchange string, body []byte) error {
		gotExchange = exchange
		return json.Unmarshal(body, &got)
	}

	q := NewInventoryQueue(pub, "inventory.exchange")
	dto := inventory.Dto{
		Key:                      inventory.Key{SkuCode: "sku1", WarehouseID: "wh1"},
		QuantityOnHand:           10,
		AllocatedQuantity:        4,
		AvailableQuantityInStock: 6,
	}
	if err := q.PublishInventory(context.Background(), dto); err != nil {
		t.Fatalf("did not want error, got=%v", err)
	}

	if gotExchange != "inventory.exchange" {
		t.Errorf("unexpected exchange got=%s", gotExchange)
	}
	if got != dto {
		t.Errorf("unexpected body got=%+v want=%+v", got, dto)
	}
}

func TestPublishInventoryError(t *testing.T) {
	pub := NewMockPublisher()
	pub.PublishFunc = func(ctx context.Context, exchange string, body []byte) error {
		return errors.New("channel closed")
	}

	q := NewInventoryQueue(pub, "inventory.exchange")
	if err := q.PublishInventory(context.Background(), inventory.Dto{}); err == nil {
		t.Error("expected publish error to be returned")
	}
}

func TestIndexNotification(t *testing.T) {
	pub := NewMockPublisher()
	var got IndexNotification
	pub.PublishFunc = func(ctx context.Context, exchange string, body []byte) error {
		if exchange != "index.exchange" {
			t.Errorf("unexpected exchange got=%s", exchange)
		}
		return json.Unmarshal(body, &got)
	}

	n := NewIndexNotifier(pub, "index.exchange")
	if err := n.AddNotificationForEntityIndexUpdate(context.Background(), allocation.EntityProduct, "prod1"); err != nil {
		t.Fatalf("did not want error, got=%v", err)
	}
	if got.EntityType != allocation.EntityProduct || got.EntityID != "prod1" {
		t.Errorf("unexpected notification %+v", got)
	}
}

func TestHandleAllocation(t *testing.T) {
	valid, _ := json.Marshal(allocation.Event{
		EventID:     "evt1",
		EventType:   allocation.OrderPlaced,
		SkuCode:     "sku1",
		WarehouseID: "wh1",
		Quantity:    2,
	})

	tests := []struct {
		name      string
		body      []byte
		handleErr error

		wantHandled int
		wantDlt     int
	}{
		{
			name:        "processed",
			body:        valid,
			wantHandled: 1,
		},
		{
			name:    "undecodable",
			body:    []byte("{not json"),
			wantDlt: 1,
		},
		{
			name:        "insufficient inventory is acknowledged",
			body:        valid,
			handleErr:   &inventory.InsufficientInventoryError{Requested: 2},
			wantHandled: 1,
		},
		{
			name:        "failure goes to dlt",
			body:        valid,
			handleErr:   errors.New("database unavailable"),
			wantHandled: 1,
			wantDlt:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := NewMockPublisher()
			var dltBody []byte
			pub.PublishFunc = func(ctx context.Context, exchange string, body []byte) error {
				if exchange != "allocation.dlt" {
					t.Errorf("unexpected exchange got=%s", exchange)
				}
				dltBody = body
				return nil
			}

			handler := allocation.NewMockService()
			handler.ProcessAllocationEventFunc = func(ctx context.Context, event allocation.Event) (allocation.Result, error) {
				if event.EventID != "evt1" || event.Quantity != 2 {
					t.Errorf("unexpected event %+v", event)
				}
				return allocation.Result{}, tt.handleErr
			}

			q := NewAllocationQueue(nil, pub, "allocation.queue", "allocation.dlt")
			q.handle(context.Background(), tt.body, handler)

			verifyHandled(t, handler, tt.wantHandled)
			verifyPublished(t, pub, tt.wantDlt)
			if tt.wantDlt > 0 && string(dltBody) != string(tt.body) {
				t.Errorf("dlt body should be the original message got=%s", dltBody)
			}
		})
	}
}

func verifyHandled(t *testing.T, handler *allocation.MockService, want int) {
	t.Helper()
	test.VerifyCount(t, handler.CallWatcher,
		"github.com/sksmith/inventory-allocation/core/allocation.(*MockService).ProcessAllocationEvent", want)
}

func verifyPublished(t *testing.T, pub *MockPublisher, want int) {
	t.Helper()
	test.VerifyCount(t, pub.CallWatcher, publishFunc, want)
}
