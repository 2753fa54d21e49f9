package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/sksmith/inventory-allocation/core/allocation"
)

type AllocationService interface {
	ProcessAllocationEvent(ctx context.Context, event allocation.Event) (allocation.Result, error)
	IsAvailable(ctx context.Context, skuCode, warehouseID string, qty int64) (bool, error)

	GetProduct(ctx context.Context, skuCode string) (allocation.ProductSku, error)
	SaveProduct(ctx context.Context, product allocation.ProductSku) error
}

type AllocationApi struct {
	service AllocationService
}

func NewAllocationApi(service AllocationService) *AllocationApi {
	return &AllocationApi{service: service}
}

func (a *AllocationApi) ConfigureRouter(r chi.Router) {
	r.Put("/", a.Process)
	r.Get("/availability", a.Availability)
}

func (a *AllocationApi) Process(w http.ResponseWriter, r *http.Request) {
	data := &AllocationEventRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	result, err := a.service.ProcessAllocationEvent(r.Context(), *data.Event)
	if err != nil {
		renderErr(w, r, err)
		return
	}

	Render(w, r, &AllocationResponse{Result: result})
}

func (a *AllocationApi) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sku, warehouse := q.Get("sku"), q.Get("warehouse")
	if sku == "" || warehouse == "" {
		Render(w, r, ErrInvalidRequest(errors.New("sku and warehouse are required")))
		return
	}
	qty, err := strconv.ParseInt(q.Get("quantity"), 10, 64)
	if err != nil || qty < 1 {
		Render(w, r, ErrInvalidRequest(errors.New("quantity must be a number greater than zero")))
		return
	}

	available, err := a.service.IsAvailable(r.Context(), sku, warehouse, qty)
	if err != nil {
		renderErr(w, r, err)
		return
	}

	Render(w, r, &AvailabilityResponse{SkuCode: sku, WarehouseID: warehouse, Quantity: qty, Available: available})
}

type AllocationEventRequest struct {
	*allocation.Event
}

func (e *AllocationEventRequest) Bind(_ *http.Request) error {
	if e.Event == nil {
		return errors.New("missing required allocation event fields")
	}
	if _, err := allocation.ParseEventType(string(e.EventType)); err != nil {
		return err
	}
	if e.SkuCode == "" || e.WarehouseID == "" {
		return errors.New("skuCode and warehouseId are required")
	}
	if e.Quantity < 0 || e.PreviousQuantity < 0 {
		return errors.New("quantities must not be negative")
	}
	return nil
}

type AllocationResponse struct {
	allocation.Result
}

func (a *AllocationResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

type AvailabilityResponse struct {
	SkuCode     string `json:"skuCode"`
	WarehouseID string `json:"warehouseId"`
	Quantity    int64  `json:"quantity"`
	Available   bool   `json:"available"`
}

func (a *AvailabilityResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}
