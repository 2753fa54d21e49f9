package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/sksmith/inventory-allocation/core/cartorder"
)

type CartOrderService interface {
	CreateIfAbsent(ctx context.Context, cartGUID, storeCode string) (cartorder.CartOrder, error)
}

type CartOrderApi struct {
	service CartOrderService
}

func NewCartOrderApi(service CartOrderService) *CartOrderApi {
	return &CartOrderApi{service: service}
}

func (a *CartOrderApi) ConfigureRouter(r chi.Router) {
	r.Put("/", a.Create)
}

func (a *CartOrderApi) Create(w http.ResponseWriter, r *http.Request) {
	data := &CartOrderRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	order, err := a.service.CreateIfAbsent(r.Context(), data.CartGUID, data.StoreCode)
	if err != nil {
		renderErr(w, r, err)
		return
	}

	Render(w, r, &CartOrderResponse{CartOrder: order})
}

type CartOrderRequest struct {
	CartGUID  string `json:"cartGuid"`
	StoreCode string `json:"storeCode"`
}

func (c *CartOrderRequest) Bind(_ *http.Request) error {
	if c.CartGUID == "" || c.StoreCode == "" {
		return errors.New("cartGuid and storeCode are required")
	}
	return nil
}

type CartOrderResponse struct {
	cartorder.CartOrder
}

func (c *CartOrderResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}
