package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/sksmith/inventory-allocation/core/allocation"
)

type ProductApi struct {
	service AllocationService
}

func NewProductApi(service AllocationService) *ProductApi {
	return &ProductApi{service: service}
}

func (a *ProductApi) ConfigureRouter(r chi.Router) {
	r.Put("/", a.Save)
	r.Get("/{sku}", a.Get)
}

func (a *ProductApi) Save(w http.ResponseWriter, r *http.Request) {
	data := &ProductRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := a.service.SaveProduct(r.Context(), *data.ProductSku); err != nil {
		renderErr(w, r, err)
		return
	}

	Render(w, r, &ProductResponse{ProductSku: *data.ProductSku})
}

func (a *ProductApi) Get(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		renderErr(w, r, err)
		return
	}

	Render(w, r, &ProductResponse{ProductSku: product})
}

type ProductRequest struct {
	*allocation.ProductSku
}

func (p *ProductRequest) Bind(_ *http.Request) error {
	if p.ProductSku == nil {
		return errors.New("missing required product fields")
	}
	if p.SkuCode == "" || p.ProductCode == "" {
		return errors.New("skuCode and productCode are required")
	}
	if _, err := allocation.ParseCriteria(string(p.Criteria)); err != nil {
		return err
	}
	if p.PreOrBackOrderLimit < 0 {
		return errors.New("preOrBackOrderLimit must not be negative")
	}
	return nil
}

type ProductResponse struct {
	allocation.ProductSku
}

func (p *ProductResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}
