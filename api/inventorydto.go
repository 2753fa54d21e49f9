package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/sksmith/inventory-allocation/core/inventory"
)

type CreateInventoryRequest struct {
	*inventory.Inventory
}

func (c *CreateInventoryRequest) Bind(_ *http.Request) error {
	if c.Inventory == nil {
		return errors.New("missing required inventory fields")
	}
	if c.SkuCode == "" || c.WarehouseID == "" {
		return errors.New("skuCode and warehouseId are required")
	}
	if c.QuantityOnHand < 0 || c.AllocatedQuantity < 0 || c.ReservedQuantity < 0 {
		return errors.New("quantities must not be negative")
	}
	return nil
}

type AdjustmentRequest struct {
	Quantity   int64  `json:"quantity"`
	Originator string `json:"originator"`
}

func (a *AdjustmentRequest) Bind(_ *http.Request) error {
	if a.Quantity == 0 {
		return errors.New("quantity must not be zero")
	}
	if a.Originator == "" {
		return errors.New("originator is required")
	}
	return nil
}

type InventoryResponse struct {
	inventory.Inventory
}

func (i *InventoryResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

type DtoResponse struct {
	inventory.Dto
}

func (d *DtoResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

type ExecutionResultResponse struct {
	inventory.ExecutionResult
}

func (e *ExecutionResultResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

type JournalResponse struct {
	inventory.Journal
}

func (j *JournalResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewJournalListResponse(entries []inventory.Journal) []render.Renderer {
	list := make([]render.Renderer, 0)
	for _, entry := range entries {
		list = append(list, &JournalResponse{Journal: entry})
	}
	return list
}

type AuditResponse struct {
	inventory.Audit
}

func (a *AuditResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewAuditListResponse(audits []inventory.Audit) []render.Renderer {
	list := make([]render.Renderer, 0)
	for _, audit := range audits {
		list = append(list, &AuditResponse{Audit: audit})
	}
	return list
}
