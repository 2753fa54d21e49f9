package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/inventory-allocation/core/inventory"
)

type InventoryService interface {
	ProcessCommand(ctx context.Context, cmd inventory.Command, check inventory.Check, hooks ...inventory.Hook) (inventory.ExecutionResult, error)
	CommandFactory() inventory.CommandFactory

	CreateInventory(ctx context.Context, inv inventory.Inventory) error
	GetInventory(ctx context.Context, skuCode, warehouseID string) (inventory.Dto, error)

	GetJournal(ctx context.Context, key inventory.Key, limit, offset int) ([]inventory.Journal, error)
	GetAudits(ctx context.Context, key inventory.Key, limit, offset int) ([]inventory.Audit, error)

	Compact(ctx context.Context, key inventory.Key) (inventory.Inventory, error)
}

type InventoryApi struct {
	service InventoryService
}

func NewInventoryApi(service InventoryService) *InventoryApi {
	return &InventoryApi{service: service}
}

const CtxKeyInventory CtxKey = "inventoryKey"

func (a *InventoryApi) ConfigureRouter(r chi.Router) {
	r.Put("/", a.Create)

	r.Route("/{sku}/{warehouse}", func(r chi.Router) {
		r.Use(a.KeyCtx)
		r.Get("/", a.Get)
		r.With(Paginate).Get("/journal", a.GetJournal)
		r.With(Paginate).Get("/audit", a.GetAudits)
		r.Put("/adjustment", a.Adjust)
		r.Put("/compaction", a.Compact)
	})
}

func (a *InventoryApi) KeyCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := inventory.NewKey(chi.URLParam(r, "sku"), chi.URLParam(r, "warehouse"))
		if err != nil {
			Render(w, r, ErrInvalidRequest(err))
			return
		}

		ctx := context.WithValue(r.Context(), CtxKeyInventory, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *InventoryApi) Create(w http.ResponseWriter, r *http.Request) {
	data := &CreateInventoryRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := a.service.CreateInventory(r.Context(), *data.Inventory); err != nil {
		renderErr(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	Render(w, r, &InventoryResponse{Inventory: *data.Inventory})
}

func (a *InventoryApi) Get(w http.ResponseWriter, r *http.Request) {
	key := r.Context().Value(CtxKeyInventory).(inventory.Key)

	dto, err := a.service.GetInventory(r.Context(), key.SkuCode, key.WarehouseID)
	if err != nil {
		renderErr(w, r, err)
		return
	}

	Render(w, r, &DtoResponse{Dto: dto})
}

func (a *InventoryApi) GetJournal(w http.ResponseWriter, r *http.Request) {
	key := r.Context().Value(CtxKeyInventory).(inventory.Key)
	limit := r.Context().Value(CtxKeyLimit).(int)
	offset := r.Context().Value(CtxKeyOffset).(int)

	entries, err := a.service.GetJournal(r.Context(), key, limit, offset)
	if err != nil {
		renderErr(w, r, err)
		return
	}

	RenderList(w, r, NewJournalListResponse(entries))
}

func (a *InventoryApi) GetAudits(w http.ResponseWriter, r *http.Request) {
	key := r.Context().Value(CtxKeyInventory).(inventory.Key)
	limit := r.Context().Value(CtxKeyLimit).(int)
	offset := r.Context().Value(CtxKeyOffset).(int)

	audits, err := a.service.GetAudits(r.Context(), key, limit, offset)
	if err != nil {
		renderErr(w, r, err)
		return
	}

	RenderList(w, r, NewAuditListResponse(audits))
}

func (a *InventoryApi) Adjust(w http.ResponseWriter, r *http.Request) {
	key := r.Context().Value(CtxKeyInventory).(inventory.Key)

	data := &AdjustmentRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	cmd := a.service.CommandFactory().Adjust(key, data.Quantity, data.Originator)
	result, err := a.service.ProcessCommand(r.Context(), cmd, nil)
	if err != nil {
		renderErr(w, r, err)
		return
	}

	log.Info().
		Str("sku", key.SkuCode).
		Str("warehouse", key.WarehouseID).
		Int64("quantity", data.Quantity).
		Str("originator", data.Originator).
		Msg("inventory adjusted")

	Render(w, r, &ExecutionResultResponse{ExecutionResult: result})
}

func (a *InventoryApi) Compact(w http.ResponseWriter, r *http.Request) {
	key := r.Context().Value(CtxKeyInventory).(inventory.Key)

	snapshot, err := a.service.Compact(r.Context(), key)
	if err != nil {
		renderErr(w, r, err)
		return
	}

	Render(w, r, &InventoryResponse{Inventory: snapshot})
}
