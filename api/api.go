package api

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sksmith/inventory-allocation/config"
)

const (
	ApiPath        = "/api/v1"
	InventoryPath  = "/inventory"
	AllocationPath = "/allocation"
	ProductPath    = "/product"
	CartOrderPath  = "/cartorder"
)

func ConfigureRouter(cfg *config.Config, invSvc InventoryService, allocSvc AllocationService, cartSvc CartOrderService) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost*", "https://localhost*"},
		AllowedMethods:   []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(Logging)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("UP"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/env", NewEnvApi(cfg).ConfigureRouter)
	r.Route(ApiPath, func(r chi.Router) {
		r.Route(InventoryPath, NewInventoryApi(invSvc).ConfigureRouter)
		r.Route(AllocationPath, NewAllocationApi(allocSvc).ConfigureRouter)
		r.Route(ProductPath, NewProductApi(allocSvc).ConfigureRouter)
		r.Route(CartOrderPath, NewCartOrderApi(cartSvc).ConfigureRouter)
	})

	return r
}
