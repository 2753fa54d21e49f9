package api

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/sksmith/inventory-allocation/config"
)

type EnvApi struct {
	cfg *config.Config
}

func NewEnvApi(cfg *config.Config) *EnvApi {
	return &EnvApi{cfg: cfg}
}

func (a *EnvApi) ConfigureRouter(r chi.Router) {
	r.Get("/", a.Get)
}

func (a *EnvApi) Get(w http.ResponseWriter, r *http.Request) {
	Render(w, r, NewEnvResponse(*a.cfg))
}

type EnvResponse struct {
	config.Config
}

func NewEnvResponse(c config.Config) *EnvResponse {
	return &EnvResponse{Config: c}
}

// Render masks every credential before the configuration leaves the process.
func (er *EnvResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	er.Config = er.Config.Scrub()
	return nil
}
