package api_test

import (
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/sksmith/inventory-allocation/api"
	"github.com/sksmith/inventory-allocation/config"
	"github.com/sksmith/inventory-allocation/testutil"
)

func TestGetEnvironment(t *testing.T) {
	cfg := config.LoadDefaults()
	cfg.Db.Pass = "supersecret"
	envApi := api.NewEnvApi(cfg)
	r := chi.NewRouter()
	envApi.ConfigureRouter(r)

	ts := httptest.NewServer(r)
	defer ts.Close()

	res := testutil.Get(ts.URL+"/", t)

	got := &config.Config{}
	testutil.Unmarshal(res, got, t)

	if got.AppName != cfg.AppName {
		t.Errorf("unexpected app name got=[%v] want=[%v]", got.AppName, cfg.AppName)
	}
	if got.Db.Pass == "supersecret" {
		t.Errorf("database password was not scrubbed")
	}
	if cfg.Db.Pass != "supersecret" {
		t.Errorf("rendering scrubbed the live configuration")
	}
}
