package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
	"github.com/sksmith/inventory-allocation/api"
	"github.com/sksmith/inventory-allocation/config"
	"github.com/sksmith/inventory-allocation/core/allocation"
	"github.com/sksmith/inventory-allocation/core/cartorder"
	"github.com/sksmith/inventory-allocation/core/inventory"
	"github.com/sksmith/inventory-allocation/testutil"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func TestCorsConfig(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{origin: "https://evilorigin.com", want: ""},
		{origin: "http://evilorigin.com", want: ""},
		{origin: "http://localhost:8080", want: "http://localhost:8080"},
		{origin: "http://localhost:3000", want: "http://localhost:3000"},
		{origin: "https://localhost:8080", want: "https://localhost:8080"},
		{origin: "https://localhostevil:3000", want: ""},
	}

	r := getRouter()
	ts := httptest.NewServer(r)
	defer ts.Close()

	client := http.DefaultClient
	url := ts.URL + api.ApiPath + api.InventoryPath + "/sku1/wh1/"

	for _, test := range tests {
		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Add("Origin", test.origin)

		res, err := client.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()

		got := res.Header.Get("Access-Control-Allow-Origin")
		if got != test.want {
			t.Errorf("failed cors test got=[%v] want=[%v]", got, test.want)
		}
	}
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(getRouter())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK || string(body) != "UP" {
		t.Errorf("unexpected health response status=%d body=%s", res.StatusCode, body)
	}
}

func TestRoutesMounted(t *testing.T) {
	ts := httptest.NewServer(getRouter())
	defer ts.Close()

	tests := []struct {
		method string
		path   string
		body   interface{}
		want   int
	}{
		{method: http.MethodGet, path: api.ApiPath + api.InventoryPath + "/sku1/wh1/", want: http.StatusOK},
		{method: http.MethodGet, path: api.ApiPath + api.InventoryPath + "/sku1/wh1/journal", want: http.StatusOK},
		{method: http.MethodGet, path: api.ApiPath + api.ProductPath + "/sku1", want: http.StatusOK},
		{
			method: http.MethodPut,
			path:   api.ApiPath + api.CartOrderPath + "/",
			body:   api.CartOrderRequest{CartGUID: "cart1", StoreCode: "store1"},
			want:   http.StatusOK,
		},
		{method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{method: http.MethodGet, path: api.ApiPath + "/unknown", want: http.StatusNotFound},
	}

	for _, test := range tests {
		res := testutil.SendRequest(test.method, ts.URL+test.path, test.body, t)
		res.Body.Close()
		if res.StatusCode != test.want {
			t.Errorf("%s %s status got=%d want=%d", test.method, test.path, res.StatusCode, test.want)
		}
	}
}

func getRouter() chi.Router {
	cfg := config.LoadDefaults()
	return api.ConfigureRouter(cfg, inventory.NewMockService(), allocation.NewMockService(), cartorder.NewMockService())
}
