package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oxsirene/reseller-cli/internal/config"
	"github.com/oxsirene/reseller-cli/internal/store"
)

// fakeSeller describes one seller served by fakeAPI. An empty siret means
// the seller is not located in France.
type fakeSeller struct {
	siret          string
	registryStatus int
	scrapDelay     time.Duration
}

// fakeAPI serves a minimal OxSirene API. By default seller S1 is in France
// and 12.4 km away and seller S2 has no legal code.
type fakeAPI struct {
	*httptest.Server
	scrapSellerCalls atomic.Int32

	productSellers []string
	sellers        map[string]fakeSeller
	// estimating, when set, receives once per distance request before
	// the handler waits on release.
	estimating chan<- struct{}
	release    <-chan struct{}
}

type fakeOption func(*fakeAPI)

// withSellers replaces the product's seller list and the seller table.
func withSellers(productSellers []string, sellers map[string]fakeSeller) fakeOption {
	return func(f *fakeAPI) {
		f.productSellers = productSellers
		f.sellers = sellers
	}
}

// withEstimateGate holds every distance request until release is closed.
func withEstimateGate(estimating chan<- struct{}, release <-chan struct{}) fakeOption {
	return func(f *fakeAPI) {
		f.estimating = estimating
		f.release = release
	}
}

func newFakeAPI(t *testing.T, opts ...fakeOption) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		productSellers: []string{"S1", "S1", "S2"},
		sellers: map[string]fakeSeller{
			"S1": {siret: "12345678900011"},
			"S2": {},
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /token", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]string{"key": "test-key"})
	})
	mux.HandleFunc("POST /product/scrap", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{
			"market_place_id": "amazon",
			"product_name":    "Perceuse",
			"seller_ids":      f.productSellers,
		})
	})
	mux.HandleFunc("GET /seller/scrap/{mp}/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.scrapSellerCalls.Add(1)
		id := r.PathValue("id")
		seller := f.sellers[id]
		if seller.scrapDelay > 0 {
			time.Sleep(seller.scrapDelay)
		}
		if seller.siret != "" {
			reply(w, map[string]string{"seller_id": id, "name": "Shop " + id, "siret": seller.siret})
			return
		}
		reply(w, map[string]string{"seller_id": id})
	})
	mux.HandleFunc("GET /sirene/{code}", func(w http.ResponseWriter, r *http.Request) {
		for _, seller := range f.sellers {
			if seller.registryStatus != 0 && r.PathValue("code") == seller.siret {
				http.Error(w, "sirene failure", seller.registryStatus)
				return
			}
		}
		reply(w, map[string]any{"organizations": []map[string]string{
			{"name": "Outils Lyon", "address": "1 rue de la Paix 69001 Lyon"},
		}})
	})
	mux.HandleFunc("POST /ban", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Address string `json:"address"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		reply(w, map[string]any{
			"address":     in.Address,
			"city":        "Lyon",
			"coordinates": map[string]float64{"lon": 4.8357, "lat": 45.764},
		})
	})
	mux.HandleFunc("GET /ban/{lon}/{lat}", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"address": "Place de l'Hôtel de Ville 75004 Paris", "city": "Paris"})
	})
	mux.HandleFunc("GET /location/{ip}", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"coordinates": map[string]float64{"lon": 2.3522, "lat": 48.8566}})
	})
	mux.HandleFunc("GET /delivery/estimate/", func(w http.ResponseWriter, r *http.Request) {
		if f.estimating != nil {
			f.estimating <- struct{}{}
			<-f.release
		}
		reply(w, map[string]float64{"distance": 12.4})
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// testConfig returns a config pointing at api with retries disabled.
func testConfig(apiURL string) *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseURL:     apiURL,
			TimeoutSecs: 5,
			RateLimit:   1000,
			Retry:       config.RetryConfig{MaxAttempts: 1},
		},
		Store:    config.StoreConfig{Driver: "memory"},
		Estimate: config.EstimateConfig{MaxConcurrentSellers: 4},
		NATS:     config.NATSConfig{SubjectPrefix: "reseller.progress"},
		Server:   config.ServerConfig{Port: 8080, CORSOrigins: []string{"chrome-extension://*"}},
		Log:      config.LogConfig{Level: "error", Format: "console"},
	}
}

func newTestEnv(t *testing.T, opts ...fakeOption) (*appEnv, *fakeAPI) {
	t.Helper()
	api := newFakeAPI(t, opts...)
	env := buildEnv(testConfig(api.URL), store.NewMemory(), nil)
	t.Cleanup(env.Close)
	return env, api
}
