package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/oxsirene/reseller-cli/internal/correlation"
	"github.com/oxsirene/reseller-cli/internal/estimate"
	"github.com/oxsirene/reseller-cli/internal/marketplace"
	"github.com/oxsirene/reseller-cli/internal/model"
)

// maxRequestBytes caps request bodies.
const maxRequestBytes = 1 << 20

type server struct {
	env *appEnv
}

// newRouter builds the HTTP API used by the browser extension.
func newRouter(env *appEnv, corsOrigins []string) http.Handler {
	s := &server{env: env}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", correlation.Header},
		ExposedHeaders: []string{correlation.Header},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(env.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/estimates", s.handleEstimate)
		r.Get("/estimates/last", s.handleLastEstimate)
		r.Get("/location", s.handleGetLocation)
		r.Put("/location", s.handlePutLocation)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	circuits := map[string]string{}
	if s.env.Policy != nil && s.env.Policy.Breakers != nil {
		for op, state := range s.env.Policy.Breakers.States() {
			circuits[op] = state.String()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "circuits": circuits})
}

type estimateRequest struct {
	URL string `json:"url"`
}

func (s *server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if _, err := marketplace.CleanURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, "url must be absolute")
		return
	}

	// A consumer closing its UI does not abort the run; the result is
	// still stored for GET /v1/estimates/last.
	ctx := context.WithoutCancel(r.Context())
	cid, err := s.requestCorrelationID(r)
	if err != nil {
		zap.L().Error("correlation id", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	w.Header().Set(correlation.Header, cid.String())

	set, err := s.env.Orchestrator.Run(ctx, req.URL, cid)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, set)
	case errors.Is(err, estimate.ErrNoDeliveryLocation):
		writeError(w, http.StatusConflict, "delivery location is not set")
	case estimate.IsFatal(err):
		writeError(w, http.StatusBadGateway, "product page could not be scraped")
	default:
		zap.L().Error("estimate failed", zap.String("correlation_id", cid.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "estimate failed")
	}
}

// requestCorrelationID reuses the caller's ID so its logs line up with ours.
func (s *server) requestCorrelationID(r *http.Request) (correlation.ID, error) {
	if id := strings.TrimSpace(r.Header.Get(correlation.Header)); id != "" {
		return correlation.ID(id), nil
	}
	return s.env.CorrelationID(r.Context())
}

func (s *server) handleLastEstimate(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	if u == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if _, err := marketplace.CleanURL(u); err != nil {
		writeError(w, http.StatusBadRequest, "url must be absolute")
		return
	}
	set, err := s.env.Orchestrator.Last(r.Context(), u)
	if err != nil {
		zap.L().Error("load last estimate", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stored estimate unavailable")
		return
	}
	if set == nil {
		writeError(w, http.StatusNotFound, "no stored estimate for this url")
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := s.env.Session.DeliveryLocation(r.Context())
	if err != nil {
		zap.L().Error("load delivery location", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "location unavailable")
		return
	}
	if loc == nil {
		writeError(w, http.StatusNotFound, "delivery location is not set")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

type locationRequest struct {
	Address     string             `json:"address"`
	Coordinates *model.Coordinates `json:"coordinates"`
	IP          string             `json:"ip"`
}

func (s *server) handlePutLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	cid, err := s.requestCorrelationID(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}

	var loc *model.Location
	switch {
	case req.Coordinates != nil:
		loc, err = s.env.Locator.FromCoordinates(ctx, cid.String(), *req.Coordinates)
	case strings.TrimSpace(req.Address) != "":
		loc, err = s.env.Locator.FromAddress(ctx, cid.String(), req.Address)
	default:
		ip := req.IP
		if ip == "" {
			ip = publicRemoteIP(r)
		}
		loc, err = s.env.Locator.FromIP(ctx, cid.String(), ip)
	}
	if err != nil {
		zap.L().Warn("locate failed", zap.String("correlation_id", cid.String()), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, "location could not be resolved")
		return
	}
	if err := s.env.Session.SetDeliveryLocation(ctx, *loc); err != nil {
		writeError(w, http.StatusInternalServerError, "location could not be saved")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// publicRemoteIP returns the caller's address when it is routable. For
// local callers it returns "" so the API locates the server instead.
func publicRemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
