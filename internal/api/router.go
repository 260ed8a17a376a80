// Package api exposes the market service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"solana-token-market/internal/domain"
	"solana-token-market/internal/observability"
)

// MarketService is the subset of market.Service served over HTTP.
type MarketService interface {
	GetMarketData(ctx context.Context, tokenMint string, circulatingSupply float64) domain.MarketSnapshot
	GetLpLockInfo(ctx context.Context, tokenMint string) domain.LpLockInfo
	CurrentNativeAssetPrice() float64
}

// NativePriceResponse is the body of /v1/native-price.
type NativePriceResponse struct {
	PriceUSD float64 `json:"priceUsd"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter returns the HTTP handler for svc.
func NewRouter(svc MarketService, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/native-price", h.nativePrice)
		r.Get("/tokens/{mint}/market", h.market)
		r.Get("/tokens/{mint}/lp-lock", h.lpLock)
	})
	return r
}

type handler struct {
	svc    MarketService
	logger *zap.Logger
}

func (h *handler) nativePrice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NativePriceResponse{PriceUSD: h.svc.CurrentNativeAssetPrice()})
}

func (h *handler) market(w http.ResponseWriter, r *http.Request) {
	mint := chi.URLParam(r, "mint")

	var supply float64
	if raw := r.URL.Query().Get("supply"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid supply"})
			return
		}
		supply = v
	}

	writeJSON(w, http.StatusOK, h.svc.GetMarketData(r.Context(), mint, supply))
}

func (h *handler) lpLock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetLpLockInfo(r.Context(), chi.URLParam(r, "mint")))
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
