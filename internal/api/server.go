// internal/api/server.go
// Package api HTTP-поверхность: котировка, подготовка и исполнение обмена.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/swap"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// SwapPreparer котировка и подготовка транзакции.
type SwapPreparer interface {
	Prepare(ctx context.Context, req swap.PrepareRequest) types.SwapResponse
	QuoteOnly(ctx context.Context, req swap.QuoteOnlyRequest) types.SwapResponse
}

// SwapExecutor отправка подписанной транзакции.
type SwapExecutor interface {
	Execute(ctx context.Context, req swap.ExecuteRequest) types.SwapResponse
}

// Config параметры сервера
type Config struct {
	Addr string
	// DefaultEndpoint вызывается, если в запросе нет endpoint
	DefaultEndpoint func() string
	// DefaultSlippageBps подставляется, если в запросе нет поля slippageBps
	DefaultSlippageBps uint16
}

type Server struct {
	cfg      Config
	preparer SwapPreparer
	executor SwapExecutor
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	now      func() time.Time
}

func NewServer(cfg Config, preparer SwapPreparer, executor SwapExecutor, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:      cfg,
		preparer: preparer,
		executor: executor,
		gatherer: gatherer,
		logger:   logger.Named("api"),
		now:      time.Now,
	}
}

// Handler маршруты сервера.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /v1/quote", s.handleQuote)
	mux.HandleFunc("POST /v1/prepare", s.handlePrepare)
	mux.HandleFunc("POST /v1/execute", s.handleExecute)

	return mux
}

// Run слушает cfg.Addr до отмены ctx, затем корректно останавливается.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info("Stopping HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req swap.QuoteOnlyRequest
	raw, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	req.Endpoint = s.endpoint(req.Endpoint)
	req.SlippageBps = s.slippage(raw, req.SlippageBps)
	s.respond(w, s.preparer.QuoteOnly(r.Context(), req))
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	var req swap.PrepareRequest
	raw, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	req.Endpoint = s.endpoint(req.Endpoint)
	req.SlippageBps = s.slippage(raw, req.SlippageBps)
	s.respond(w, s.preparer.Prepare(r.Context(), req))
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req swap.ExecuteRequest
	if _, ok := s.decode(w, r, &req); !ok {
		return
	}
	req.Endpoint = s.endpoint(req.Endpoint)
	s.respond(w, s.executor.Execute(r.Context(), req))
}

func (s *Server) endpoint(requested string) string {
	if requested != "" || s.cfg.DefaultEndpoint == nil {
		return requested
	}
	return s.cfg.DefaultEndpoint()
}

// slippage явный slippageBps, включая 0, сохраняется; отсутствующее поле
// заменяется значением по умолчанию.
func (s *Server) slippage(raw []byte, requested uint16) uint16 {
	var present struct {
		SlippageBps *uint16 `json:"slippageBps"`
	}
	if err := json.Unmarshal(raw, &present); err == nil && present.SlippageBps != nil {
		return requested
	}
	return s.cfg.DefaultSlippageBps
}

// decode разбирает тело и возвращает его байты; при ошибке сам пишет ответ 400
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		err = dec.Decode(dst)
	}
	if err != nil {
		resp := types.ErrorResponse(
			&types.InvalidParameterError{Field: "body", Reason: err.Error()},
			types.NewFailureMetadata(s.now(), types.StageStart),
		)
		s.write(w, http.StatusBadRequest, resp)
		return nil, false
	}
	return raw, true
}

func (s *Server) respond(w http.ResponseWriter, resp types.SwapResponse) {
	status := http.StatusOK
	if !resp.Succeeded() {
		status = http.StatusUnprocessableEntity
	}
	s.write(w, status, resp)
}

func (s *Server) write(w http.ResponseWriter, status int, resp types.SwapResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}
