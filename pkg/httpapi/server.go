// Package httpapi exposes the query engine over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps the size of a /query request body.
const maxBodyBytes = 1 << 20

// Handler answers a query with a markdown document.
type Handler interface {
	Handle(ctx context.Context, query string) (string, error)
}

// Server serves POST /query and GET /health.
type Server struct {
	handler Handler
	log     *slog.Logger
}

// NewServer creates a Server. A nil log discards output.
func NewServer(handler Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{handler: handler, log: log}
}

// Router returns the server's routes with middleware applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Post("/query", s.query)
	r.Get("/health", s.health)

	return r
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		msg := "invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "empty request body"
		}
		writeJSONStatus(w, errorResponse{Error: msg}, http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeJSONStatus(w, errorResponse{Error: "query is required"}, http.StatusBadRequest)
		return
	}

	doc, err := s.handler.Handle(r.Context(), req.Query)
	if err != nil {
		s.log.ErrorContext(r.Context(), "query failed",
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeJSONStatus(w, errorResponse{Error: err.Error()}, http.StatusBadGateway)
		return
	}

	writeJSONStatus(w, queryResponse{Response: doc}, http.StatusOK)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func writeJSONStatus(w http.ResponseWriter, value any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.InfoContext(r.Context(), "http request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
// It returns nil after a shutdown triggered by ctx.
func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.InfoContext(ctx, "http server listening", "addr", addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
