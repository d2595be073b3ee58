// Package server exposes search and ask over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/artsmia/miarag/internal/answer"
	"github.com/artsmia/miarag/internal/errors"
	"github.com/artsmia/miarag/internal/search"
	"github.com/artsmia/miarag/internal/store"
)

// ShutdownTimeout bounds how long in-flight requests get to finish.
const ShutdownTimeout = 10 * time.Second

// Server wires the retrieval engine and ask orchestrator into HTTP handlers.
type Server struct {
	engine       *search.Engine
	orchestrator *answer.Orchestrator
	vectors      store.VectorStore
	addr         string
	logger       *slog.Logger
}

// New builds a Server listening on addr.
func New(engine *search.Engine, orchestrator *answer.Orchestrator, vectors store.VectorStore, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:       engine,
		orchestrator: orchestrator,
		vectors:      vectors,
		addr:         addr,
		logger:       logger,
	}
}

// Handler returns the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResultBody struct {
	Chunk    string            `json:"chunk"`
	Metadata map[string]string `json:"metadata"`
	Distance float32           `json:"distance"`
}

type searchResponse struct {
	Results []searchResultBody `json:"results"`
}

type askRequest struct {
	Query        string `json:"query"`
	TopK         int    `json:"top_k"`
	ModelID      string `json:"model_id"`
	ResponseType string `json:"response_type"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ClientError(errors.CodeInvalidInput, "malformed request body"))
		return
	}

	results, err := s.engine.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.logError(r, err)
		writeError(w, err)
		return
	}

	body := searchResponse{Results: make([]searchResultBody, len(results))}
	for i, res := range results {
		body.Results[i] = searchResultBody{
			Chunk: res.Text,
			Metadata: map[string]string{
				"chunk_id":    res.ChunkID,
				"document_id": res.DocumentID,
			},
			Distance: res.Distance,
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ClientError(errors.CodeInvalidInput, "malformed request body"))
		return
	}

	result, err := s.orchestrator.Ask(r.Context(), answer.Request{
		Query:        req.Query,
		TopK:         req.TopK,
		ModelID:      req.ModelID,
		ResponseType: req.ResponseType,
	})
	if err != nil {
		s.logError(r, err)
		writeError(w, err)
		return
	}

	if result.ResponseType == answer.ResponseAnswerOnly {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(result.Text))
		return
	}
	writeJSON(w, http.StatusOK, result.Full)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"chunks": s.vectors.Count(),
	})
}

func (s *Server) logError(r *http.Request, err error) {
	if errors.IsClient(err) {
		s.logger.Warn("request rejected", "path", r.URL.Path, "error", err)
		return
	}
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
}

// writeError maps error categories onto HTTP statuses: client errors are
// 400, everything else 500. The body mirrors {"detail": ...}.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.IsClient(err) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorBody{Detail: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
