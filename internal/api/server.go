// Package api exposes trained word embeddings over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/gruwiki/internal/embeddings"
)

const (
	defaultNeighbors = 10
	maxNeighbors     = 1000
)

type Server struct {
	provider StoreProvider
	queries  *QueryStore
	clock    func() time.Time
}

func NewServer(provider StoreProvider, queries *QueryStore) *Server {
	if queries == nil {
		queries = NewQueryStore(0)
	}
	return &Server{
		provider: provider,
		queries:  queries,
		clock:    time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/models", s.handleListModels)
	e.GET("/v1/vocab/size", s.handleVocabSize)
	e.POST("/v1/analogy", s.handleAnalogy)
	e.GET("/v1/analogy/:id", s.handleGetAnalogy)
	e.DELETE("/v1/analogy/:id", s.handleDeleteAnalogy)
	e.GET("/v1/neighbors/:word", s.handleNeighbors)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListModels(c *echo.Context) error {
	models := []string{}
	if lister, ok := s.provider.(interface {
		ListModels() ([]string, error)
	}); ok {
		discovered, err := lister.ListModels()
		if err != nil {
			return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
		}
		models = append(models, discovered...)
	}
	return c.JSON(http.StatusOK, ModelList{Object: "list", Data: models})
}

func (s *Server) handleVocabSize(c *echo.Context) error {
	model := c.QueryParam("model")
	store, err := s.store(c, model)
	if err != nil {
		return s.writeStoreError(c, err)
	}
	return c.JSON(http.StatusOK, VocabSizeResponse{Model: model, Size: store.Vocab().Size(), Dim: store.Dim()})
}

func (s *Server) handleAnalogy(c *echo.Context) error {
	req, err := decodeJSON[AnalogyRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := validateAnalogy(&req); err != nil {
		return writeBadRequest(c, err.Error())
	}
	metric, err := embeddings.ParseMetric(req.Metric)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), "metric")
	}
	store, err := s.store(c, req.Model)
	if err != nil {
		return s.writeStoreError(c, err)
	}
	match, err := store.Analogy(req.A, req.B, req.C, metric)
	if err != nil {
		if errors.Is(err, embeddings.ErrUnknownWord) {
			return writeNotFound(c, err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
	}

	resp := AnalogyResponse{
		ID:        newQueryID("analogy"),
		Object:    "analogy",
		CreatedAt: s.clock().Unix(),
		Model:     req.Model,
		A:         req.A,
		B:         req.B,
		C:         req.C,
		Metric:    string(metric),
		Word:      match.Word,
		Distance:  match.Distance,
	}
	s.queries.Put(resp)
	return c.JSON(http.StatusOK, resp)
}

func validateAnalogy(req *AnalogyRequest) error {
	req.A, req.B, req.C = normalizeWord(req.A), normalizeWord(req.B), normalizeWord(req.C)
	if req.A == "" || req.B == "" || req.C == "" {
		return newInvalidRequest("a, b and c are required")
	}
	return nil
}

func (s *Server) handleGetAnalogy(c *echo.Context) error {
	id := c.Param("id")
	resp, ok := s.queries.Get(id)
	if !ok {
		return writeNotFound(c, fmt.Sprintf("analogy %q not found", id))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteAnalogy(c *echo.Context) error {
	id := c.Param("id")
	if !s.queries.Delete(id) {
		return writeNotFound(c, fmt.Sprintf("analogy %q not found", id))
	}
	return c.JSON(http.StatusOK, map[string]any{"id": id, "object": "analogy", "deleted": true})
}

func (s *Server) handleNeighbors(c *echo.Context) error {
	word := normalizeWord(c.Param("word"))
	k, err := parseK(c.QueryParam("k"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), "k")
	}
	model := c.QueryParam("model")
	store, err := s.store(c, model)
	if err != nil {
		return s.writeStoreError(c, err)
	}
	matches, err := store.Neighbors(word, k)
	if err != nil {
		if errors.Is(err, embeddings.ErrUnknownWord) {
			return writeNotFound(c, err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
	}
	out := NeighborsResponse{Model: model, Word: word, Neighbors: make([]Neighbor, len(matches))}
	for i, m := range matches {
		out.Neighbors[i] = Neighbor{Word: m.Word, Distance: m.Distance}
	}
	return c.JSON(http.StatusOK, out)
}

func parseK(raw string) (int, error) {
	if raw == "" {
		return defaultNeighbors, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k <= 0 || k > maxNeighbors {
		return 0, newInvalidRequest(fmt.Sprintf("k must be an integer in [1, %d]", maxNeighbors))
	}
	return k, nil
}

func (s *Server) store(c *echo.Context, model string) (*embeddings.Store, error) {
	if s.provider == nil {
		return nil, errors.New("embedding provider not configured")
	}
	return s.provider.Store(c.Request().Context(), model)
}

func (s *Server) writeStoreError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return writeBadRequest(c, err.Error())
	case errors.Is(err, ErrModelNotFound):
		return writeNotFound(c, err.Error())
	}
	return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
}
