package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorgate/internal/gateway"
)

const (
	msgStored  = "Embedding stored successfully"
	msgDeleted = "Embedding deleted successfully"
)

func (s *Server) handleHealth(c echo.Context) error {
	if s.health != nil {
		if err := s.health.Health(c.Request().Context()); err != nil {
			s.logger.Warn(c.Request().Context(), "health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, HealthResponse{
				Status: "unavailable",
				Error:  err.Error(),
			})
		}
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "OK", Message: "Server is running"})
}

func (s *Server) handleStore(c echo.Context) error {
	var req StoreRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	var payload gateway.Payload
	if req.Payload != nil {
		payload = gateway.Payload(req.Payload)
	}
	res, err := s.gateway.Store(c.Request().Context(), req.ID, req.Vector, payload)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    RecordData{ID: res.ExternalID, QdrantID: res.InternalID, Message: msgStored},
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	var opts []gateway.SearchOption
	if req.Limit != nil {
		opts = append(opts, gateway.WithLimit(*req.Limit))
	}
	if len(req.Filter) > 0 {
		opts = append(opts, gateway.WithFilter(req.Filter))
	}

	results, err := s.gateway.Search(c.Request().Context(), req.Vector, opts...)
	if err != nil {
		return s.fail(c, err)
	}
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{ID: r.ID, Score: r.Score}
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: SearchData{Results: out}})
}

func (s *Server) handleDelete(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return badRequest(c, "ID parameter is required")
	}

	res, err := s.gateway.Delete(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    RecordData{ID: res.ExternalID, QdrantID: res.InternalID, Message: msgDeleted},
	})
}

// fail writes err with the status for its kind.
func (s *Server) fail(c echo.Context, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	if status != http.StatusBadRequest {
		msg = "Server error: " + msg
	}
	return c.JSON(status, Response{Success: false, Error: msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// StatusFor maps a gateway error to an HTTP status: 400 for validation,
// 502 for engine failures and 500 otherwise.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, gateway.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrEngine):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler renders echo's own errors, such as unknown routes, in the
// API envelope.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "unhandled request error", zap.Error(err))
		msg = "Server error: " + msg
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, Response{Success: false, Error: msg})
	}
	if err != nil {
		s.logger.Warn(c.Request().Context(), "writing error response", zap.Error(err))
	}
}
