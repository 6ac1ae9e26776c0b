package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// LLMPinger verifies the completion endpoint is reachable and authorised.
type LLMPinger interface {
	Ping(ctx context.Context) error
}

// StatusHandler reports backend, database and LLM health.
type StatusHandler struct {
	Store interface {
		Ping(ctx context.Context) error
	}
	LLM LLMPinger
}

func (h *StatusHandler) Register(g *echo.Group) {
	g.GET("/status", h.status)
}

func (h *StatusHandler) status(c echo.Context) error {
	ctx := c.Request().Context()
	resp := StatusResponse{Backend: "ok", Database: "ok", LLM: "ok"}
	if err := h.Store.Ping(ctx); err != nil {
		resp.Database = "error"
	}
	if err := h.LLM.Ping(ctx); err != nil {
		resp.LLM = "error"
	}
	return c.JSON(http.StatusOK, resp)
}
