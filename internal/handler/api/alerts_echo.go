package api

import (
	"ZPulse/internal/domain/models"
	domrepo "ZPulse/internal/domain/repository"
	"ZPulse/internal/engine"
	icache "ZPulse/internal/service/cache"
	xhttp "ZPulse/pkg/http"
	xlogger "ZPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AlertsEchoHandler serves recent alerts and live engine state.
type AlertsEchoHandler struct {
	logger *xlogger.Logger
	eng    *engine.Engine
	cache  *icache.AlertCache
	store  domrepo.AlertStore
}

// NewAlertsEchoHandler creates the handler. cache and store may be nil; the
// alerts endpoint falls back from cache to store to empty.
func NewAlertsEchoHandler(logger *xlogger.Logger, eng *engine.Engine, cache *icache.AlertCache, store domrepo.AlertStore) *AlertsEchoHandler {
	return &AlertsEchoHandler{logger: logger, eng: eng, cache: cache, store: store}
}

func (h *AlertsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/alerts", h.Alerts)
	g.GET("/state/:symbol", h.State)
	g.GET("/symbols", h.Symbols)
}

// Alerts returns the newest alerts, optionally filtered by symbol.
func (h *AlertsEchoHandler) Alerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if h.cache != nil {
		alerts, hit, err := h.cache.Recent(req.Symbol, req.Limit)
		if err != nil {
			h.logger.Warn("alert cache read failed", xlogger.Error(err))
		}
		if hit {
			return xhttp.SuccessResponse(c, alerts)
		}
	}

	if h.store != nil {
		alerts, err := h.store.Recent(c.Request().Context(), req.Symbol, req.Limit)
		if err != nil {
			h.logger.Error("alert store read failed", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.SuccessResponse(c, alerts)
	}

	return xhttp.SuccessResponse(c, []*models.Alert{})
}

// State returns per-timeframe estimator snapshots for one symbol.
func (h *AlertsEchoHandler) State(c echo.Context) error {
	req := &models.StateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snaps := h.eng.Snapshot(req.Symbol)
	if snaps == nil {
		return xhttp.NotFoundResponse(c, "symbol has no state yet")
	}
	return xhttp.SuccessResponse(c, snaps)
}

// Symbols lists the symbols the engine has seen.
func (h *AlertsEchoHandler) Symbols(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.eng.Symbols())
}
