package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"TradeSentinel/internal/engine"
	"TradeSentinel/internal/ledger"
	"TradeSentinel/internal/model"
	"TradeSentinel/internal/optimizer"
	"TradeSentinel/internal/trader"
)

// Evaluator scores one symbol on demand.
type Evaluator interface {
	Evaluate(ctx context.Context, symbol string) (*engine.Evaluation, error)
}

// Handler implements the JSON endpoints.
type Handler struct {
	pool      *trader.Pool
	engine    Evaluator
	optimizer *optimizer.Optimizer
}

func NewHandler(pool *trader.Pool, eng Evaluator, opt *optimizer.Optimizer) *Handler {
	return &Handler{pool: pool, engine: eng, optimizer: opt}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/personalities", h.Personalities)
	g.GET("/personalities/:id/portfolio", h.Portfolio)
	g.GET("/personalities/:id/trades", h.Trades)
	g.GET("/personalities/:id/stats", h.Stats)
	g.POST("/personalities/:id/reset", h.Reset)
	g.POST("/personalities/:id/tick", h.Tick)
	g.GET("/decisions", h.Decisions)
	g.GET("/evaluate/:symbol", h.Evaluate)
	g.GET("/learnings", h.Learnings)
	g.POST("/learnings", h.StoreLearnings)
	g.DELETE("/learnings", h.ClearLearnings)
}

// PersonalitySummary is one entry of GET /api/personalities.
type PersonalitySummary struct {
	Personality model.Personality  `json:"personality"`
	Portfolio   ledger.Portfolio   `json:"portfolio"`
	Running     bool               `json:"running"`
	LastTick    *trader.TickResult `json:"last_tick,omitempty"`
}

// LearningsRequest is the body of POST /api/learnings.
type LearningsRequest struct {
	Core  model.ModuleWeights `json:"core"`
	Pulse model.ModuleWeights `json:"pulse"`
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Personalities(c echo.Context) error {
	out := make([]PersonalitySummary, 0, len(h.pool.Traders()))
	for _, t := range h.pool.Traders() {
		s := PersonalitySummary{Personality: t.Personality(), Portfolio: t.Portfolio(), Running: t.Running()}
		if lt := t.LastTick(); !lt.StartedAt.IsZero() {
			s.LastTick = &lt
		}
		out = append(out, s)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Portfolio(c echo.Context) error {
	t, err := h.trader(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t.Portfolio())
}

func (h *Handler) Trades(c echo.Context) error {
	t, err := h.trader(c)
	if err != nil {
		return err
	}
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}
	return c.JSON(http.StatusOK, t.Ledger().Trades(limit))
}

func (h *Handler) Stats(c echo.Context) error {
	t, err := h.trader(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t.Ledger().Stats())
}

func (h *Handler) Reset(c echo.Context) error {
	t, err := h.trader(c)
	if err != nil {
		return err
	}
	if !t.Reset() {
		return echo.NewHTTPError(http.StatusConflict, "tick in progress")
	}
	log.Info().Str("component", "api").Str("personality", t.Personality().ID).Msg("ledger reset via api")
	return c.JSON(http.StatusOK, t.Portfolio())
}

func (h *Handler) Tick(c echo.Context) error {
	t, err := h.trader(c)
	if err != nil {
		return err
	}
	res := t.Tick(c.Request().Context())
	if res.Skipped {
		return echo.NewHTTPError(http.StatusConflict, "tick in progress")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Decisions(c echo.Context) error {
	latest := make(map[string]*engine.Evaluation)
	var order []string
	for _, t := range h.pool.Traders() {
		for _, ev := range t.Evaluations() {
			cur, ok := latest[ev.Symbol]
			if !ok {
				order = append(order, ev.Symbol)
			}
			if !ok || ev.EvaluatedAt.After(cur.EvaluatedAt) {
				latest[ev.Symbol] = ev
			}
		}
	}
	out := make([]*engine.Evaluation, 0, len(order))
	for _, s := range order {
		out = append(out, latest[s])
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Evaluate(c echo.Context) error {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "symbol is required")
	}
	ev, err := h.engine.Evaluate(c.Request().Context(), symbol)
	if err != nil && !errors.Is(err, engine.ErrNoPrice) {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *Handler) Learnings(c echo.Context) error {
	learned, ok, err := h.optimizer.Learned(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no learned weights stored")
	}
	return c.JSON(http.StatusOK, learned)
}

func (h *Handler) StoreLearnings(c echo.Context) error {
	var req LearningsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid weights: "+err.Error())
	}
	if req.Core.Sum() <= 0 || req.Pulse.Sum() <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "core and pulse weights need positive mass")
	}
	ctx := c.Request().Context()
	if err := h.optimizer.StoreLearnings(ctx, req.Core, req.Pulse); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	learned, _, err := h.optimizer.Learned(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, learned)
}

func (h *Handler) ClearLearnings(c echo.Context) error {
	if err := h.optimizer.ClearLearnings(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) trader(c echo.Context) (*trader.Trader, error) {
	t, ok := h.pool.Get(c.Param("id"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown personality")
	}
	return t, nil
}
