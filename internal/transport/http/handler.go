package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/banking/compliance-engine/internal/domain"
	"github.com/banking/compliance-engine/internal/pipeline"
	"github.com/banking/compliance-engine/internal/pkg/logger"
)

// Handler exposes the compliance pipeline over HTTP.
type Handler struct {
	pipeline *pipeline.Pipeline
	log      *logger.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(p *pipeline.Pipeline, log *logger.Logger) *Handler {
	return &Handler{pipeline: p, log: log.Named("http")}
}

// Register mounts the API routes on the given group.
func (h *Handler) Register(g *echo.Group) {
	g.POST("/screenings", h.screen)
	g.POST("/evaluations", h.evaluateRules)
	g.POST("/decisions", h.decide)
}

// screen runs a standalone sanctions screening for one subject.
func (h *Handler) screen(c echo.Context) error {
	var subject domain.ScreeningSubject
	if err := c.Bind(&subject); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.pipeline.ScreenOnly(c.Request().Context(), &subject)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedSubject) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		h.log.Error("screening request failed", logger.ErrorField(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "screening failed")
	}
	return c.JSON(http.StatusOK, result)
}

// evaluateRules runs only the AML rules for one event.
func (h *Handler) evaluateRules(c echo.Context) error {
	var event domain.TransactionEvent
	if err := c.Bind(&event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	violations, riskScore, err := h.pipeline.EvaluateRulesOnly(c.Request().Context(), &event)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedEvent) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		h.log.Error("rule evaluation request failed", logger.ErrorField(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "evaluation failed")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"violations": violations,
		"risk_score": riskScore,
	})
}

// decide runs the full pipeline for one event and returns the verdict.
func (h *Handler) decide(c echo.Context) error {
	var event domain.TransactionEvent
	if err := c.Bind(&event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	verdict, err := h.pipeline.Evaluate(c.Request().Context(), &event)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedEvent) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		h.log.Error("decision request failed", logger.ErrorField(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "evaluation failed")
	}
	if verdict == nil {
		// Duplicate event: already evaluated, nothing new to report.
		return c.JSON(http.StatusConflict, map[string]string{
			"status": "duplicate",
		})
	}
	return c.JSON(http.StatusOK, verdict)
}
