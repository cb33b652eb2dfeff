package backend

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/healthdash/internal/core"
	"github.com/jo-hoe/healthdash/internal/metrics"
	"github.com/labstack/echo/v4"
)

type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", s.probeHandler)
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api")
	api.GET("/countries", s.countriesHandler)
	api.GET("/vaccinations", s.vaccinationsHandler)
	api.GET("/infections", s.infectionsHandler)
}

func (s *APIService) probeHandler(ctx echo.Context) error {
	if !s.coreService.IsHealthy() {
		slog.Warn("probeHandler: database not reachable", "status", http.StatusServiceUnavailable)
		return ctx.String(http.StatusServiceUnavailable, "database not reachable")
	}
	return ctx.String(http.StatusOK, "ok")
}

// countriesHandler lists the countries of ?region=, or all countries without one.
func (s *APIService) countriesHandler(ctx echo.Context) error {
	countries, err := s.coreService.CountriesByRegion(ctx.Request().Context(), ctx.QueryParam("region"))
	if err != nil {
		slog.Error("countriesHandler: failed to list countries",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to list countries"})
	}
	return ctx.JSON(http.StatusOK, countries)
}

func (s *APIService) vaccinationsHandler(ctx echo.Context) error {
	records, err := s.coreService.Vaccinations(ctx.Request().Context(), core.ParseFilters(ctx.QueryParam))
	if err != nil {
		return s.queryError(ctx, "vaccinationsHandler", err)
	}
	return ctx.JSON(http.StatusOK, records)
}

func (s *APIService) infectionsHandler(ctx echo.Context) error {
	records, err := s.coreService.Infections(ctx.Request().Context(), core.ParseFilters(ctx.QueryParam))
	if err != nil {
		return s.queryError(ctx, "infectionsHandler", err)
	}
	return ctx.JSON(http.StatusOK, records)
}

func (s *APIService) queryError(ctx echo.Context, handler string, err error) error {
	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: validationErr.Message})
	}
	slog.Error(handler+": failed to query records",
		"status", http.StatusInternalServerError, "error", err)
	return ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load data"})
}
