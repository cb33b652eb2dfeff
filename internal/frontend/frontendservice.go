package frontend

import (
	"errors"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jo-hoe/healthdash/internal/assets"
	"github.com/jo-hoe/healthdash/internal/common"
	"github.com/jo-hoe/healthdash/internal/core"
	"github.com/jo-hoe/healthdash/internal/export"
	"github.com/jo-hoe/healthdash/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/microcosm-cc/bluemonday"
)

const (
	dashboardView    = "dashboard.html"
	exploreView      = "explore.html"
	trendingView     = "trending.html"
	infectionView    = "infection.html"
	insightsView     = "insights.html"
	missionView      = "mission.html"
	feedbackView     = "feedback.html"
	feedbackListView = "feedbackview.html"
	privacyView      = "privacy.html"

	csrfField      = "_csrf"
	csrfContextKey = "csrf"
	logoSize       = 64
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
	limiter     *ipRateLimiter
	sanitizer   *bluemonday.Policy
	logo        []byte
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	service := &FrontendService{
		coreService: coreService,
		config:      config,
		limiter:     newIPRateLimiter(config.Feedback.RatePerMinute, config.Feedback.Burst),
		sanitizer:   bluemonday.StrictPolicy(),
	}
	if coreService.LogoEnabled() {
		logo, err := export.LogoPNG(assets.Icon, logoSize)
		if err != nil {
			slog.Warn("failed to rasterize export logo", "error", err)
		} else {
			service.logo = logo
		}
	}
	return service
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	renderer, err := newTemplate()
	if err != nil {
		panic(err)
	}
	e.Renderer = renderer
	if e.Validator == nil {
		e.Validator = &common.GenericEchoValidator{}
	}
	// echo falls back to client-supplied headers when no extractor is set.
	if e.IPExtractor == nil {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	e.GET("/", service.dashboardHandler)
	e.GET("/explore", service.exploreHandler)
	e.POST("/explore", service.exploreHandler)
	e.GET("/trending", service.trendingHandler)
	e.GET("/infection", service.infectionHandler)
	e.GET("/insights", service.insightsHandler)

	e.GET("/export/csv", service.exportVaccinationCSVHandler)
	e.GET("/export/pdf", service.exportVaccinationPDFHandler)
	e.GET("/export/infection/csv", service.exportInfectionCSVHandler)
	e.GET("/export/infection/pdf", service.exportInfectionPDFHandler)

	csrf := middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:" + csrfField,
		ContextKey:     csrfContextKey,
		CookieName:     csrfField,
		CookiePath:     "/feedback",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteStrictMode,
	})
	e.GET("/feedback", service.feedbackHandler, csrf)
	e.POST("/feedback", service.submitFeedbackHandler, csrf)
	e.GET("/secret-feedback-view", service.feedbackListHandler)

	e.GET("/mission", service.missionHandler)
	e.GET("/privacy", service.privacyHandler)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) newPage(title, active string) page {
	return page{Title: title, Active: active, Years: service.coreService.YearRange()}
}

// validationMessage extracts the user facing warning from a *core.ValidationError.
func validationMessage(err error) (string, bool) {
	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message, true
	}
	return "", false
}

func (service *FrontendService) dashboardHandler(ctx echo.Context) error {
	model := dashboardPage{page: service.newPage("Global Health Dashboard", "dashboard")}

	dashboard, err := service.coreService.Dashboard(ctx.Request().Context())
	if err != nil {
		slog.Error("dashboardHandler: failed to load dashboard",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, dashboardView, model)
	}
	model.Dashboard = dashboard
	return ctx.Render(http.StatusOK, dashboardView, model)
}

func (service *FrontendService) exploreHandler(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	filters := core.ParseFilters(ctx.FormValue)
	model := explorePage{page: service.newPage("Explore Vaccination Data", "explore"), Filters: filters}

	options, err := service.coreService.ExploreOptions(reqCtx)
	if err != nil {
		slog.Error("exploreHandler: failed to load filter options",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, exploreView, model)
	}
	model.Options = options
	model.RegionCountriesJSON = toJSON(options.RegionCountries)

	if !filters.HasVaccinationFilters() {
		return ctx.Render(http.StatusOK, exploreView, model)
	}

	records, err := service.coreService.Vaccinations(reqCtx, filters)
	if warning, ok := validationMessage(err); ok {
		model.Warning = warning
		return ctx.Render(http.StatusOK, exploreView, model)
	}
	if err != nil {
		slog.Error("exploreHandler: failed to query vaccinations",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, exploreView, model)
	}

	chart := core.CoverageChart(records, filters.Antigen != "")
	model.HasFilters = true
	model.Records = records
	model.ChartTitle = core.ChartTitle(filters.Country, filters.Region, filters.Antigen)
	model.ChartJSON = chart.JSON()
	model.HasChartData = !chart.Empty()
	model.Averaged = chart.Averaged
	model.ExportQuery = exportQuery(filters)
	return ctx.Render(http.StatusOK, exploreView, model)
}

func (service *FrontendService) infectionHandler(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	filters := core.ParseFilters(ctx.QueryParam)
	model := infectionPage{page: service.newPage("Infection Data", "infection"), Filters: filters}

	options, err := service.coreService.InfectionOptions(reqCtx)
	if err != nil {
		slog.Error("infectionHandler: failed to load filter options",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, infectionView, model)
	}
	model.Options = options

	if !filters.HasInfectionFilters() {
		return ctx.Render(http.StatusOK, infectionView, model)
	}

	records, err := service.coreService.Infections(reqCtx, filters)
	if warning, ok := validationMessage(err); ok {
		model.Warning = warning
		return ctx.Render(http.StatusOK, infectionView, model)
	}
	if err != nil {
		slog.Error("infectionHandler: failed to query infections",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, infectionView, model)
	}

	chart := core.InfectionChart(records)
	model.HasFilters = true
	model.Records = records
	model.ChartJSON = chart.JSON()
	model.HasChartData = !chart.Empty()
	model.ExportQuery = exportQuery(filters)
	return ctx.Render(http.StatusOK, infectionView, model)
}

func (service *FrontendService) trendingHandler(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	filters := core.ParseFilters(ctx.QueryParam)
	model := trendingPage{page: service.newPage("Trending Infections", "trending"), Filters: filters}

	options, err := service.coreService.InfectionOptions(reqCtx)
	if err != nil {
		slog.Error("trendingHandler: failed to load filter options",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, trendingView, model)
	}
	model.Options = options

	trending, err := service.coreService.Trending(reqCtx, filters)
	if warning, ok := validationMessage(err); ok {
		model.Warning = warning
		return ctx.Render(http.StatusOK, trendingView, model)
	}
	if err != nil {
		slog.Error("trendingHandler: failed to query trending infections",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, trendingView, model)
	}
	if trending == nil {
		return ctx.Render(http.StatusOK, trendingView, model)
	}

	summaryJSON, err := core.TrendingSummaryJSON(trending.Summary)
	if err != nil {
		slog.Error("trendingHandler: failed to encode summary",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, trendingView, model)
	}
	detailJSON, err := core.TrendingDetailJSON(trending.Detail)
	if err != nil {
		slog.Error("trendingHandler: failed to encode detail",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, trendingView, model)
	}
	model.HasData = true
	model.Detail = trending.Detail
	model.Summary = trending.Summary
	model.SummaryJSON = summaryJSON
	model.DetailJSON = detailJSON
	return ctx.Render(http.StatusOK, trendingView, model)
}

func (service *FrontendService) insightsHandler(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	filters := core.ParseFilters(ctx.QueryParam)
	model := insightsPage{page: service.newPage("Coverage Insights", "insights"), Filters: filters}

	options, err := service.coreService.InsightsOptions(reqCtx)
	if err != nil {
		slog.Error("insightsHandler: failed to load filter options",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, insightsView, model)
	}
	model.Options = options

	rows, err := service.coreService.Insights(reqCtx, filters)
	if warning, ok := validationMessage(err); ok {
		model.Warning = warning
		return ctx.Render(http.StatusOK, insightsView, model)
	}
	if err != nil {
		slog.Error("insightsHandler: failed to query coverage",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, insightsView, model)
	}
	model.HasFilters = filters.Region != "" || filters.Antigen != "" || filters.YearStart != "" || filters.YearEnd != ""
	model.Rows = rows
	return ctx.Render(http.StatusOK, insightsView, model)
}

func (service *FrontendService) missionHandler(ctx echo.Context) error {
	model := missionPage{page: service.newPage("Mission Statement & Personas", "mission")}

	personas, err := service.coreService.Personas(ctx.Request().Context())
	if err != nil {
		slog.Error("missionHandler: failed to load personas",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, missionView, model)
	}
	model.Personas = personas
	return ctx.Render(http.StatusOK, missionView, model)
}

func (service *FrontendService) privacyHandler(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, privacyView, service.newPage("Privacy Policy", "privacy"))
}

func (service *FrontendService) newFeedbackPage(ctx echo.Context) feedbackPage {
	token, _ := ctx.Get(csrfContextKey).(string)
	return feedbackPage{page: service.newPage("Feedback", "feedback"), CSRFToken: token}
}

func (service *FrontendService) feedbackHandler(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, feedbackView, service.newFeedbackPage(ctx))
}

// sanitize strips all markup and stores the remaining text unescaped; templates escape on output.
func (service *FrontendService) sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(service.sanitizer.Sanitize(value)))
}

func (service *FrontendService) submitFeedbackHandler(ctx echo.Context) error {
	model := service.newFeedbackPage(ctx)

	ip := ctx.RealIP()
	if !service.limiter.allow(ip) {
		metrics.FeedbackTotal.WithLabelValues(metrics.FeedbackRateLimited).Inc()
		slog.Warn("submitFeedbackHandler: rate limit exceeded",
			"status", http.StatusTooManyRequests, "remote_ip", ip)
		model.Warning = msgFeedbackLimited
		return ctx.Render(http.StatusTooManyRequests, feedbackView, model)
	}

	var form feedbackForm
	if err := ctx.Bind(&form); err != nil {
		metrics.FeedbackTotal.WithLabelValues(metrics.FeedbackInvalid).Inc()
		slog.Warn("submitFeedbackHandler: failed to bind form",
			"status", http.StatusBadRequest, "error", err)
		model.Warning = msgFeedbackInvalid
		return ctx.Render(http.StatusBadRequest, feedbackView, model)
	}
	form.Name = service.sanitize(form.Name)
	form.Email = service.sanitize(form.Email)
	form.Feedback = service.sanitize(form.Feedback)
	model.Form = form

	if err := ctx.Validate(&form); err != nil {
		metrics.FeedbackTotal.WithLabelValues(metrics.FeedbackInvalid).Inc()
		slog.Warn("submitFeedbackHandler: invalid feedback",
			"status", http.StatusBadRequest, "error", err)
		model.Warning = msgFeedbackInvalid
		return ctx.Render(http.StatusBadRequest, feedbackView, model)
	}

	id, err := service.coreService.SubmitFeedback(ctx.Request().Context(), form.Name, form.Email, form.Feedback)
	if err != nil {
		metrics.FeedbackTotal.WithLabelValues(metrics.FeedbackFailed).Inc()
		slog.Error("submitFeedbackHandler: failed to store feedback",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgFeedbackFailed
		return ctx.Render(http.StatusInternalServerError, feedbackView, model)
	}

	metrics.FeedbackTotal.WithLabelValues(metrics.FeedbackStored).Inc()
	slog.Info("feedback stored", "feedback_id", id)
	model.Form = feedbackForm{}
	model.Submitted = true
	return ctx.Render(http.StatusOK, feedbackView, model)
}

func (service *FrontendService) feedbackListHandler(ctx echo.Context) error {
	model := feedbackViewPage{page: service.newPage("Submitted Feedback", "")}

	entries, err := service.coreService.Feedback(ctx.Request().Context())
	if err != nil {
		slog.Error("feedbackListHandler: failed to load feedback",
			"status", http.StatusInternalServerError, "error", err)
		model.Error = msgErrorLoadingData
		return ctx.Render(http.StatusInternalServerError, feedbackListView, model)
	}
	model.Entries = entries

	// Prevent caching of submitted personal data
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, feedbackListView, model)
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", assets.Icon)
}
