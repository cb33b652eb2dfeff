package frontend

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/healthdash/internal/core"
	"github.com/jo-hoe/healthdash/internal/export"
	"github.com/jo-hoe/healthdash/internal/metrics"
	"github.com/labstack/echo/v4"
)

const (
	mimeCSV = "text/csv; charset=utf-8"
	mimePDF = "application/pdf"
)

func (service *FrontendService) exportVaccinationCSVHandler(ctx echo.Context) error {
	return service.exportVaccinations(ctx, export.ExtCSV)
}

func (service *FrontendService) exportVaccinationPDFHandler(ctx echo.Context) error {
	return service.exportVaccinations(ctx, export.ExtPDF)
}

func (service *FrontendService) exportInfectionCSVHandler(ctx echo.Context) error {
	return service.exportInfections(ctx, export.ExtCSV)
}

func (service *FrontendService) exportInfectionPDFHandler(ctx echo.Context) error {
	return service.exportInfections(ctx, export.ExtPDF)
}

func (service *FrontendService) exportVaccinations(ctx echo.Context, format string) error {
	filters := core.ParseFilters(ctx.QueryParam)

	records, err := service.coreService.Vaccinations(ctx.Request().Context(), filters)
	if warning, ok := validationMessage(err); ok {
		slog.Warn("exportVaccinations: invalid filters",
			"status", http.StatusBadRequest, "format", format, "warning", warning)
		return ctx.String(http.StatusBadRequest, warning)
	}
	if err != nil {
		slog.Error("exportVaccinations: failed to query vaccinations",
			"status", http.StatusInternalServerError, "format", format, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to export data")
	}

	table := export.VaccinationTable(records, filters.VaccinationLabels())
	opts := export.PDFOptions{Logo: service.logo}
	if format == export.ExtPDF {
		title := core.ChartTitle(filters.Country, filters.Region, filters.Antigen)
		chart, err := export.CoverageChartPNG(title, core.CoverageChart(records, filters.Antigen != ""))
		if err != nil {
			slog.Warn("exportVaccinations: failed to render chart", "error", err)
		}
		opts.Chart = chart
	}
	return service.writeExport(ctx, metrics.DatasetVaccination, format, export.VaccinationFilename(filters, format), table, opts)
}

func (service *FrontendService) exportInfections(ctx echo.Context, format string) error {
	filters := core.ParseFilters(ctx.QueryParam)

	records, err := service.coreService.Infections(ctx.Request().Context(), filters)
	if warning, ok := validationMessage(err); ok {
		slog.Warn("exportInfections: invalid filters",
			"status", http.StatusBadRequest, "format", format, "warning", warning)
		return ctx.String(http.StatusBadRequest, warning)
	}
	if err != nil {
		slog.Error("exportInfections: failed to query infections",
			"status", http.StatusInternalServerError, "format", format, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to export data")
	}

	table := export.InfectionTable(records, filters.InfectionLabels())
	opts := export.PDFOptions{Logo: service.logo}
	return service.writeExport(ctx, metrics.DatasetInfection, format, export.InfectionFilename(filters, format), table, opts)
}

// writeExport buffers the whole document so that a rendering failure can still become a 500.
func (service *FrontendService) writeExport(ctx echo.Context, dataset, format, filename string, table export.Table, opts export.PDFOptions) error {
	var (
		buf         bytes.Buffer
		contentType string
		err         error
	)
	switch format {
	case export.ExtCSV:
		contentType = mimeCSV
		err = export.WriteCSV(&buf, table, true)
	case export.ExtPDF:
		contentType = mimePDF
		err = export.WritePDF(&buf, table, opts)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		slog.Error("writeExport: failed to render export",
			"status", http.StatusInternalServerError, "dataset", dataset, "format", format, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to export data")
	}

	metrics.ExportsTotal.WithLabelValues(dataset, format).Inc()
	ctx.Response().Header().Set(echo.HeaderContentDisposition, export.ContentDisposition(filename))
	return ctx.Blob(http.StatusOK, contentType, buf.Bytes())
}
