package frontend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jo-hoe/healthdash/internal/backend/database"
	"github.com/jo-hoe/healthdash/internal/core"
	"github.com/jo-hoe/healthdash/internal/export"
	"github.com/jo-hoe/healthdash/internal/metrics"
	"github.com/jo-hoe/healthdash/internal/testutil"
	"github.com/labstack/echo/v4"
	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

// failingQueries keeps the lookups working but fails every fact query.
type failingQueries struct {
	database.DatabaseService
}

func (failingQueries) QueryVaccinations(context.Context, database.Filter) ([]database.VaccinationRecord, error) {
	return nil, errStoreDown
}

func (failingQueries) QueryInfections(context.Context, database.Filter) ([]database.InfectionRecord, error) {
	return nil, errStoreDown
}

func (failingQueries) GetDashboardSummary(context.Context) (database.DashboardSummary, error) {
	return database.DashboardSummary{}, errStoreDown
}

func newTestConfig() *core.ServiceConfig {
	return &core.ServiceConfig{
		Years:    core.Years{Min: core.DefaultYearMin, Max: core.DefaultYearMax},
		Feedback: core.Feedback{RatePerMinute: 600, Burst: 20},
	}
}

func newSeededDatabase(t *testing.T) database.DatabaseService {
	t.Helper()
	databaseService, err := database.NewDatabase("sqlite", ":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = databaseService.Close() })

	db, err := databaseService.CreateDatabase()
	require.NoError(t, err)
	testutil.SeedWHO(t, db)
	return databaseService
}

func newTestServer(t *testing.T, config *core.ServiceConfig, databaseService database.DatabaseService) *echo.Echo {
	t.Helper()
	coreService := core.NewCoreServiceWith(config, databaseService, nil)
	e := echo.New()
	e.IPExtractor = echo.ExtractIPDirect()
	NewFrontendService(config, coreService).SetRoutes(e)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	return serve(e, httptest.NewRequest(http.MethodGet, target, nil))
}

func TestDashboardHandler(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))

	rec := get(e, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "5,154")
	assert.Contains(t, body, "<td>Korea, Republic of</td><td>98.00</td>")
	assert.Contains(t, body, "<td>Africa</td><td>2</td>")
}

func TestDashboardHandler_StoreError(t *testing.T) {
	e := newTestServer(t, newTestConfig(), failingQueries{newSeededDatabase(t)})

	rec := get(e, "/")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), msgErrorLoadingData)
}

func TestExploreHandler_InitialLoad(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))

	rec := get(e, "/explore")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<option value="Kenya">Kenya</option>`)
	assert.Contains(t, body, `"region":"Africa","countries":["Kenya","Nigeria"]`)
	assert.NotContains(t, body, "Total Records")
}

func TestExploreHandler_FiltersChartAndExportLinks(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))

	rec := get(e, "/explore?country=Kenya&antigen=Measles&yearStart=2010&yearEnd=2012")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `[["2010",80],["2011",85],["2012",90]]`)
	assert.Contains(t, body, "Vaccination Coverage Over Time in Kenya - Measles")
	assert.Contains(t, body, "Total Records: 3")
	assert.Contains(t, body, `<option value="Kenya" selected>`)
	assert.Contains(t, body, `/export/csv?antigen=Measles&amp;country=Kenya&amp;yearEnd=2012&amp;yearStart=2010`)
	assert.Contains(t, body, "Filters Applied: Country: Kenya; Antigen: Measles; From: 2010; To: 2012")
}

func TestExploreHandler_PostAveragesWithoutAntigen(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))

	form := url.Values{"country": {"Kenya"}, "yearStart": {"2010"}, "yearEnd": {"2011"}}
	req := httptest.NewRequest(http.MethodPost, "/explore", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := serve(e, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	// 2010: (80+70)/2, 2011: only Measles because Polio coverage is negative
	assert.Contains(t, body, `[["2010",75],["2011",85]]`)
	assert.Contains(t, body, "All Antigens (Average)")
	assert.Contains(t, body, "Total Records: 4")
}

func TestExploreHandler_InvalidYears(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		warning string
	}{
		{"start below range", "yearStart=1999", "Start year must be between 2000 and 2024."},
		{"end above range", "yearEnd=2030", "End year must be between 2000 and 2024."},
		{"not numeric", "yearStart=abc", "Please enter valid numeric years."},
		{"reversed", "yearStart=2012&yearEnd=2010", "Start year cannot be greater than end year."},
	}
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(e, "/explore?country=Kenya&"+tt.query)

			assert.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, tt.warning)
			assert.Contains(t, body, `<option value="Kenya" selected>`)
			assert.NotContains(t, body, "Total Records")
		})
	}
}

func TestExploreHandler_StoreError(t *testing.T) {
	e := newTestServer(t, newTestConfig(), failingQueries{newSeededDatabase(t)})

	rec := get(e, "/explore?country=Kenya")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), msgErrorLoadingData)
}

func TestInfectionHandler(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))

	rec := get(e, "/infection?country=Nigeria")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<td>3,000</td>")
	assert.Contains(t, body, "Total Records: 2")
	// the negative case count stays in the table but not in the chart
	assert.Contains(t, body, `[["2010",3000]]`)
	assert.Contains(t, body, "/export/infection/pdf?country=Nigeria")
}

func TestInfectionHandler_YearDropdownsFromYearDate(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))

	rec := get(e, "/infection?yearStart=2013")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<option value="2013" selected>`)
	assert.Contains(t, body, "No infection data matches the selected filters.")
}

func TestTrendingHandler(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))

	t.Run("requires status and type", func(t *testing.T) {
		rec := get(e, "/trending?economicStatus=Developing")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "summaryData")
	})

	t.Run("summary and detail", func(t *testing.T) {
		rec := get(e, "/trending?economicStatus=Developing&infectionType=Measles")

		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `{"economic_status":"Developing","total_cases":5100,"avg_cases":1700}`)
		assert.Contains(t, body, `{"economic_status":"Developed","total_cases":50,"avg_cases":50}`)
		assert.Contains(t, body, `{"country":"Nigeria","year":2010,"cases":3000}`)
		assert.NotContains(t, body, `"country":"France"`)
	})

	t.Run("invalid years", func(t *testing.T) {
		rec := get(e, "/trending?economicStatus=Developing&infectionType=Measles&yearEnd=1990")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "End year must be between 2000 and 2024.")
	})
}

func TestInsightsHandler(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))

	rec := get(e, "/insights?region=Africa&antigen=Measles")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<td>Kenya</td>\n\t\t\t<td>86.75</td>")
	assert.Contains(t, body, "<td>Nigeria</td>\n\t\t\t<td>52.50</td>")
	assert.NotContains(t, body, "<td>France</td>")
}

func TestMissionAndPrivacyHandlers(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))

	rec := get(e, "/mission")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Amara Okafor")

	rec = get(e, "/privacy")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Privacy Policy")
}

func TestIconHandler(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))

	rec := get(e, "/icon.svg")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestExportHandlers(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))

	t.Run("vaccination csv", func(t *testing.T) {
		before := prom.ToFloat64(metrics.ExportsTotal.WithLabelValues(metrics.DatasetVaccination, export.ExtCSV))

		rec := get(e, "/export/csv?country=Kenya&antigen=Measles")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, mimeCSV, rec.Header().Get(echo.HeaderContentType))
		assert.Equal(t, `attachment; filename="vaccination_data_Kenya_Measles.csv"`, rec.Header().Get(echo.HeaderContentDisposition))
		body := rec.Body.String()
		assert.True(t, strings.HasPrefix(body, "\xEF\xBB\xBFVaccination Data Export\n"))
		assert.Contains(t, body, "Filters Applied: Country: Kenya; Antigen: Measles\n")
		assert.Contains(t, body, "2010,Kenya,Measles,80.00,1000000,800000\n")
		assert.True(t, strings.HasSuffix(body, "Total Records:,4\n"))
		assert.Equal(t, before+1, prom.ToFloat64(metrics.ExportsTotal.WithLabelValues(metrics.DatasetVaccination, export.ExtCSV)))
	})

	t.Run("vaccination pdf", func(t *testing.T) {
		rec := get(e, "/export/pdf?country=Kenya&antigen=Measles&yearStart=2010&yearEnd=2013")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, mimePDF, rec.Header().Get(echo.HeaderContentType))
		assert.Equal(t, `attachment; filename="vaccination_data_Kenya_Measles_from_2010_to_2013.pdf"`, rec.Header().Get(echo.HeaderContentDisposition))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
	})

	t.Run("non ascii filename", func(t *testing.T) {
		rec := get(e, "/export/csv?country="+url.QueryEscape("Côte d'Ivoire"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="vaccination_data_Cote_d'Ivoire.csv"; filename*=UTF-8''vaccination_data_C%C3%B4te_d%27Ivoire.csv`,
			rec.Header().Get(echo.HeaderContentDisposition))
	})

	t.Run("infection csv", func(t *testing.T) {
		rec := get(e, "/export/infection/csv?economicStatus=Developed")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="infection_data_Developed.csv"`, rec.Header().Get(echo.HeaderContentDisposition))
		body := rec.Body.String()
		assert.Contains(t, body, "Year,Country,Economic Status,Infection Type,Cases\n")
		assert.Contains(t, body, `2011,"Korea, Republic of",Developed,Diphtheria,5`)
		assert.True(t, strings.HasSuffix(body, "Total Records:,2\n"))
	})

	t.Run("infection pdf", func(t *testing.T) {
		rec := get(e, "/export/infection/pdf")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
	})

	t.Run("invalid years", func(t *testing.T) {
		for _, target := range []string{
			"/export/csv?yearStart=1999",
			"/export/pdf?yearStart=2012&yearEnd=2010",
			"/export/infection/csv?yearEnd=abc",
			"/export/infection/pdf?yearEnd=2025",
		} {
			rec := get(e, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		}
		assert.Equal(t, "Start year must be between 2000 and 2024.", get(e, "/export/csv?yearStart=1999").Body.String())
	})
}

func TestExportHandlers_StoreError(t *testing.T) {
	e := newTestServer(t, newTestConfig(), failingQueries{newSeededDatabase(t)})

	for _, target := range []string{"/export/csv", "/export/pdf", "/export/infection/csv", "/export/infection/pdf"} {
		rec := get(e, target)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, target)
	}
}

func csrfCookie(t *testing.T, e *echo.Echo) *http.Cookie {
	t.Helper()
	rec := get(e, "/feedback")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == csrfField {
			assert.Contains(t, rec.Body.String(), cookie.Value)
			return cookie
		}
	}
	t.Fatal("csrf cookie not set")
	return nil
}

func postFeedback(e *echo.Echo, cookie *http.Cookie, form url.Values, remoteIP string) *httptest.ResponseRecorder {
	return postFeedbackForwarded(e, cookie, form, remoteIP, "")
}

func postFeedbackForwarded(e *echo.Echo, cookie *http.Cookie, form url.Values, remoteIP, forwardedFor string) *httptest.ResponseRecorder {
	if cookie != nil {
		form.Set(csrfField, cookie.Value)
	}
	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.RemoteAddr = remoteIP + ":40000"
	if forwardedFor != "" {
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return serve(e, req)
}

func validFeedback() url.Values {
	return url.Values{
		"name":     {"Jo Tester"},
		"email":    {"jo@example.com"},
		"feedback": {"<script>alert(1)</script>Great <b>charts</b> & tables"},
	}
}

func TestFeedbackHandler_StoresSanitizedFeedback(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))
	cookie := csrfCookie(t, e)
	before := prom.ToFloat64(metrics.FeedbackTotal.WithLabelValues(metrics.FeedbackStored))

	rec := postFeedback(e, cookie, validFeedback(), "192.0.2.1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thank you for your feedback!")
	assert.Equal(t, before+1, prom.ToFloat64(metrics.FeedbackTotal.WithLabelValues(metrics.FeedbackStored)))

	rec = get(e, "/secret-feedback-view")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<td>Jo Tester</td><td>jo@example.com</td><td>Great charts &amp; tables</td>")
	assert.NotContains(t, body, "alert(1)")
	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", rec.Header().Get("Cache-Control"))
}

func TestFeedbackHandler_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		modify func(url.Values)
	}{
		{"missing name", func(v url.Values) { v.Del("name") }},
		{"markup only name", func(v url.Values) { v.Set("name", "<b></b>") }},
		{"bad email", func(v url.Values) { v.Set("email", "not-an-email") }},
		{"feedback too long", func(v url.Values) { v.Set("feedback", strings.Repeat("a", 2001)) }},
	}
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))
	cookie := csrfCookie(t, e)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validFeedback()
			tt.modify(form)

			rec := postFeedback(e, cookie, form, "192.0.2.2")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), msgFeedbackInvalid)
		})
	}

	rec := get(e, "/secret-feedback-view")
	assert.Contains(t, rec.Body.String(), "No feedback has been submitted yet.")
}

func TestFeedbackHandler_RequiresCSRFToken(t *testing.T) {
	e := newTestServer(t, newTestConfig(), newSeededDatabase(t))

	rec := postFeedback(e, nil, validFeedback(), "192.0.2.3")

	assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, rec.Code)
	assert.Contains(t, get(e, "/secret-feedback-view").Body.String(), "No feedback has been submitted yet.")
}

func TestFeedbackHandler_RateLimitsPerIP(t *testing.T) {
	config := newTestConfig()
	config.Feedback = core.Feedback{RatePerMinute: 1, Burst: 1}
	e := newTestServer(t, config, newSeededDatabase(t))
	cookie := csrfCookie(t, e)

	assert.Equal(t, http.StatusOK, postFeedback(e, cookie, validFeedback(), "192.0.2.4").Code)

	rec := postFeedback(e, cookie, validFeedback(), "192.0.2.4")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), msgFeedbackLimited)

	// another client is unaffected
	assert.Equal(t, http.StatusOK, postFeedback(e, cookie, validFeedback(), "192.0.2.5").Code)
}

func TestFeedbackHandler_IgnoresForwardedForFromClients(t *testing.T) {
	config := newTestConfig()
	config.Feedback = core.Feedback{RatePerMinute: 1, Burst: 1}
	e := newTestServer(t, config, newSeededDatabase(t))
	cookie := csrfCookie(t, e)

	assert.Equal(t, http.StatusOK,
		postFeedbackForwarded(e, cookie, validFeedback(), "192.0.2.4", "198.51.100.1").Code)
	for i := 2; i < 6; i++ {
		rec := postFeedbackForwarded(e, cookie, validFeedback(), "192.0.2.4", fmt.Sprintf("198.51.100.%d", i))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	}
}

func TestFeedbackHandler_DefaultsToPeerAddress(t *testing.T) {
	config := newTestConfig()
	config.Feedback = core.Feedback{RatePerMinute: 1, Burst: 1}
	e := echo.New()
	NewFrontendService(config, core.NewCoreServiceWith(config, newSeededDatabase(t), nil)).SetRoutes(e)
	cookie := csrfCookie(t, e)

	assert.Equal(t, http.StatusOK,
		postFeedbackForwarded(e, cookie, validFeedback(), "192.0.2.4", "198.51.100.1").Code)
	assert.Equal(t, http.StatusTooManyRequests,
		postFeedbackForwarded(e, cookie, validFeedback(), "192.0.2.4", "198.51.100.2").Code)
}

func TestFeedbackHandler_TrustedProxyForwardsClientIP(t *testing.T) {
	config := newTestConfig()
	config.Feedback = core.Feedback{RatePerMinute: 1, Burst: 1}
	e := newTestServer(t, config, newSeededDatabase(t))
	_, proxies, err := net.ParseCIDR("192.0.2.0/24")
	require.NoError(t, err)
	e.IPExtractor = IPExtractor([]*net.IPNet{proxies})
	cookie := csrfCookie(t, e)

	// clients behind the trusted proxy get their own buckets
	assert.Equal(t, http.StatusOK,
		postFeedbackForwarded(e, cookie, validFeedback(), "192.0.2.10", "198.51.100.1").Code)
	assert.Equal(t, http.StatusOK,
		postFeedbackForwarded(e, cookie, validFeedback(), "192.0.2.10", "198.51.100.2").Code)
	assert.Equal(t, http.StatusTooManyRequests,
		postFeedbackForwarded(e, cookie, validFeedback(), "192.0.2.10", "198.51.100.1").Code)

	// an untrusted peer cannot pick its bucket
	assert.Equal(t, http.StatusOK,
		postFeedbackForwarded(e, cookie, validFeedback(), "203.0.113.9", "198.51.100.3").Code)
	assert.Equal(t, http.StatusTooManyRequests,
		postFeedbackForwarded(e, cookie, validFeedback(), "203.0.113.9", "198.51.100.4").Code)
}
