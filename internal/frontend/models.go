package frontend

import (
	"encoding/json"
	"html/template"
	"net/url"

	"github.com/jo-hoe/healthdash/internal/backend/database"
	"github.com/jo-hoe/healthdash/internal/core"
)

const (
	msgErrorLoadingData = "Error loading data"
	msgFeedbackInvalid  = "Please fill in your name, a valid email address and your feedback."
	msgFeedbackLimited  = "Too many submissions. Please wait a moment before trying again."
	msgFeedbackFailed   = "Your feedback could not be saved. Please try again later."
)

// page carries what the layout needs on every view.
type page struct {
	Title   string
	Active  string
	Warning string
	Error   string
	Years   core.YearRange
}

type dashboardPage struct {
	page
	Dashboard core.Dashboard
}

type explorePage struct {
	page
	Options             core.Options
	RegionCountriesJSON string
	Filters             core.Filters
	HasFilters          bool
	Records             []database.VaccinationRecord
	ChartTitle          string
	ChartJSON           string
	HasChartData        bool
	Averaged            bool
	ExportQuery         template.URL
}

type infectionPage struct {
	page
	Options      core.Options
	Filters      core.Filters
	HasFilters   bool
	Records      []database.InfectionRecord
	ChartJSON    string
	HasChartData bool
	ExportQuery  template.URL
}

type trendingPage struct {
	page
	Options     core.Options
	Filters     core.Filters
	HasData     bool
	Detail      []database.InfectionRecord
	Summary     []database.EconomicStatusSummary
	SummaryJSON string
	DetailJSON  string
}

type insightsPage struct {
	page
	Options    core.Options
	Filters    core.Filters
	HasFilters bool
	Rows       []database.CountryCoverage
}

type missionPage struct {
	page
	Personas []database.Persona
}

type feedbackForm struct {
	Name     string `form:"name" validate:"required,max=100"`
	Email    string `form:"email" validate:"required,email,max=254"`
	Feedback string `form:"feedback" validate:"required,max=2000"`
}

type feedbackPage struct {
	page
	Form      feedbackForm
	CSRFToken string
	Submitted bool
}

type feedbackViewPage struct {
	page
	Entries []database.FeedbackEntry
}

// exportQuery re-encodes the applied filters for the export links.
func exportQuery(f core.Filters) template.URL {
	values := url.Values{}
	set := func(key, value string) {
		if value != "" {
			values.Set(key, value)
		}
	}
	set("country", f.Country)
	set("region", f.Region)
	set("antigen", f.Antigen)
	set("economicStatus", f.EconomicStatus)
	set("infectionType", f.InfectionType)
	set("yearStart", f.YearStart)
	set("yearEnd", f.YearEnd)
	return template.URL(values.Encode())
}

func toJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(raw)
}
