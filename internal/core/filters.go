package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jo-hoe/healthdash/internal/backend/database"
)

const (
	msgNumericYears  = "Please enter valid numeric years."
	msgStartRange    = "Start year must be between %d and %d."
	msgEndRange      = "End year must be between %d and %d."
	msgStartAfterEnd = "Start year cannot be greater than end year."
)

// Filters holds the raw, trimmed filter values of a request. Empty means "no constraint".
type Filters struct {
	Country        string
	Region         string
	Antigen        string
	InfectionType  string
	EconomicStatus string
	YearStart      string
	YearEnd        string
}

// ParseFilters reads the filter parameters through get, which is typically echo's QueryParam or FormValue.
func ParseFilters(get func(name string) string) Filters {
	value := func(name string) string { return strings.TrimSpace(get(name)) }
	return Filters{
		Country:        value("country"),
		Region:         value("region"),
		Antigen:        value("antigen"),
		InfectionType:  value("infectionType"),
		EconomicStatus: value("economicStatus"),
		YearStart:      value("yearStart"),
		YearEnd:        value("yearEnd"),
	}
}

// ValidationError carries the user facing warning for rejected filter input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// YearRange is the inclusive span of years a user may filter on.
type YearRange struct {
	Min int
	Max int
}

func DefaultYearRange() YearRange {
	return YearRange{Min: DefaultYearMin, Max: DefaultYearMax}
}

// ValidateYears checks optional start and end years. The first failing rule wins and the start
// year is checked before the end year. It returns nil or a *ValidationError.
func (r YearRange) ValidateYears(yearStart, yearEnd string) error {
	start, hasStart, err := r.parseYear(yearStart, msgStartRange)
	if err != nil {
		return err
	}
	end, hasEnd, err := r.parseYear(yearEnd, msgEndRange)
	if err != nil {
		return err
	}
	if hasStart && hasEnd && start > end {
		return &ValidationError{Message: msgStartAfterEnd}
	}
	return nil
}

func (r YearRange) parseYear(value, rangeMessage string) (int, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false, nil
	}
	year, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, &ValidationError{Message: msgNumericYears}
	}
	if year < r.Min || year > r.Max {
		return 0, false, &ValidationError{Message: fmt.Sprintf(rangeMessage, r.Min, r.Max)}
	}
	return year, true, nil
}

// ValidateYears validates against the default 2000 to 2024 range.
func ValidateYears(yearStart, yearEnd string) error {
	return DefaultYearRange().ValidateYears(yearStart, yearEnd)
}

// HasVaccinationFilters reports whether any explore filter was submitted.
func (f Filters) HasVaccinationFilters() bool {
	return f.Country != "" || f.Region != "" || f.Antigen != "" || f.YearStart != "" || f.YearEnd != ""
}

// HasInfectionFilters reports whether any infection filter was submitted.
func (f Filters) HasInfectionFilters() bool {
	return f.Country != "" || f.EconomicStatus != "" || f.InfectionType != "" || f.YearStart != "" || f.YearEnd != ""
}

// ToQuery converts validated filters into a database filter. Unparseable years are dropped.
func (f Filters) ToQuery() database.Filter {
	start, _ := strconv.Atoi(f.YearStart)
	end, _ := strconv.Atoi(f.YearEnd)
	return database.Filter{
		Country:        f.Country,
		Region:         f.Region,
		Antigen:        f.Antigen,
		InfectionType:  f.InfectionType,
		EconomicStatus: f.EconomicStatus,
		YearStart:      start,
		YearEnd:        end,
	}
}

// VaccinationLabels lists the applied explore filters in display order, e.g. "Country: Kenya".
func (f Filters) VaccinationLabels() []string {
	return labels(
		"Country", f.Country,
		"Region", f.Region,
		"Antigen", f.Antigen,
		"From", f.YearStart,
		"To", f.YearEnd,
	)
}

// InfectionLabels lists the applied infection filters in display order.
func (f Filters) InfectionLabels() []string {
	return labels(
		"Country", f.Country,
		"Economic Status", f.EconomicStatus,
		"Infection Type", f.InfectionType,
		"From", f.YearStart,
		"To", f.YearEnd,
	)
}

func labels(pairs ...string) []string {
	result := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			result = append(result, pairs[i]+": "+pairs[i+1])
		}
	}
	return result
}
