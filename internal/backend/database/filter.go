package database

import "strings"

// Filter narrows the fact queries. Zero values mean "no constraint".
type Filter struct {
	Country        string
	Region         string
	Antigen        string
	InfectionType  string
	EconomicStatus string
	YearStart      int
	YearEnd        int
}

// whereClause collects conditions and their positional arguments so that every
// user supplied value reaches SQLite as a bound parameter.
type whereClause struct {
	conditions []string
	args       []any
}

func (w *whereClause) add(condition string, arg any) {
	w.conditions = append(w.conditions, condition)
	w.args = append(w.args, arg)
}

// require adds a fixed condition that takes no argument.
func (w *whereClause) require(condition string) {
	w.conditions = append(w.conditions, condition)
}

func (w *whereClause) addText(condition, value string) {
	if value = strings.TrimSpace(value); value != "" {
		w.add(condition, value)
	}
}

func (w *whereClause) addYear(condition string, year int) {
	if year > 0 {
		w.add(condition, year)
	}
}

func (w *whereClause) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

func vaccinationWhere(filter Filter) *whereClause {
	w := &whereClause{}
	w.addText("c.name = ?", filter.Country)
	w.addText("r.region = ?", filter.Region)
	w.addText("a.name = ?", filter.Antigen)
	w.addYear("v.year >= ?", filter.YearStart)
	w.addYear("v.year <= ?", filter.YearEnd)
	return w
}

func infectionWhere(filter Filter) *whereClause {
	w := &whereClause{}
	w.addText("TRIM(it.description) = ?", filter.InfectionType)
	w.addText("TRIM(e.phase) = ?", filter.EconomicStatus)
	w.addText("TRIM(c.name) = ?", filter.Country)
	w.addYear("yd.YearID >= ?", filter.YearStart)
	w.addYear("yd.YearID <= ?", filter.YearEnd)
	return w
}
