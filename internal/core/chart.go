package core

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/jo-hoe/healthdash/internal/backend/database"
)

type ChartPoint struct {
	Year  int
	Value float64
}

// ChartSeries is the data behind a line chart. Averaged marks a per-year mean over several antigens.
type ChartSeries struct {
	Points   []ChartPoint
	Averaged bool
}

func (s ChartSeries) Empty() bool {
	return len(s.Points) == 0
}

// JSON renders the series as [["2010", 85.5], ...]. Averaged values are rounded to two decimals.
func (s ChartSeries) JSON() string {
	rows := make([][2]any, 0, len(s.Points))
	for _, p := range s.Points {
		value := p.Value
		if s.Averaged {
			value = math.Round(value*100) / 100
		}
		rows = append(rows, [2]any{strconv.Itoa(p.Year), value})
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// CoverageChart builds the explore chart. With an antigen selected every record with a
// non-negative coverage becomes a point in record order; otherwise coverage is averaged per year.
func CoverageChart(records []database.VaccinationRecord, antigenSelected bool) ChartSeries {
	if antigenSelected {
		points := make([]ChartPoint, 0, len(records))
		for _, r := range records {
			if r.Coverage >= 0 {
				points = append(points, ChartPoint{Year: r.Year, Value: r.Coverage})
			}
		}
		return ChartSeries{Points: points}
	}

	type acc struct {
		sum   float64
		count int
	}
	byYear := make(map[int]*acc)
	for _, r := range records {
		if r.Coverage < 0 {
			continue
		}
		a, ok := byYear[r.Year]
		if !ok {
			a = &acc{}
			byYear[r.Year] = a
		}
		a.sum += r.Coverage
		a.count++
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	points := make([]ChartPoint, 0, len(years))
	for _, year := range years {
		a := byYear[year]
		points = append(points, ChartPoint{Year: year, Value: a.sum / float64(a.count)})
	}
	return ChartSeries{Points: points, Averaged: true}
}

// InfectionChart keeps one point per record with non-negative cases, in record order.
func InfectionChart(records []database.InfectionRecord) ChartSeries {
	points := make([]ChartPoint, 0, len(records))
	for _, r := range records {
		if r.Cases >= 0 {
			points = append(points, ChartPoint{Year: r.Year, Value: r.Cases})
		}
	}
	return ChartSeries{Points: points}
}

// ChartTitle names the explore chart after the selected location and antigen.
func ChartTitle(country, region, antigen string) string {
	title := "Vaccination Coverage Over Time"
	switch {
	case country != "":
		title += " in " + country
	case region != "":
		title += " in " + region + " Region"
	}
	if antigen != "" {
		return title + " - " + antigen
	}
	return title + " - All Antigens (Average)"
}

type trendingSummary struct {
	EconomicStatus string  `json:"economic_status"`
	TotalCases     float64 `json:"total_cases"`
	AverageCases   float64 `json:"avg_cases"`
}

type trendingDetail struct {
	Country string  `json:"country"`
	Year    int     `json:"year"`
	Cases   float64 `json:"cases"`
}

// TrendingSummaryJSON renders [{"economic_status":...,"total_cases":...,"avg_cases":...}].
func TrendingSummaryJSON(rows []database.EconomicStatusSummary) (string, error) {
	payload := make([]trendingSummary, 0, len(rows))
	for _, r := range rows {
		payload = append(payload, trendingSummary{
			EconomicStatus: r.EconomicStatus,
			TotalCases:     r.TotalCases,
			AverageCases:   math.Round(r.AverageCases*100) / 100,
		})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// TrendingDetailJSON renders [{"country":...,"year":...,"cases":...}].
func TrendingDetailJSON(records []database.InfectionRecord) (string, error) {
	payload := make([]trendingDetail, 0, len(records))
	for _, r := range records {
		payload = append(payload, trendingDetail{Country: r.Country, Year: r.Year, Cases: r.Cases})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
