package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jo-hoe/healthdash/internal/core"
	"github.com/wcharczuk/go-chart/v2"
)

// Pixel size of rendered chart images.
const (
	ChartWidth  = 800
	ChartHeight = 360
)

// CoverageChartPNG renders series as a line chart. It returns nil without error when the
// series cannot be drawn: fewer than two points or a single year.
func CoverageChartPNG(title string, series core.ChartSeries) ([]byte, error) {
	if len(series.Points) < 2 {
		return nil, nil
	}

	xs := make([]float64, 0, len(series.Points))
	ys := make([]float64, 0, len(series.Points))
	minX, maxX, maxY := float64(series.Points[0].Year), float64(series.Points[0].Year), 0.0
	for _, p := range series.Points {
		x := float64(p.Year)
		xs = append(xs, x)
		ys = append(ys, p.Value)
		minX = min(minX, x)
		maxX = max(maxX, x)
		maxY = max(maxY, p.Value)
	}
	if minX == maxX {
		return nil, nil
	}

	name := "Coverage (%)"
	if series.Averaged {
		name = "Average coverage (%)"
	}
	graph := chart.Chart{
		Title:      title,
		Width:      ChartWidth,
		Height:     ChartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name: "Year",
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return strconv.Itoa(int(f))
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Name:  "Coverage (%)",
			Range: &chart.ContinuousRange{Min: 0, Max: max(100, maxY)},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: name, XValues: xs, YValues: ys},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}
