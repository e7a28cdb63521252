// Package render turns a price history and its forecast into a standalone
// HTML chart document.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"chartgallery/internal/domain"
	"chartgallery/internal/indicator"
)

// Renderer produces a displayable document for one forecast.
type Renderer interface {
	Render(history []domain.PricePoint, forecast []domain.ForecastPoint, title string) ([]byte, error)
}

var _ Renderer = (*HTMLRenderer)(nil)

// HTMLRenderer draws the chart as inline SVG inside a small HTML page with a
// summary table underneath.
type HTMLRenderer struct {
	Width  int
	Height int
}

// NewHTMLRenderer returns a renderer with a 1280x640 canvas.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{Width: 1280, Height: 640}
}

var (
	colorActual   = drawing.ColorFromHex("1f77b4")
	colorForecast = drawing.ColorFromHex("ff7f0e")
	colorBand     = drawing.ColorFromHex("aaaaaa")
)

// Render returns the HTML document. It fails when either series is empty or
// the chart library cannot lay out the data.
func (r *HTMLRenderer) Render(history []domain.PricePoint, forecast []domain.ForecastPoint, title string) ([]byte, error) {
	if len(history) == 0 || len(forecast) == 0 {
		return nil, fmt.Errorf("nothing to draw: %d history, %d forecast points", len(history), len(forecast))
	}

	svg, err := r.svg(history, forecast)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, page{
		Title:   title,
		Chart:   template.HTML(svg),
		Summary: summarize(history, forecast),
	}); err != nil {
		return nil, fmt.Errorf("executing page template: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *HTMLRenderer) svg(history []domain.PricePoint, forecast []domain.ForecastPoint) ([]byte, error) {
	hx := make([]time.Time, len(history))
	hy := make([]float64, len(history))
	for i, p := range history {
		hx[i], hy[i] = p.Date, p.Value
	}

	fx := make([]time.Time, len(forecast))
	fy := make([]float64, len(forecast))
	lo := make([]float64, len(forecast))
	hi := make([]float64, len(forecast))
	for i, p := range forecast {
		fx[i], fy[i], lo[i], hi[i] = p.Date, p.Predicted, p.Lower, p.Upper
	}

	band := chart.Style{StrokeColor: colorBand, StrokeWidth: 1, StrokeDashArray: []float64{4, 4}}
	graph := chart.Chart{
		Width:  r.Width,
		Height: r.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02"),
		},
		YAxis: chart.YAxis{Name: "Price"},
		Series: []chart.Series{
			chart.TimeSeries{Name: "Actual", XValues: hx, YValues: hy,
				Style: chart.Style{StrokeColor: colorActual, StrokeWidth: 1.5}},
			chart.TimeSeries{Name: "Forecast", XValues: fx, YValues: fy,
				Style: chart.Style{StrokeColor: colorForecast, StrokeWidth: 1.5}},
			chart.TimeSeries{Name: "Lower", XValues: fx, YValues: lo, Style: band},
			chart.TimeSeries{Name: "Upper", XValues: fx, YValues: hi, Style: band},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("rendering svg: %w", err)
	}
	return buf.Bytes(), nil
}

// ---------------------------------------------------------------------------
// Page
// ---------------------------------------------------------------------------

type page struct {
	Title   string
	Chart   template.HTML
	Summary []row
}

type row struct {
	Label string
	Value string
}

func summarize(history []domain.PricePoint, forecast []domain.ForecastPoint) []row {
	last := history[len(history)-1]
	final := forecast[len(forecast)-1]
	rows := []row{
		{"Last close", fmt.Sprintf("%.2f on %s", last.Value, last.Date.Format("2006-01-02"))},
		{"Final forecast", fmt.Sprintf("%.2f on %s", final.Predicted, final.Date.Format("2006-01-02"))},
		{"Interval", fmt.Sprintf("%.2f to %.2f", final.Lower, final.Upper)},
	}

	closes := make([]float64, len(history))
	for i, p := range history {
		closes[i] = p.Value
	}
	if s, ok := indicator.Latest(closes); ok {
		rows = append(rows,
			row{fmt.Sprintf("RSI (%d)", indicator.RSIWindow), fmt.Sprintf("%.1f", s.RSI)},
			row{fmt.Sprintf("MACD (%d/%d/%d)", indicator.MACDFast, indicator.MACDSlow, indicator.MACDSignal),
				fmt.Sprintf("%.3f (signal %.3f)", s.MACD, s.Signal)},
		)
	}
	return rows
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 24px; color: #222; }
h1 { font-size: 18px; font-weight: 600; }
table { border-collapse: collapse; margin-top: 16px; }
td { padding: 4px 12px; border-bottom: 1px solid #eee; }
td:first-child { color: #666; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="chart">{{.Chart}}</div>
<table class="summary">
{{- range .Summary}}
<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))
