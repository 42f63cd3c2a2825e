package reports

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"bikedash/pkg/entity"
)

const (
	pieInnerRadius  = 30
	pieOuterRadius  = 110
	pieWidth        = "100%"
	pieHeight       = "320px"
	emptyPieHeight  = "120px"
	pieSeriesName   = "Risk share"
	labelMinPercent = 5
	styleTagLen     = len(`</style>`)
)

// Palette is cycled over the chart rows in order.
var Palette = []string{
	"#4C51BF", "#63B3ED", "#00C49F", "#F6AD55", "#E53E3E",
	"#9F7AEA", "#F6E05E", "#4FD1C5", "#F687B3", "#7DD3FC",
}

// SliceColor returns the palette colour for the i-th row.
func SliceColor(i int) string {
	return Palette[i%len(Palette)]
}

func colorize(rows []entity.ChartRow) []ChartSlice {
	out := make([]ChartSlice, len(rows))
	for i, r := range rows {
		out[i] = ChartSlice{ChartRow: r, Color: SliceColor(i)}
	}
	return out
}

// tooltipFormatter shows the share and the raw score of a slice. Scores are
// looked up by data index so no slice name ends up inside the script.
func tooltipFormatter(rows []entity.ChartRow) string {
	scores := make([]string, len(rows))
	for i, r := range rows {
		scores[i] = fmt.Sprintf("%.3f", r.Score())
	}
	return fmt.Sprintf(
		"function (p) { var s = [%s]; return p.name + ': ' + p.value + '%%, ' + s[p.dataIndex].toFixed(3) + ' (score)'; }",
		strings.Join(scores, ","),
	)
}

// labelFormatter labels only slices of at least labelMinPercent.
func labelFormatter(rows []entity.ChartRow) string {
	show := make([]string, len(rows))
	for i, r := range rows {
		show[i] = "0"
		if r.Value >= labelMinPercent {
			show[i] = "1"
		}
	}
	return fmt.Sprintf(
		"function (p) { var show = [%s]; return show[p.dataIndex] ? p.name + ' ' + p.value + '%%' : ''; }",
		strings.Join(show, ","),
	)
}

// NewRiskPie builds the donut chart for the given rows. Slice values are the
// row percentages.
func NewRiskPie(rows []entity.ChartRow) *charts.Pie {
	if len(rows) == 0 {
		return newEmptyRiskPie()
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: pieWidth, Height: pieHeight}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "item",
			Formatter: opts.FuncOpts(tooltipFormatter(rows)),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)

	data := make([]opts.PieData, 0, len(rows))
	for _, s := range colorize(rows) {
		data = append(data, opts.PieData{
			Name:      s.Name,
			Value:     s.Value,
			ItemStyle: &opts.ItemStyle{Color: s.Color},
		})
	}

	pie.AddSeries(pieSeriesName, data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show:      opts.Bool(true),
				Formatter: opts.FuncOpts(labelFormatter(rows)),
			}),
			charts.WithPieChartOpts(opts.PieChart{
				Radius: []int{pieInnerRadius, pieOuterRadius},
			}),
		)

	return pie
}

func newEmptyRiskPie() *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Bike Component Risk Overview", Subtitle: "No risk data available", Left: "center",
		}),
		charts.WithInitializationOpts(opts.Initialization{Width: pieWidth, Height: emptyPieHeight}),
	)
	return pie
}

// RenderPieFragment renders the chart as an HTML fragment that can be
// embedded in the dashboard page. The echarts script is loaded by the page.
func RenderPieFragment(rows []entity.ChartRow) (template.HTML, error) {
	var buf bytes.Buffer
	if err := NewRiskPie(rows).Render(&buf); err != nil {
		return "", fmt.Errorf("render pie chart: %w", err)
	}
	return template.HTML(extractChartContent(buf.String())), nil
}

func extractChartContent(page string) string {
	start := strings.Index(page, `<div class="container">`)
	end := strings.Index(page, `</body>`)
	if start == -1 || end < start {
		return page
	}

	content := strings.Replace(page[start:end], `class="container"`, `class="echart-box"`, 1)
	return removeStyleTags(content)
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, `<style>`)
		if i == -1 {
			break
		}
		j := strings.Index(content[i:], `</style>`)
		if j == -1 {
			break
		}
		content = content[:i] + content[i+j+styleTagLen:]
	}
	return content
}
