package reports

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"bikedash/pkg/client"
	"bikedash/pkg/dashboard"
	"bikedash/pkg/entity"
	"bikedash/pkg/riskposture"
)

const (
	DefaultTitle = "Predictive Bike Maintenance Dashboard"
	Version      = "v1.0"
)

// Options controls how a State is turned into a DashboardView.
type Options struct {
	Title string
	// TopN is the number of bikes shown individually; nil means
	// riskposture.DefaultTopN. Zero puts every bike in "Other".
	TopN *int
	// Now is the generation time; nil means time.Now.
	Now func() time.Time
}

// TopN returns a pointer to n for Options.TopN.
func TopN(n int) *int {
	return &n
}

func (o Options) topN() int {
	if o.TopN == nil {
		return riskposture.DefaultTopN
	}
	return *o.TopN
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// RiskRow is one line of the high risk bikes table.
type RiskRow struct {
	BikeID entity.BikeID
	Score  string
	Level  riskposture.Level
}

// MaintenanceRow is one line of the recent maintenance table.
type MaintenanceRow struct {
	RecordID        entity.ID
	BikeID          entity.BikeID
	Date            string
	Since           string
	ComponentFailed string
}

// ChartSlice is a chart row with the colour it is drawn with.
type ChartSlice struct {
	entity.ChartRow
	Color string
}

// DashboardView is everything a renderer needs. It holds formatted values
// only; renderers never reach back into the State.
type DashboardView struct {
	Title       string
	Version     string
	GeneratedAt time.Time
	TopN        int

	Chart       []entity.ChartRow
	Slices      []ChartSlice
	Risk        []RiskRow
	Maintenance []MaintenanceRow
	Counts      riskposture.RiskLevelCounts

	RiskError        string
	MaintenanceError string
}

// GeneratedAtText is the generation time in the report header format.
func (v DashboardView) GeneratedAtText() string {
	return v.GeneratedAt.Format(time.RFC1123)
}

// HasErrors reports whether any dataset failed to load.
func (v DashboardView) HasErrors() bool {
	return v.RiskError != "" || v.MaintenanceError != ""
}

// BuildView aggregates the risk data and formats both tables.
func BuildView(state *dashboard.State, o Options) DashboardView {
	o = o.withDefaults()
	now := o.Now()
	topN := o.topN()

	chart := state.Chart(topN)
	view := DashboardView{
		Title:       o.Title,
		Version:     Version,
		GeneratedAt: now,
		TopN:        topN,
		Chart:       chart,
		Slices:      colorize(chart),
		Risk:        make([]RiskRow, 0, len(state.Risk)),
		Maintenance: make([]MaintenanceRow, 0, len(state.Maintenance)),
		Counts:      state.RiskLevels(),
	}

	for _, rec := range state.Risk {
		view.Risk = append(view.Risk, RiskRow{
			BikeID: rec.BikeID,
			Score:  FormatScore(rec.RiskScore),
			Level:  riskposture.Band(rec.RiskScore),
		})
	}

	for _, rec := range state.Maintenance {
		row := MaintenanceRow{
			RecordID:        rec.RecordID,
			BikeID:          rec.BikeID,
			Date:            rec.MaintenanceDate,
			ComponentFailed: rec.ComponentFailed,
		}
		if d, ok := rec.Date(); ok {
			row.Since = humanize.RelTime(d, now, "ago", "from now")
		}
		view.Maintenance = append(view.Maintenance, row)
	}

	if state.RiskErr != nil {
		view.RiskError = loadErrorMessage(client.DatasetRisk, state.RiskErr)
	}
	if state.MaintenanceErr != nil {
		view.MaintenanceError = loadErrorMessage(client.DatasetMaintenance, state.MaintenanceErr)
	}

	return view
}

// FormatScore renders a 0..1 score as a percentage with two decimals.
func FormatScore(score float64) string {
	return decimal.NewFromFloat(entity.Coerce(score)).Shift(2).StringFixed(2) + "%"
}

func loadErrorMessage(dataset string, err error) string {
	return fmt.Sprintf("Error loading %s data: %v", dataset, err)
}
