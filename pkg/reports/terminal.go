package reports

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"bikedash/pkg/entity"
	"bikedash/pkg/observability"
	"bikedash/pkg/riskposture"
)

// WriteTerminal prints the dashboard as three tables.
func WriteTerminal(w io.Writer, view DashboardView) error {
	header := color.New(color.FgHiBlue, color.Bold)

	if _, err := header.Fprintf(w, "%s %s\n", view.Title, view.Version); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	fmt.Fprintf(w, "Generated %s\n\n", view.GeneratedAtText())

	header.Fprintln(w, "Bike Component Risk Overview")
	if len(view.Slices) == 0 {
		fmt.Fprintln(w, "No risk data available.")
	} else {
		fmt.Fprintln(w, chartTable(view))
	}
	if view.RiskError != "" {
		color.New(color.FgHiRed).Fprintln(w, view.RiskError)
	}
	fmt.Fprintln(w)

	header.Fprintln(w, "Recent Maintenance Records")
	if len(view.Maintenance) == 0 {
		fmt.Fprintln(w, "No maintenance records.")
	} else {
		fmt.Fprintln(w, maintenanceTable(view))
	}
	if view.MaintenanceError != "" {
		color.New(color.FgHiRed).Fprintln(w, view.MaintenanceError)
	}
	fmt.Fprintln(w)

	header.Fprintln(w, "High Risk Bikes")
	if len(view.Risk) == 0 {
		fmt.Fprintln(w, "No at-risk bikes.")
	} else {
		fmt.Fprintln(w, riskTable(view))
	}
	if _, err := fmt.Fprintln(w, view.Counts.String()); err != nil {
		return fmt.Errorf("write counts: %w", err)
	}

	observability.ObserveRender(observability.FormatTerminal, len(view.Chart))
	return nil
}

func chartTable(view DashboardView) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Bike", "Risk Score", "Share"})
	for _, s := range view.Slices {
		tbl.AppendRow(table.Row{s.Name, fmt.Sprintf("%.3f", s.Score()), fmt.Sprintf("%.2f%%", s.Value)})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Top %d", view.TopN), "", fmt.Sprintf("%d rows", len(view.Slices))})
	return tbl.Render()
}

func maintenanceTable(view DashboardView) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Record", "Bike", "Date", "Since", "Component"})
	for _, m := range view.Maintenance {
		tbl.AppendRow(table.Row{m.RecordID, m.BikeID, m.Date, m.Since, m.ComponentFailed})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d records", len(view.Maintenance))})
	return tbl.Render()
}

func riskTable(view DashboardView) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Bike", "Risk Score"})
	for _, r := range view.Risk {
		tbl.AppendRow(table.Row{r.BikeID, levelColor(r.Level).Sprint(r.Score)})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d bikes", len(view.Risk))})
	return tbl.Render()
}

func levelColor(l riskposture.Level) *color.Color {
	switch l {
	case riskposture.LevelHigh:
		return color.New(color.FgRed, color.Bold)
	case riskposture.LevelMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

// WriteBikeScore prints the component probabilities of one bike.
func WriteBikeScore(w io.Writer, score entity.BikeScore) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(fmt.Sprintf("Bike %s", score.BikeID))
	tbl.AppendHeader(table.Row{"Component", "Failure Probability"})
	for _, name := range score.Components() {
		p := score.Probabilities[name]
		tbl.AppendRow(table.Row{name, levelColor(riskposture.Band(p)).Sprint(FormatScore(p))})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d components", len(score.Probabilities))})

	if _, err := fmt.Fprintln(w, tbl.Render()); err != nil {
		return fmt.Errorf("write bike score: %w", err)
	}
	return nil
}
