// Package dashboard owns the two datasets the dashboard renders and loads
// them from the API.
package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"bikedash/pkg/client"
	"bikedash/pkg/entity"
	"bikedash/pkg/riskposture"
)

// Fetcher is the part of the API the dashboard needs.
type Fetcher interface {
	AtRiskScores(ctx context.Context, limit int) ([]entity.RiskRecord, error)
	MaintenanceRecords(ctx context.Context) ([]entity.MaintenanceRecord, error)
}

// Options controls a load.
type Options struct {
	// RiskLimit is passed to /scores/at-risk; <= 0 uses the server default.
	RiskLimit int
	// Events receives one event per dataset. Nil discards them.
	Events EventHandler
	// Now is used for timestamps; nil means time.Now.
	Now func() time.Time
}

// State is the data behind one render. It is built once per load and only
// read afterwards; renderers get it by pointer but never modify it.
type State struct {
	Risk        []entity.RiskRecord
	Maintenance []entity.MaintenanceRecord

	RiskErr        error
	MaintenanceErr error

	LoadedAt time.Time
}

// NewState builds a State from already materialised datasets.
func NewState(risk []entity.RiskRecord, maintenance []entity.MaintenanceRecord) *State {
	if risk == nil {
		risk = []entity.RiskRecord{}
	}
	if maintenance == nil {
		maintenance = []entity.MaintenanceRecord{}
	}
	return &State{
		Risk:        risk,
		Maintenance: maintenance,
		LoadedAt:    time.Now(),
	}
}

// Chart aggregates the current risk records into pie rows. The rows are
// computed fresh on every call.
func (s *State) Chart(topN int) []entity.ChartRow {
	return riskposture.Aggregate(s.Risk, topN)
}

// RiskLevels counts the current risk records per band.
func (s *State) RiskLevels() riskposture.RiskLevelCounts {
	return riskposture.CountRiskLevels(s.Risk)
}

// Errors returns the load failures, if any, in dataset order.
func (s *State) Errors() []error {
	var errs []error
	if s.RiskErr != nil {
		errs = append(errs, s.RiskErr)
	}
	if s.MaintenanceErr != nil {
		errs = append(errs, s.MaintenanceErr)
	}
	return errs
}

// Load fetches both datasets concurrently. A failure of one never affects
// the other: the failed dataset stays empty, its error is kept on the State
// and reported to opts.Events. Load itself never fails.
func Load(ctx context.Context, f Fetcher, opts Options) *State {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	events := opts.Events
	if events == nil {
		events = MultiEventHandler{}
	}

	state := NewState(nil, nil)

	var g errgroup.Group
	g.Go(func() error {
		started := now()
		recs, err := f.AtRiskScores(ctx, opts.RiskLimit)
		if err != nil {
			state.RiskErr = err
		} else if recs != nil {
			state.Risk = recs
		}
		events.HandleEvent(LoadEvent{
			Timestamp: now(),
			Dataset:   client.DatasetRisk,
			Rows:      len(state.Risk),
			Duration:  now().Sub(started),
			Err:       err,
		})
		return nil
	})
	g.Go(func() error {
		started := now()
		recs, err := f.MaintenanceRecords(ctx)
		if err != nil {
			state.MaintenanceErr = err
		} else if recs != nil {
			state.Maintenance = recs
		}
		events.HandleEvent(LoadEvent{
			Timestamp: now(),
			Dataset:   client.DatasetMaintenance,
			Rows:      len(state.Maintenance),
			Duration:  now().Sub(started),
			Err:       err,
		})
		return nil
	})
	_ = g.Wait()

	state.LoadedAt = now()
	return state
}
