package dashboard

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikedash/pkg/client"
	"bikedash/pkg/entity"
	"bikedash/pkg/internal/testutil"
)

type stubFetcher struct {
	risk           []entity.RiskRecord
	riskErr        error
	maintenance    []entity.MaintenanceRecord
	maintenanceErr error
	gotLimit       int
}

func (s *stubFetcher) AtRiskScores(_ context.Context, limit int) ([]entity.RiskRecord, error) {
	s.gotLimit = limit
	return s.risk, s.riskErr
}

func (s *stubFetcher) MaintenanceRecords(context.Context) ([]entity.MaintenanceRecord, error) {
	return s.maintenance, s.maintenanceErr
}

func newClient(t *testing.T, srv *testutil.Server) *client.Client {
	t.Helper()
	c, err := client.New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestLoadBothDatasets(t *testing.T) {
	srv := testutil.NewServer(t)
	rec := &RecordingEventHandler{}

	state := Load(context.Background(), newClient(t, srv), Options{RiskLimit: 20, Events: rec})

	require.NoError(t, state.RiskErr)
	require.NoError(t, state.MaintenanceErr)
	assert.Len(t, state.Risk, 3)
	require.Len(t, state.Maintenance, 1)
	assert.Equal(t, "brakes", state.Maintenance[0].ComponentFailed)
	assert.Empty(t, state.Errors())
	assert.False(t, state.LoadedAt.IsZero())

	events := rec.SnapShot()
	require.Len(t, events, 2)
	for _, e := range events {
		assert.False(t, e.Failed())
	}
}

func TestLoadRiskFailureKeepsMaintenance(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.Set(client.AtRiskPath, http.StatusInternalServerError, `boom`)
	rec := &RecordingEventHandler{}

	state := Load(context.Background(), newClient(t, srv), Options{Events: rec})

	require.Error(t, state.RiskErr)
	var statusErr *client.StatusError
	assert.True(t, errors.As(state.RiskErr, &statusErr))
	assert.NotNil(t, state.Risk)
	assert.Empty(t, state.Risk)
	assert.Empty(t, state.Chart(8))

	require.NoError(t, state.MaintenanceErr)
	assert.Len(t, state.Maintenance, 1)

	var failed []string
	for _, e := range rec.SnapShot() {
		if e.Failed() {
			failed = append(failed, e.Dataset)
		}
	}
	assert.Equal(t, []string{client.DatasetRisk}, failed)
}

func TestLoadMaintenanceFailureKeepsRisk(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.Set(client.MaintenancePath, http.StatusBadGateway, ``)

	state := Load(context.Background(), newClient(t, srv), Options{})

	require.NoError(t, state.RiskErr)
	assert.Len(t, state.Chart(1), 2)
	require.Error(t, state.MaintenanceErr)
	assert.Empty(t, state.Maintenance)
	assert.Len(t, state.Errors(), 1)
}

func TestLoadBothFail(t *testing.T) {
	f := &stubFetcher{riskErr: errors.New("risk down"), maintenanceErr: errors.New("maintenance down")}

	state := Load(context.Background(), f, Options{})

	assert.Len(t, state.Errors(), 2)
	assert.Empty(t, state.Risk)
	assert.Empty(t, state.Maintenance)
}

func TestLoadNilSlicesBecomeEmpty(t *testing.T) {
	f := &stubFetcher{}

	state := Load(context.Background(), f, Options{RiskLimit: 5})

	assert.Equal(t, 5, f.gotLimit)
	assert.NotNil(t, state.Risk)
	assert.NotNil(t, state.Maintenance)
}

func TestLoadUsesClock(t *testing.T) {
	fixed := time.Date(2025, 10, 18, 9, 0, 0, 0, time.UTC)
	state := Load(context.Background(), &stubFetcher{}, Options{Now: func() time.Time { return fixed }})
	assert.Equal(t, fixed, state.LoadedAt)
}

func TestStateChartRecomputes(t *testing.T) {
	state := NewState([]entity.RiskRecord{
		{BikeID: entity.NumberID(1), RiskScore: 0.9},
		{BikeID: entity.NumberID(2), RiskScore: 0.1},
	}, nil)

	first := state.Chart(1)
	first[0].Name = "mutated"

	second := state.Chart(1)
	assert.Equal(t, "B1", second[0].Name)
	assert.Equal(t, 90.0, second[0].Value)
	assert.Equal(t, 1, state.RiskLevels().High)
}

func TestLogEventHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := LogEventHandler{Logger: logger}

	h.HandleEvent(LoadEvent{Dataset: client.DatasetRisk, Rows: 3})
	h.HandleEvent(LoadEvent{Dataset: client.DatasetMaintenance, Err: errors.New("connection refused")})

	out := buf.String()
	assert.Contains(t, out, "dataset loaded")
	assert.Contains(t, out, "rows=3")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "connection refused")
}

func TestConsoleEventHandler(t *testing.T) {
	var buf bytes.Buffer
	h := ConsoleEventHandler{Out: &buf}

	h.HandleEvent(LoadEvent{Dataset: client.DatasetMaintenance, Err: errors.New("timeout")})
	h.HandleEvent(LoadEvent{Dataset: client.DatasetRisk, Rows: 4})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Error loading maintenance data: timeout")
	assert.Contains(t, lines[1], "Loaded 4 risk rows")
}

func TestMultiEventHandler(t *testing.T) {
	a, b := &RecordingEventHandler{}, &RecordingEventHandler{}
	multi := MultiEventHandler{Handlers: []EventHandler{a, nil, b}}

	multi.HandleEvent(LoadEvent{Dataset: "risk"})

	assert.Len(t, a.SnapShot(), 1)
	assert.Len(t, b.SnapShot(), 1)
}
