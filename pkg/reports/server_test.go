package reports

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikedash/pkg/client"
	"bikedash/pkg/dashboard"
	"bikedash/pkg/entity"
	"bikedash/pkg/internal/testutil"
)

type fakeScorer struct {
	score entity.BikeScore
	err   error
}

func (f fakeScorer) BikeScore(_ context.Context, id string) (entity.BikeScore, error) {
	if f.err != nil {
		return entity.BikeScore{}, f.err
	}
	s := f.score
	s.BikeID = entity.StringID(id)
	return s, nil
}

func newTestServer(t *testing.T, load Loader, opts ServerOptions) *httptest.Server {
	t.Helper()
	srv, err := NewServer(load, opts)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestNewServerRequiresLoader(t *testing.T) {
	_, err := NewServer(nil, ServerOptions{})
	require.Error(t, err)
}

func TestServerIndexReloadsEveryRequest(t *testing.T) {
	var calls atomic.Int32
	load := func(context.Context) *dashboard.State {
		calls.Add(1)
		return sampleState()
	}
	ts := newTestServer(t, load, ServerOptions{View: Options{TopN: TopN(1)}})

	for i := 0; i < 2; i++ {
		resp := get(t, ts.URL+"/")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestServerChartAPI(t *testing.T) {
	api := testutil.NewServer(t)
	c, err := client.New(api.URL)
	require.NoError(t, err)

	load := func(ctx context.Context) *dashboard.State {
		return dashboard.Load(ctx, c, dashboard.Options{})
	}
	ts := newTestServer(t, load, ServerOptions{View: Options{TopN: TopN(1)}})

	resp := get(t, ts.URL+"/api/chart")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		TopN int               `json:"top_n"`
		Rows []entity.ChartRow `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.TopN)
	require.Len(t, body.Rows, 2)
	assert.Equal(t, "B1", body.Rows[0].Name)
	assert.Equal(t, 90.0, body.Rows[0].Value)
	assert.Equal(t, entity.OtherBikeID, body.Rows[1].BikeID)
}

func TestServerChartAPIStringIDs(t *testing.T) {
	api := testutil.NewServer(t)
	api.SetJSON(t, client.AtRiskPath, []map[string]any{
		{"bike_id": "007", "risk_score": 0.6},
		{"bike_id": "+5", "risk_score": 0.3},
		{"bike_id": 12, "risk_score": 0.1},
	})
	c, err := client.New(api.URL)
	require.NoError(t, err)

	load := func(ctx context.Context) *dashboard.State {
		return dashboard.Load(ctx, c, dashboard.Options{})
	}
	ts := newTestServer(t, load, ServerOptions{View: Options{TopN: TopN(2)}})

	resp := get(t, ts.URL+"/api/chart")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Rows []json.RawMessage `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Rows, 3)
	assert.Contains(t, string(body.Rows[0]), `"bike_id":"007"`)
	assert.Contains(t, string(body.Rows[1]), `"bike_id":"+5"`)
	assert.Contains(t, string(body.Rows[2]), `"bike_id":"Other"`)
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestServerChartAPIReportsLoadErrors(t *testing.T) {
	api := testutil.NewServer(t)
	api.Set(client.AtRiskPath, http.StatusInternalServerError, "down")
	c, err := client.New(api.URL)
	require.NoError(t, err)

	load := func(ctx context.Context) *dashboard.State {
		return dashboard.Load(ctx, c, dashboard.Options{})
	}
	ts := newTestServer(t, load, ServerOptions{})

	resp := get(t, ts.URL+"/api/chart")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body["rows"])
	assert.Contains(t, body["risk_error"], "Error loading risk data")
	assert.NotContains(t, body, "maintenance_error")
}

func TestServerHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, func(context.Context) *dashboard.State { return dashboard.NewState(nil, nil) }, ServerOptions{})

	resp := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerBikeScore(t *testing.T) {
	scorer := fakeScorer{score: entity.BikeScore{Probabilities: map[string]float64{"brakes": 0.7}}}
	ts := newTestServer(t, func(context.Context) *dashboard.State { return sampleState() }, ServerOptions{Scores: scorer})

	resp := get(t, ts.URL+"/api/bikes/42")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var score entity.BikeScore
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&score))
	assert.Equal(t, entity.StringID("42"), score.BikeID)
	assert.Equal(t, 0.7, score.Probabilities["brakes"])
}

func TestServerBikeScoreErrors(t *testing.T) {
	notFound := fakeScorer{err: &client.StatusError{Path: "/bikes/score/9", StatusCode: http.StatusNotFound}}
	ts := newTestServer(t, func(context.Context) *dashboard.State { return sampleState() }, ServerOptions{Scores: notFound})
	assert.Equal(t, http.StatusNotFound, get(t, ts.URL+"/api/bikes/9").StatusCode)

	broken := fakeScorer{err: errors.New("dial tcp: refused")}
	ts = newTestServer(t, func(context.Context) *dashboard.State { return sampleState() }, ServerOptions{Scores: broken})
	assert.Equal(t, http.StatusBadGateway, get(t, ts.URL+"/api/bikes/9").StatusCode)
}

func TestServerBikeScoreDisabled(t *testing.T) {
	ts := newTestServer(t, func(context.Context) *dashboard.State { return sampleState() }, ServerOptions{})
	assert.Equal(t, http.StatusNotFound, get(t, ts.URL+"/api/bikes/9").StatusCode)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	srv, err := NewServer(func(context.Context) *dashboard.State { return sampleState() }, ServerOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, srv.ListenAndServe(ctx, "127.0.0.1:0"))
}
