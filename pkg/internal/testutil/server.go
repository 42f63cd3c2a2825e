package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Response is a canned reply for one API path.
type Response struct {
	Status int
	Body   string
}

// Server is a fake maintenance API. Paths without a canned response return 404.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]Response
	requests  []*http.Request
}

// Common defaults you often need
const (
	DefaultRisk        = `[{"bike_id":1,"risk_score":0.9},{"bike_id":2,"risk_score":0.05},{"bike_id":3,"risk_score":0.05}]`
	DefaultMaintenance = `[{"record_id":1,"bike_id":2,"maintenance_date":"2025-10-18","component_failed":"brakes"}]`
)

// NewServer starts a fake API with the default risk and maintenance payloads.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		responses: map[string]Response{
			"/scores/at-risk":      {Status: http.StatusOK, Body: DefaultRisk},
			"/maintenance/records": {Status: http.StatusOK, Body: DefaultMaintenance},
		},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)

	return s
}

// Set replaces the response for path.
func (s *Server) Set(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[path] = Response{Status: status, Body: body}
}

// SetJSON encodes v as the response for path.
func (s *Server) SetJSON(t testing.TB, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	s.Set(path, http.StatusOK, string(data))
}

// Requests returns a copy of the requests received so far.
func (s *Server) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*http.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r)
	resp, ok := s.responses[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = w.Write([]byte(resp.Body))
}
