// Package testutil provides testing utilities for recset.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockService simulates the remote search and batch endpoints with a
// configurable pagination contract, so tests can express servers that
// honor only an offset key, only page parameters, or nothing at all.
type MockService struct {
	server *httptest.Server
	mu     sync.Mutex

	ids     []string
	records map[string]map[string]any

	// Pagination behavior. Defaults: ignore every pagination
	// parameter except "limit" and always serve from the start.
	OffsetKey  string // honored offset parameter name; "" ignores offsets
	PageParams bool   // honor SizeKey + "page"
	SizeKey    string
	PageOrigin int
	Unlimited  bool // always serve a full window of synthetic identifiers

	// Response shaping. An empty WrapKey returns a bare JSON array;
	// otherwise the list is wrapped under that key, with Meta merged in.
	WrapKey string
	Meta    map[string]any

	// Fault injection.
	SearchStatus    int         // non-zero: respond to search with this status
	SearchStatusAt  map[int]int // 1-based search request index -> status
	BatchStatusAt   map[int]int // 1-based batch request index -> status
	DropConnections int         // close this many connections before serving

	// Tracking.
	SearchRequests int
	BatchRequests  int
	BatchTargets   [][]string
	LastPayload    map[string]any
}

// NewMockService creates a mock service holding the given identifier
// corpus. Records returned by the batch endpoint default to
// {"id": <identifier>} plus a synthetic name.
func NewMockService(ids []string) *MockService {
	m := &MockService{
		ids:            ids,
		records:        make(map[string]map[string]any),
		SearchStatusAt: make(map[int]int),
		BatchStatusAt:  make(map[int]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/search", m.handleSearch)
	mux.HandleFunc("/batch", m.handleBatch)
	m.server = httptest.NewServer(mux)

	return m
}

// SearchURL returns the mock search endpoint.
func (m *MockService) SearchURL() string { return m.server.URL + "/search" }

// BatchURL returns the mock batch endpoint.
func (m *MockService) BatchURL() string { return m.server.URL + "/batch" }

// Close shuts down the mock server.
func (m *MockService) Close() { m.server.Close() }

// SetRecord overrides the record returned for one identifier.
func (m *MockService) SetRecord(id string, record map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = record
}

func (m *MockService) handleSearch(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dropLocked(w) {
		return
	}

	m.SearchRequests++

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	m.LastPayload = payload

	if m.SearchStatus != 0 {
		http.Error(w, "injected failure", m.SearchStatus)
		return
	}
	if status, ok := m.SearchStatusAt[m.SearchRequests]; ok {
		http.Error(w, "injected failure", status)
		return
	}

	limit := intArg(payload, "limit", len(m.ids))
	start := 0

	switch {
	case m.PageParams:
		if size := intArg(payload, m.SizeKey, 0); size > 0 {
			if page, ok := lookupInt(payload, "page"); ok {
				limit = size
				start = (page - m.PageOrigin) * size
			}
		}
	case m.OffsetKey != "":
		start = intArg(payload, m.OffsetKey, 0)
	}

	window := m.window(start, limit)

	var body any = window
	if m.WrapKey != "" {
		obj := map[string]any{m.WrapKey: window}
		for k, v := range m.Meta {
			obj[k] = v
		}
		body = obj
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

// window slices the corpus, or fabricates identifiers when Unlimited.
func (m *MockService) window(start, limit int) []string {
	if m.Unlimited {
		out := make([]string, limit)
		for i := range out {
			out[i] = fmt.Sprintf("gen-%08d", start+i)
		}
		return out
	}

	if start < 0 {
		start = 0
	}
	if start >= len(m.ids) {
		return []string{}
	}

	end := start + limit
	if end > len(m.ids) {
		end = len(m.ids)
	}
	return m.ids[start:end]
}

func (m *MockService) handleBatch(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dropLocked(w) {
		return
	}

	m.BatchRequests++

	var payload struct {
		Targets []string `json:"targets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	m.BatchTargets = append(m.BatchTargets, payload.Targets)

	if status, ok := m.BatchStatusAt[m.BatchRequests]; ok {
		http.Error(w, "injected failure", status)
		return
	}

	records := make([]map[string]any, 0, len(payload.Targets))
	for _, id := range payload.Targets {
		if rec, ok := m.records[id]; ok {
			records = append(records, rec)
			continue
		}
		records = append(records, map[string]any{
			"id":   id,
			"name": "record " + id,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// dropLocked closes the connection to simulate a transport failure.
func (m *MockService) dropLocked(w http.ResponseWriter) bool {
	if m.DropConnections <= 0 {
		return false
	}
	m.DropConnections--

	hj, ok := w.(http.Hijacker)
	if !ok {
		return false
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func intArg(payload map[string]any, key string, fallback int) int {
	if v, ok := lookupInt(payload, key); ok {
		return v
	}
	return fallback
}

func lookupInt(payload map[string]any, key string) (int, bool) {
	switch v := payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
