package simserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"factorysim/sim"
)

func testConfig() sim.Config {
	return sim.Config{
		NStations:    2,
		BufferCaps:   []int{2},
		ProcMeans:    []float64{1.0, 1.0},
		ProcDists:    []sim.Dist{sim.DistExp, sim.DistExp},
		WorkersTotal: 1,
	}
}

func TestHandleSnapshotReturnsCurrentState(t *testing.T) {
	srv, err := NewServer(testConfig(), nil, 0, true)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	var snap sim.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(snap.Stations) != 2 {
		t.Fatalf("got %d stations, want 2", len(snap.Stations))
	}
}

func TestNewServerAppliesInitialJobsAndSeed(t *testing.T) {
	seed := uint64(42)
	srv, err := NewServer(testConfig(), &seed, 12, true)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summary", nil))
	var summary sim.Summary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalJobs != 12 {
		t.Fatalf("got total_jobs %d, want 12 (scenario jobs never reached the engine)", summary.TotalJobs)
	}
}

func TestHandleResetAppliesJobs(t *testing.T) {
	srv, err := NewServer(testConfig(), nil, 0, true)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	router := srv.Router()

	body, _ := json.Marshal(resetRequest{Jobs: 7})
	req := httptest.NewRequest(http.MethodPost, "/reset", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}

	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/summary", nil))
	var summary sim.Summary
	if err := json.NewDecoder(rec2.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalJobs != 7 {
		t.Fatalf("got total_jobs %d, want 7", summary.TotalJobs)
	}
}

func TestHandleActionAdvancesToNextDecision(t *testing.T) {
	srv, err := NewServer(testConfig(), nil, 0, true)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/reset", bytes.NewReader(mustJSON(resetRequest{Jobs: 5})))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	actReq := httptest.NewRequest(http.MethodPost, "/action", bytes.NewReader(mustJSON(actionRequest{})))
	actRec := httptest.NewRecorder()
	router.ServeHTTP(actRec, actReq)

	if actRec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", actRec.Code)
	}
	var snap sim.Snapshot
	if err := json.NewDecoder(actRec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Event.Type == nil {
		t.Fatal("expected a populated event after /action")
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	srv, err := NewServer(testConfig(), nil, 0, true)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
}

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
