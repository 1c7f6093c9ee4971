package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxdeedflow/property-report/internal/model"
	"github.com/taxdeedflow/property-report/internal/store"
)

type stubStore struct {
	runs    map[string]*model.Run
	saveErr error
	listErr error
}

func newStubStore() *stubStore {
	return &stubStore{runs: map[string]*model.Run{}}
}

func (s *stubStore) SaveRun(_ context.Context, rec *model.EnrichedRecord) (*model.Run, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	run := &model.Run{
		ID:        "run-1",
		Address:   rec.Property.Address,
		Quality:   rec.Metadata.DataQuality,
		Record:    rec,
		CreatedAt: time.Now().UTC(),
	}
	s.runs[run.ID] = run
	return run, nil
}

func (s *stubStore) SaveRuns(_ context.Context, recs []*model.EnrichedRecord) (int64, error) {
	return int64(len(recs)), nil
}

func (s *stubStore) GetRun(_ context.Context, runID string) (*model.Run, error) {
	run, ok := s.runs[runID]
	if !ok {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return run, nil
}

func (s *stubStore) ListRuns(_ context.Context, _ store.RunFilter) ([]model.Run, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Run
	for _, run := range s.runs {
		out = append(out, *run)
	}
	return out, nil
}

func (s *stubStore) Migrate(context.Context) error { return nil }
func (s *stubStore) Close() error                  { return nil }

func okGenerate(_ context.Context, req model.Request) (*model.EnrichedRecord, error) {
	rec := &model.EnrichedRecord{}
	rec.Property.Address = req.Address
	rec.Property.State = "FL"
	rec.Metadata.DataQuality = model.DataQualityComplete
	return rec, nil
}

func TestServeHealth(t *testing.T) {
	srv := httptest.NewServer(newRouter(okGenerate, newStubStore()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeReport(t *testing.T) {
	st := newStubStore()
	srv := httptest.NewServer(newRouter(okGenerate, st))
	defer srv.Close()

	body, _ := json.Marshal(model.Request{Address: "321 Oak St, Ocala, FL 34471"})
	resp, err := http.Post(srv.URL+"/api/report", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		RunID  string                `json:"run_id"`
		Record *model.EnrichedRecord `json:"record"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "run-1", out.RunID)
	require.NotNil(t, out.Record)
	assert.Equal(t, "321 Oak St, Ocala, FL 34471", out.Record.Property.Address)
	assert.Len(t, st.runs, 1)
}

func TestServeReportExplicitTogglesPreserved(t *testing.T) {
	var seen model.Options
	gen := func(_ context.Context, req model.Request) (*model.EnrichedRecord, error) {
		seen = req.Options
		return okGenerate(context.Background(), req)
	}
	srv := httptest.NewServer(newRouter(gen, newStubStore()))
	defer srv.Close()

	body := []byte(`{"address":"321 Oak St","options":{
		"include_valuation":false,"include_comparables":false,"include_crime":false,
		"include_broadband":false,"include_economic":false,"include_flood":false,
		"include_elevation":false,"include_climate":false,"include_narrative":false,
		"radius_miles":0.5}}`)
	resp, err := http.Post(srv.URL+"/api/report", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Explicitly false toggles must not be swapped for the defaults.
	assert.Equal(t, model.Options{RadiusMiles: 0.5}, seen)
}

func TestServeReportOmittedOptionsGetDefaults(t *testing.T) {
	var seen model.Options
	gen := func(_ context.Context, req model.Request) (*model.EnrichedRecord, error) {
		seen = req.Options
		return okGenerate(context.Background(), req)
	}
	srv := httptest.NewServer(newRouter(gen, newStubStore()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/report", "application/json", bytes.NewReader([]byte(`{"address":"321 Oak St"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, model.DefaultOptions(), seen)
}

func TestServeReportMissingAddress(t *testing.T) {
	srv := httptest.NewServer(newRouter(okGenerate, newStubStore()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/report", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeReportBadBody(t *testing.T) {
	srv := httptest.NewServer(newRouter(okGenerate, newStubStore()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/report", "application/json", bytes.NewReader([]byte(`not json`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeReportGenerateError(t *testing.T) {
	fail := func(_ context.Context, _ model.Request) (*model.EnrichedRecord, error) {
		return nil, eris.New("engine down")
	}
	srv := httptest.NewServer(newRouter(fail, newStubStore()))
	defer srv.Close()

	body := []byte(`{"address":"321 Oak St"}`)
	resp, err := http.Post(srv.URL+"/api/report", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestServeReportSaveFailureStillReturnsRecord(t *testing.T) {
	st := newStubStore()
	st.saveErr = eris.New("db gone")
	srv := httptest.NewServer(newRouter(okGenerate, st))
	defer srv.Close()

	body := []byte(`{"address":"321 Oak St"}`)
	resp, err := http.Post(srv.URL+"/api/report", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		RunID  string                `json:"run_id"`
		Record *model.EnrichedRecord `json:"record"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Empty(t, out.RunID)
	require.NotNil(t, out.Record)
}

func TestServeRuns(t *testing.T) {
	st := newStubStore()
	rec := &model.EnrichedRecord{}
	rec.Property.Address = "321 Oak St"
	rec.Metadata.DataQuality = model.DataQualityPartial
	_, err := st.SaveRun(context.Background(), rec)
	require.NoError(t, err)

	srv := httptest.NewServer(newRouter(okGenerate, st))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Runs []model.Run `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Runs, 1)
	assert.Equal(t, "321 Oak St", out.Runs[0].Address)
	assert.Nil(t, out.Runs[0].Record, "listing should not carry full records")
}

func TestShutdownDrainsInFlightRequests(t *testing.T) {
	release := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	})}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln) //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		shutdownOnSignal(ctx, srv, 5*time.Second)
		close(done)
	}()

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	// Cancel with the request still held in the handler, then let it finish.
	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)

	assert.Equal(t, http.StatusOK, <-status, "in-flight request must complete during shutdown")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}

func TestServeRunByID(t *testing.T) {
	st := newStubStore()
	rec := &model.EnrichedRecord{}
	rec.Property.Address = "321 Oak St"
	run, err := st.SaveRun(context.Background(), rec)
	require.NoError(t, err)

	srv := httptest.NewServer(newRouter(okGenerate, st))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/runs/" + run.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, run.ID, got.ID)
	require.NotNil(t, got.Record)

	resp2, err := http.Get(srv.URL + "/api/runs/nope")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
