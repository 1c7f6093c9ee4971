package main

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxdeedflow/property-report/internal/model"
)

func TestReadBatchRequests(t *testing.T) {
	csvData := `address,parcel_id,state
"321 Oak St, Ocala, FL 34471",R1234-567,FL
"100 Main St, Austin, TX 78701",,
,,
"55 Pine Ave, Denver, CO 80202",P-9,co
`
	reqs, err := readBatchRequests(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, reqs, 3)

	assert.Equal(t, "321 Oak St, Ocala, FL 34471", reqs[0].Address)
	assert.Equal(t, "R1234-567", reqs[0].ParcelID)
	assert.Equal(t, "FL", reqs[0].State)
	assert.Equal(t, model.DefaultOptions(), reqs[0].Options)

	assert.Equal(t, "100 Main St, Austin, TX 78701", reqs[1].Address)
	assert.Empty(t, reqs[1].ParcelID)

	assert.Equal(t, "co", reqs[2].State)
}

func TestReadBatchRequestsHeaderCaseInsensitive(t *testing.T) {
	csvData := "Address,State\n742 Evergreen Terrace,OR\n"
	reqs, err := readBatchRequests(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "742 Evergreen Terrace", reqs[0].Address)
	assert.Equal(t, "OR", reqs[0].State)
}

func TestReadBatchRequestsMissingAddressColumn(t *testing.T) {
	csvData := "parcel_id,state\nR1,FL\n"
	_, err := readBatchRequests(strings.NewReader(csvData))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address column")
}

func TestReadBatchRequestsAddressOnly(t *testing.T) {
	csvData := "address\n321 Oak St\n"
	reqs, err := readBatchRequests(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].ParcelID)
	assert.Empty(t, reqs[0].State)
}

func TestProcessBatch(t *testing.T) {
	reqs := []model.Request{
		{Address: "1 First St"},
		{Address: "2 Second St"},
		{Address: "3 Third St"},
	}

	recs, err := processBatch(context.Background(), reqs, 0, 2, func(_ context.Context, req model.Request) (*model.EnrichedRecord, error) {
		rec := &model.EnrichedRecord{}
		rec.Property.Address = req.Address
		return rec, nil
	})
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestProcessBatchLimit(t *testing.T) {
	reqs := []model.Request{
		{Address: "1 First St"},
		{Address: "2 Second St"},
		{Address: "3 Third St"},
	}

	var calls atomic.Int64
	recs, err := processBatch(context.Background(), reqs, 2, 1, func(_ context.Context, _ model.Request) (*model.EnrichedRecord, error) {
		calls.Add(1)
		return &model.EnrichedRecord{}, nil
	})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.EqualValues(t, 2, calls.Load())
}

func TestProcessBatchFailureDoesNotAbort(t *testing.T) {
	reqs := []model.Request{
		{Address: "1 First St"},
		{Address: "2 Second St"},
		{Address: "3 Third St"},
	}

	recs, err := processBatch(context.Background(), reqs, 0, 3, func(_ context.Context, req model.Request) (*model.EnrichedRecord, error) {
		if req.Address == "2 Second St" {
			return nil, eris.New("geocode timeout")
		}
		rec := &model.EnrichedRecord{}
		rec.Property.Address = req.Address
		return rec, nil
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.NotEqual(t, "2 Second St", rec.Property.Address)
	}
}

func TestProcessBatchConcurrencyLimit(t *testing.T) {
	reqs := make([]model.Request, 8)
	for i := range reqs {
		reqs[i] = model.Request{Address: "addr"}
	}

	var mu sync.Mutex
	var inFlight, peak int

	recs, err := processBatch(context.Background(), reqs, 0, 2, func(_ context.Context, _ model.Request) (*model.EnrichedRecord, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		defer func() {
			mu.Lock()
			inFlight--
			mu.Unlock()
		}()
		return &model.EnrichedRecord{}, nil
	})
	require.NoError(t, err)
	assert.Len(t, recs, 8)
	assert.LessOrEqual(t, peak, 2)
}

func TestProcessBatchEmpty(t *testing.T) {
	recs, err := processBatch(context.Background(), nil, 0, 4, func(_ context.Context, _ model.Request) (*model.EnrichedRecord, error) {
		t.Error("generate should not be called")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, recs)
}
