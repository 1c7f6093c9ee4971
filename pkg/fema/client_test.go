package fema

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloodZone_SFHA(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features": [{"attributes": {"FLD_ZONE": "AE", "ZONE_SUBTY": ""}}]}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	fz, err := c.FloodZone(context.Background(), 40.5187, -78.3947)
	require.NoError(t, err)
	assert.Equal(t, "AE", fz.Zone)
	assert.True(t, fz.SFHA)
	assert.Equal(t, "high", fz.Risk)
}

func TestFloodZone_ModerateShaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features": [{"attributes": {"FLD_ZONE": "X", "ZONE_SUBTY": "0.2 PCT ANNUAL CHANCE FLOOD HAZARD"}}]}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	fz, err := c.FloodZone(context.Background(), 40.5187, -78.3947)
	require.NoError(t, err)
	assert.False(t, fz.SFHA)
	assert.Equal(t, "moderate", fz.Risk)
}

func TestFloodZone_NoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features": []}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	fz, err := c.FloodZone(context.Background(), 40.5187, -78.3947)
	require.NoError(t, err)
	assert.Equal(t, "undetermined", fz.Risk)
}

func TestFloodZone_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.FloodZone(context.Background(), 40.5187, -78.3947)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestRiskForZone(t *testing.T) {
	tests := []struct {
		zone    string
		subtype string
		want    string
	}{
		{"A", "", "high"},
		{"VE", "", "high"},
		{"X", "0.2 PCT ANNUAL CHANCE FLOOD HAZARD", "moderate"},
		{"X", "", "minimal"},
		{"C", "", "minimal"},
		{"D", "", "undetermined"},
		{"", "", "undetermined"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, riskForZone(tt.zone, tt.subtype), "zone %q", tt.zone)
	}
}
