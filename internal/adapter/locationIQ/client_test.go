package locationIQ

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New("test-key", srv.URL, time.Minute)
	require.NoError(t, err)
	return c, &hits
}

func TestReverseParsesCityAndCaches(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"display_name":"Boulevard Anfa, Casablanca","address":{"town":"Casablanca","country":"Morocco"}}`))
	})

	ctx := context.Background()
	addr, err := c.Reverse(ctx, models.GeoPoint{Lat: 33.58951, Lng: -7.60321})
	require.NoError(t, err)
	assert.Equal(t, "Casablanca", addr.City)
	assert.Equal(t, "Morocco", addr.Country)

	// A few meters away rounds to the same key.
	_, err = c.Reverse(ctx, models.GeoPoint{Lat: 33.58953, Lng: -7.60323})
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestReverseRejectsInvalidPoint(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.Reverse(context.Background(), models.GeoPoint{Lat: 120, Lng: 0})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.EqualValues(t, 0, hits.Load())
}

func TestReverseUpstreamFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Reverse(context.Background(), models.GeoPoint{Lat: 1, Lng: 1})
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestSearch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Rabat", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`[{"display_name":"Rabat, Morocco","lat":"34.02","lon":"-6.84","address":{"city":"Rabat","country":"Morocco"}}]`))
	})

	addr, err := c.Search(context.Background(), " Rabat ")
	require.NoError(t, err)
	assert.Equal(t, "Rabat", addr.City)
	assert.InDelta(t, 34.02, addr.Point.Lat, 1e-9)
	assert.InDelta(t, -6.84, addr.Point.Lng, 1e-9)
}

func TestSearchNoMatch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Search(context.Background(), "nowhere")
	assert.True(t, IsNotFound(err))
}
