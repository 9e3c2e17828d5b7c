package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListLocationsSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(listLocationsResponse{Locations: []Location{
			{ID: "L1", Name: "Main", Status: "ACTIVE"},
		}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-token")
	locations, err := client.ListLocations(context.Background())
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "L1", locations[0].ID)
}

func TestSearchAllCatalogObjectsFollowsCursor(t *testing.T) {
	var cursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchCatalogRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		cursors = append(cursors, req.Cursor)

		resp := searchCatalogResponse{}
		if req.Cursor == "" {
			resp.Objects = []CatalogObject{{ID: "C1"}, {ID: "C2"}}
			resp.Cursor = "page2"
		} else {
			resp.Objects = []CatalogObject{{ID: "C3"}}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "t")
	objects, err := client.SearchAllCatalogObjects(context.Background(), ObjectCategory)
	require.NoError(t, err)
	assert.Len(t, objects, 3)
	assert.Equal(t, []string{"", "page2"}, cursors)
}

func TestDoMapsRateLimitResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "t")
	_, err := client.ListLocations(context.Background())
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))

	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 7*time.Second, rle.RetryAfter)
}

func TestDoMapsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "t")
	_, err := client.SearchVendors(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "boom")
	assert.False(t, IsRateLimited(err))
}

func TestSearchOrdersSendsDateRangeFilter(t *testing.T) {
	var got searchOrdersRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"orders": []Order{{ID: "O1"}},
		})
	}))
	defer srv.Close()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	client := NewClient(srv.URL, "t")
	orders, cursor, err := client.SearchOrders(context.Background(), []string{"L1"},
		DateRange{Start: start, End: end}, []string{"COMPLETED"}, "")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Empty(t, cursor)
	assert.Equal(t, []string{"L1"}, got.LocationIDs)
	assert.Equal(t, "2024-03-01T00:00:00Z", got.Filter.DateRange.Start)
	assert.Equal(t, "2024-03-08T00:00:00Z", got.Filter.DateRange.End)
	assert.Equal(t, []string{"COMPLETED"}, got.Filter.States)
}
