package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabmap/internal/domain/creator"
)

type stubStore struct {
	creators []creator.Summary
	err      error
}

func (s *stubStore) ListCreators(ctx context.Context) ([]creator.Summary, error) {
	return s.creators, s.err
}

func (s *stubStore) GetCreator(ctx context.Context, id string) (*creator.Summary, error) {
	for _, c := range s.creators {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, creator.ErrNotFound
}

func (s *stubStore) UpsertCreator(ctx context.Context, c creator.Summary) error {
	return nil
}

func (s *stubStore) UpdateFollowerCount(ctx context.Context, id string, count int) error {
	return nil
}

func ptr(v float64) *float64 {
	return &v
}

func testRouter(store creator.Store) *chi.Mux {
	h := NewCreatorHandler(store, nil, zerolog.Nop())

	r := chi.NewRouter()
	r.Get("/creators", h.ListCreators)
	r.Get("/creators/{id}", h.GetCreator)
	r.Get("/clusters", h.GetClusters)
	return r
}

func TestListCreatorsAppliesQueryFilters(t *testing.T) {
	store := &stubStore{creators: []creator.Summary{
		{ID: "me", Name: "Viewer", Niche: "travel", Location: "Bengaluru"},
		{ID: "a", Name: "Asha", Niche: "food", Location: "Bengaluru", FollowerCount: 12_000},
		{ID: "b", Name: "Ben", Niche: "food", Location: "Mumbai", FollowerCount: 500},
	}}

	req := httptest.NewRequest(http.MethodGet, "/creators?niches=food&followers=10k-100k&exclude=me", nil)
	rec := httptest.NewRecorder()
	testRouter(store).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Creators []creator.Summary `json:"creators"`
		Total    int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Equal(t, 1, body.Total)
	assert.Equal(t, "a", body.Creators[0].ID)
}

func TestListCreatorsLoadFailure(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}

	req := httptest.NewRequest(http.MethodGet, "/creators", nil)
	rec := httptest.NewRecorder()
	testRouter(store).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetCreatorNotFound(t *testing.T) {
	store := &stubStore{}

	req := httptest.NewRequest(http.MethodGet, "/creators/ghost", nil)
	rec := httptest.NewRecorder()
	testRouter(store).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetClustersSeparatesListedAndMapped(t *testing.T) {
	store := &stubStore{creators: []creator.Summary{
		{ID: "a", Name: "Asha", Latitude: ptr(12.9716), Longitude: ptr(77.5946)},
		{ID: "b", Name: "Ben", Latitude: ptr(12.9716), Longitude: ptr(77.5946)},
		{ID: "c", Name: "Chloe", Location: "Berlin"},
	}}

	req := httptest.NewRequest(http.MethodGet, "/clusters", nil)
	rec := httptest.NewRecorder()
	testRouter(store).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Clusters []struct {
			Key      string            `json:"key"`
			Creators []creator.Summary `json:"creators"`
		} `json:"clusters"`
		Listed int `json:"listed"`
		Mapped int `json:"mapped"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 3, body.Listed, "coordinate-less creators still count as listed")
	assert.Equal(t, 2, body.Mapped)
	require.Len(t, body.Clusters, 1)
	assert.Equal(t, "12.9716_77.5946", body.Clusters[0].Key)
	assert.Len(t, body.Clusters[0].Creators, 2)
}
