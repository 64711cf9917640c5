// internal/server/handlers/creator.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"collabmap/internal/domain/creator"
	"collabmap/internal/domain/maplib"
	"collabmap/internal/service/cluster"
	"collabmap/internal/service/discovery"
	"collabmap/internal/service/geocode"
)

// CreatorHandler handles creator directory HTTP requests
type CreatorHandler struct {
	store    creator.Store
	geocoder geocode.Geocoder
	log      zerolog.Logger
}

// NewCreatorHandler creates a new creator handler
func NewCreatorHandler(store creator.Store, geocoder geocode.Geocoder, log zerolog.Logger) *CreatorHandler {
	return &CreatorHandler{
		store:    store,
		geocoder: geocoder,
		log:      log,
	}
}

// parseFilters reads the discovery facets from query parameters.
func parseFilters(r *http.Request) (creator.ExploreFilters, string, string) {
	q := r.URL.Query()

	var filters creator.ExploreFilters
	if niches := q.Get("niches"); niches != "" {
		filters.Niches = strings.Split(niches, ",")
	}
	filters.Location = q.Get("location")
	filters.Followers = creator.ParseFollowerRange(q.Get("followers"))

	return filters, q.Get("exclude"), q.Get("q")
}

// ListCreators returns the filtered creator list, in storage order.
func (h *CreatorHandler) ListCreators(w http.ResponseWriter, r *http.Request) {
	creators, err := h.store.ListCreators(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("listing creators")
		respondWithError(w, http.StatusInternalServerError, "Failed to load creators")
		return
	}

	filters, excludeID, search := parseFilters(r)
	filtered := discovery.Apply(creators, filters, excludeID, search)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"creators": filtered,
		"total":    len(filtered),
	})
}

// GetCreator returns a single creator by ID.
func (h *CreatorHandler) GetCreator(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.store.GetCreator(r.Context(), id)
	if err != nil {
		if errors.Is(err, creator.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Creator not found")
			return
		}
		h.log.Error().Err(err).Str("creator", id).Msg("getting creator")
		respondWithError(w, http.StatusInternalServerError, "Failed to load creator")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

// UpsertCreator inserts or updates a creator. When the record has a
// location label but no coordinates, a best-effort geocode fills them in;
// a geocoding failure leaves the creator list-only rather than rejecting
// the write.
func (h *CreatorHandler) UpsertCreator(w http.ResponseWriter, r *http.Request) {
	var c creator.Summary
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if c.ID == "" || c.Name == "" {
		respondWithError(w, http.StatusBadRequest, "Missing id or name")
		return
	}

	if c.FollowerCount < 0 {
		c.FollowerCount = 0
	}

	if c.Latitude == nil && c.Longitude == nil && c.Location != "" && h.geocoder != nil {
		point, err := h.geocoder.Geocode(r.Context(), c.Location)
		if err != nil {
			h.log.Warn().Err(err).Str("creator", c.ID).Msg("geocoding location")
		} else if point != nil {
			c.Latitude = &point.Lat
			c.Longitude = &point.Lng
		}
	}

	if err := h.store.UpsertCreator(r.Context(), c); err != nil {
		h.log.Error().Err(err).Str("creator", c.ID).Msg("upserting creator")
		respondWithError(w, http.StatusInternalServerError, "Failed to save creator")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

// clusterView is one rendered cluster in the snapshot response.
type clusterView struct {
	Key      string            `json:"key"`
	Position maplib.LatLng     `json:"position"`
	Creators []creator.Summary `json:"creators"`
}

// GetClusters returns a filtered, clustered snapshot of the directory for
// clients that render the map without a live session. Creators lacking
// coordinates count toward `listed` but never toward `mapped`, so the UI
// can report how many matches have no place on the map.
func (h *CreatorHandler) GetClusters(w http.ResponseWriter, r *http.Request) {
	creators, err := h.store.ListCreators(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("listing creators")
		respondWithError(w, http.StatusInternalServerError, "Failed to load creators")
		return
	}

	filters, excludeID, search := parseFilters(r)
	filtered := discovery.Apply(creators, filters, excludeID, search)
	clusters := cluster.Build(filtered)

	views := make([]clusterView, 0, len(clusters))
	mapped := 0
	for _, cl := range clusters {
		views = append(views, clusterView{
			Key:      string(cl.Key),
			Position: cl.Anchor,
			Creators: cl.Members,
		})
		mapped += len(cl.Members)
	}

	sort.Slice(views, func(i, j int) bool { return views[i].Key < views[j].Key })

	payload := map[string]interface{}{
		"clusters": views,
		"listed":   len(filtered),
		"mapped":   mapped,
	}

	if bounds, count := cluster.UnionBounds(clusters); count > 0 {
		payload["bounds"] = bounds
	}

	respondWithJSON(w, http.StatusOK, payload)
}
