// internal/service/mapsession/session.go

package mapsession

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"collabmap/internal/domain/creator"
	"collabmap/internal/domain/maplib"
	"collabmap/internal/service/cluster"
	"collabmap/internal/service/discovery"
)

// Config contains map session configuration.
type Config struct {
	TileURL         string
	TileAttribution string
	WorldCenter     maplib.LatLng
	WorldZoom       int
	CloseZoom       int
	BoundsPadding   float64
	ReadyChecks     int
	ReadyInterval   time.Duration
}

// NavigateFunc is invoked when the viewer activates a creator's "View"
// action from a popup.
type NavigateFunc func(c creator.Summary)

// Session owns one client's map: the map handle, the rendered marker set,
// the viewport state and the geolocation flow. All entry points serialize
// on the session mutex; callbacks arriving after Close are no-ops.
type Session struct {
	id       string
	viewerID string
	cfg      Config
	lib      maplib.Library
	navigate NavigateFunc
	log      zerolog.Logger

	mu         sync.Mutex
	handle     maplib.Handle
	markers    *markerSet
	view       *viewport
	loc        *locator
	filters    creator.ExploreFilters
	search     string
	candidates []creator.Summary
	closed     bool
}

// NewSession creates a session for one viewer. Start must be called
// before any other operation.
func NewSession(lib maplib.Library, cfg Config, viewerID string, navigate NavigateFunc, log zerolog.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:       id,
		viewerID: viewerID,
		cfg:      cfg,
		lib:      lib,
		navigate: navigate,
		log:      log.With().Str("session", id[:8]).Logger(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Start waits for the map library to become ready within a bounded number
// of checks, creates the map, frames the initial world view and issues
// the one-shot geolocation request. Returns maplib.ErrUnavailable when
// the library never becomes ready; the list view stays usable in that
// case.
func (s *Session) Start(ctx context.Context) error {
	if err := s.awaitReady(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	handle, err := s.lib.CreateMap()
	if err != nil {
		return err
	}

	s.handle = handle
	s.markers = newMarkerSet(handle, s.log)
	s.view = &viewport{
		handle:      handle,
		worldCenter: s.cfg.WorldCenter,
		worldZoom:   s.cfg.WorldZoom,
		closeZoom:   s.cfg.CloseZoom,
		boundsPad:   s.cfg.BoundsPadding,
	}
	s.loc = &locator{handle: handle, log: s.log}

	handle.AddTileLayer(s.cfg.TileURL, s.cfg.TileAttribution)
	s.view.reset()
	s.loc.request()

	return nil
}

func (s *Session) awaitReady(ctx context.Context) error {
	for i := 0; i < s.cfg.ReadyChecks; i++ {
		if s.lib.Ready() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ReadyInterval):
		}
	}

	if s.lib.Ready() {
		return nil
	}

	return maplib.ErrUnavailable
}

// SetCandidates replaces the full candidate creator set and re-renders.
func (s *Session) SetCandidates(candidates []creator.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.handle == nil {
		return
	}

	s.candidates = candidates
	s.refreshLocked()
}

// SetFilters replaces the active filters and search text and re-renders.
func (s *Session) SetFilters(filters creator.ExploreFilters, search string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.handle == nil {
		return
	}

	s.filters = filters
	s.search = search
	s.refreshLocked()
}

// refreshLocked runs the discovery pipeline, rebuilds clusters, reconciles
// markers and lets the viewport react to the new bounds. Caller holds mu.
func (s *Session) refreshLocked() {
	filtered := discovery.Apply(s.candidates, s.filters, s.viewerID, s.search)
	clusters := cluster.Build(filtered)

	bounds, count := s.markers.reconcile(clusters)
	s.view.clustersChanged(bounds, count)
}

// PopupOpened rewires the popup content for the given cluster key. The
// map library may rebuild popup DOM between opens, so stale click tokens
// from a previous open must stop resolving.
func (s *Session) PopupOpened(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.markers == nil {
		return
	}

	s.markers.popupOpened(cluster.Key(key))
}

// Click resolves a popup-row token and invokes the navigation callback.
// Unknown or stale tokens are ignored.
func (s *Session) Click(token string) {
	s.mu.Lock()

	if s.closed || s.markers == nil {
		s.mu.Unlock()
		return
	}

	c, ok := s.markers.resolve(token)
	s.mu.Unlock()

	if !ok {
		s.log.Debug().Msg("ignoring stale click token")
		return
	}

	if s.navigate != nil {
		s.navigate(c)
	}
}

// LocationFound delivers a device geolocation result. Only the first
// result per session is honored: it places the self marker, flies the
// camera to the device point and permanently disables cluster-bounds
// auto-fitting.
func (s *Session) LocationFound(p maplib.LatLng) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.loc == nil {
		return
	}

	if !s.loc.accept(p) {
		return
	}

	s.view.locationFound(p)
}

// LocationFailed records a geolocation denial or timeout. Framing falls
// back to cluster-bounds fitting; no error reaches the user.
func (s *Session) LocationFailed(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.loc == nil {
		return
	}

	s.loc.failed(reason)
}

// Recenter handles the explicit user action: fly to the device location
// when known, otherwise re-issue a locate request.
func (s *Session) Recenter() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.view == nil {
		return
	}

	s.view.recenter()
}

// MarkerCount returns the number of rendered cluster markers.
func (s *Session) MarkerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.markers == nil {
		return 0
	}

	return s.markers.count()
}

// Close tears down the session and releases the map instance. Any
// callback firing after Close is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.markers != nil {
		s.markers.clear()
	}
	if s.handle != nil {
		s.handle.Remove()
	}
}
