package mapsession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabmap/internal/domain/creator"
	"collabmap/internal/domain/maplib"
)

func testConfig() Config {
	return Config{
		TileURL:         "https://tiles.example/{z}/{x}/{y}.png",
		TileAttribution: "test tiles",
		WorldCenter:     maplib.LatLng{Lat: 20, Lng: 0},
		WorldZoom:       2,
		CloseZoom:       13,
		BoundsPadding:   0.3,
		ReadyChecks:     3,
		ReadyInterval:   time.Millisecond,
	}
}

func ptr(v float64) *float64 {
	return &v
}

func placed(id string, lat, lng float64) creator.Summary {
	return creator.Summary{ID: id, Name: id, Latitude: ptr(lat), Longitude: ptr(lng)}
}

func startSession(t *testing.T, nav NavigateFunc) (*Session, *fakeHandle) {
	t.Helper()

	lib := &fakeLib{ready: true}
	s := NewSession(lib, testConfig(), "viewer", nav, zerolog.Nop())
	require.NoError(t, s.Start(context.Background()))

	return s, lib.handle
}

func TestStartUnavailableWhenNeverReady(t *testing.T) {
	lib := &fakeLib{ready: false}
	s := NewSession(lib, testConfig(), "viewer", nil, zerolog.Nop())

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, maplib.ErrUnavailable)
}

func TestStartFramesWorldViewAndRequestsLocation(t *testing.T) {
	_, handle := startSession(t, nil)

	require.NotEmpty(t, handle.frames)
	assert.Equal(t, frame{op: "set_view", center: maplib.LatLng{Lat: 20, Lng: 0}, zoom: 2}, handle.frames[0])
	assert.Equal(t, 1, handle.tileLayers)
	assert.Equal(t, 1, handle.locates)
}

func TestReconcileRendersSingletonsAndGroups(t *testing.T) {
	s, handle := startSession(t, nil)

	s.SetCandidates([]creator.Summary{
		placed("a", 12.97160, 77.59460),
		placed("b", 12.97161, 77.59464),
		placed("c", 13.0, 77.6),
		{ID: "d", Name: "no coords"},
	})

	assert.Equal(t, 2, s.MarkerCount())
	assert.Len(t, handle.liveOfKind(maplib.KindBadge), 1)
	assert.Len(t, handle.liveOfKind(maplib.KindAvatar), 1)

	badge := handle.liveOfKind(maplib.KindBadge)[0]
	assert.Equal(t, 2, badge.spec.Count)
	require.Len(t, badge.spec.Popup.Rows, 2)
	assert.Equal(t, "a", badge.spec.Popup.Rows[0].Name)
}

func TestReconcileSamePassTwiceDoesNotLeakMarkers(t *testing.T) {
	s, handle := startSession(t, nil)

	candidates := []creator.Summary{
		placed("a", 12.9716, 77.5946),
		placed("b", 12.9716, 77.5946),
		placed("c", 13.0, 77.6),
	}

	s.SetCandidates(candidates)
	first := len(handle.live)

	s.SetCandidates(candidates)
	assert.Equal(t, first, len(handle.live), "reconciling the same clusters twice must not duplicate markers")
	assert.Equal(t, 2, s.MarkerCount())
}

func TestReconcileIsolatesMarkerFailures(t *testing.T) {
	s, handle := startSession(t, nil)
	handle.failMarker = func(spec maplib.MarkerSpec) error {
		if spec.Kind == maplib.KindBadge {
			return errors.New("boom")
		}
		return nil
	}

	s.SetCandidates([]creator.Summary{
		placed("a", 12.9716, 77.5946),
		placed("b", 12.9716, 77.5946),
		placed("c", 13.0, 77.6),
	})

	assert.Equal(t, 1, s.MarkerCount(), "the failing group marker is skipped, the singleton still renders")
	assert.Len(t, handle.liveOfKind(maplib.KindAvatar), 1)
}

func TestViewportFitsPaddedBoundsOverClusters(t *testing.T) {
	s, handle := startSession(t, nil)

	s.SetCandidates([]creator.Summary{
		placed("a", 10.0, 20.0),
		placed("b", 12.0, 18.0),
	})

	last := handle.lastFrame()
	require.NotNil(t, last)
	require.Equal(t, "fit_bounds", last.op)

	assert.InDelta(t, 9.4, last.bounds.SouthWest.Lat, 1e-9)
	assert.InDelta(t, 17.4, last.bounds.SouthWest.Lng, 1e-9)
	assert.InDelta(t, 12.6, last.bounds.NorthEast.Lat, 1e-9)
	assert.InDelta(t, 20.6, last.bounds.NorthEast.Lng, 1e-9)
}

func TestViewportSkipsDegenerateBounds(t *testing.T) {
	s, handle := startSession(t, nil)

	s.SetCandidates(nil)
	s.SetCandidates([]creator.Summary{placed("a", 10.0, 20.0)})

	assert.NotContains(t, handle.frameOps(), "fit_bounds")
}

func TestDeviceLocationDisablesBoundsFitting(t *testing.T) {
	s, handle := startSession(t, nil)

	device := maplib.LatLng{Lat: 48.8566, Lng: 2.3522}
	s.LocationFound(device)

	// The creator set changing afterward must not steal framing back.
	s.SetCandidates([]creator.Summary{
		placed("a", 10.0, 20.0),
		placed("b", 12.0, 18.0),
	})

	last := handle.lastFrame()
	require.NotNil(t, last)
	assert.Equal(t, "fly_to", last.op)
	assert.Equal(t, device, last.center)
	assert.Equal(t, 13, last.zoom)
	assert.NotContains(t, handle.frameOps(), "fit_bounds")
}

func TestOnlyFirstLocationResultCounts(t *testing.T) {
	s, handle := startSession(t, nil)

	s.LocationFound(maplib.LatLng{Lat: 48.0, Lng: 2.0})
	s.LocationFound(maplib.LatLng{Lat: 50.0, Lng: 3.0})

	assert.Len(t, handle.liveOfKind(maplib.KindSelf), 1, "one self marker per session")

	last := handle.lastFrame()
	require.NotNil(t, last)
	assert.Equal(t, maplib.LatLng{Lat: 48.0, Lng: 2.0}, last.center)
}

func TestSelfMarkerHasNoNavigationAction(t *testing.T) {
	s, handle := startSession(t, nil)
	s.LocationFound(maplib.LatLng{Lat: 48.0, Lng: 2.0})

	self := handle.liveOfKind(maplib.KindSelf)[0]
	assert.Equal(t, "You are here", self.spec.Popup.Title)
	assert.Empty(t, self.spec.Popup.Rows)
}

func TestRecenterFliesToKnownDeviceLocation(t *testing.T) {
	s, handle := startSession(t, nil)

	device := maplib.LatLng{Lat: 48.0, Lng: 2.0}
	s.LocationFound(device)
	s.Recenter()

	last := handle.lastFrame()
	require.NotNil(t, last)
	assert.Equal(t, "fly_to", last.op)
	assert.Equal(t, device, last.center)
}

func TestRecenterWithoutDeviceReissuesLocate(t *testing.T) {
	s, handle := startSession(t, nil)

	before := handle.locates
	s.Recenter()

	assert.Equal(t, before+1, handle.locates)
}

func TestLocationFailureStaysSilent(t *testing.T) {
	s, handle := startSession(t, nil)
	frames := len(handle.frames)

	s.LocationFailed("denied")

	assert.Len(t, handle.frames, frames)
	assert.Empty(t, handle.liveOfKind(maplib.KindSelf))
}

func TestClickNavigatesToCreator(t *testing.T) {
	var clicked []string
	s, handle := startSession(t, func(c creator.Summary) {
		clicked = append(clicked, c.ID)
	})

	s.SetCandidates([]creator.Summary{placed("a", 13.0, 77.6)})

	avatar := handle.liveOfKind(maplib.KindAvatar)[0]
	require.Len(t, avatar.spec.Popup.Rows, 1)

	s.Click(avatar.spec.Popup.Rows[0].Token)
	assert.Equal(t, []string{"a"}, clicked)
}

func TestStaleTokenAfterReconcileDoesNotFire(t *testing.T) {
	var clicked []string
	s, handle := startSession(t, func(c creator.Summary) {
		clicked = append(clicked, c.ID)
	})

	s.SetCandidates([]creator.Summary{placed("a", 13.0, 77.6)})
	stale := handle.liveOfKind(maplib.KindAvatar)[0].spec.Popup.Rows[0].Token

	// Same position, different creator: the slot is reused but the old
	// token must not resolve to the new occupant.
	s.SetCandidates([]creator.Summary{placed("z", 13.0, 77.6)})

	s.Click(stale)
	assert.Empty(t, clicked)

	fresh := handle.liveOfKind(maplib.KindAvatar)[0].spec.Popup.Rows[0].Token
	s.Click(fresh)
	assert.Equal(t, []string{"z"}, clicked)
}

func TestPopupOpenRewiresRows(t *testing.T) {
	var clicked []string
	s, handle := startSession(t, func(c creator.Summary) {
		clicked = append(clicked, c.ID)
	})

	s.SetCandidates([]creator.Summary{
		placed("a", 12.9716, 77.5946),
		placed("b", 12.9716, 77.5946),
	})

	badge := handle.liveOfKind(maplib.KindBadge)[0]
	stale := badge.spec.Popup.Rows[0].Token

	s.PopupOpened("12.9716_77.5946")

	fresh := badge.spec.Popup.Rows[0].Token
	assert.NotEqual(t, stale, fresh, "every popup open mints fresh click tokens")

	s.Click(stale)
	assert.Empty(t, clicked)

	s.Click(fresh)
	assert.Equal(t, []string{"a"}, clicked)
}

func TestPopupOpenForUnknownKeyIsNoOp(t *testing.T) {
	s, _ := startSession(t, nil)
	s.PopupOpened("0.0000_0.0000")
}

func TestCloseReleasesMapAndGuardsCallbacks(t *testing.T) {
	var clicked []string
	s, handle := startSession(t, func(c creator.Summary) {
		clicked = append(clicked, c.ID)
	})

	s.SetCandidates([]creator.Summary{placed("a", 13.0, 77.6)})
	token := handle.liveOfKind(maplib.KindAvatar)[0].spec.Popup.Rows[0].Token

	s.Close()

	assert.True(t, handle.removed)
	assert.Empty(t, handle.live, "all markers released on teardown")

	frames := len(handle.frames)

	// Late callbacks must be no-ops, never crashes.
	s.LocationFound(maplib.LatLng{Lat: 1, Lng: 1})
	s.SetCandidates([]creator.Summary{placed("b", 14.0, 78.0)})
	s.SetFilters(creator.ExploreFilters{}, "x")
	s.Recenter()
	s.Click(token)
	s.Close()

	assert.Len(t, handle.frames, frames)
	assert.Empty(t, clicked)
	assert.Zero(t, s.MarkerCount())
}

func TestViewerExcludedFromOwnMap(t *testing.T) {
	s, handle := startSession(t, nil)

	s.SetCandidates([]creator.Summary{
		placed("viewer", 13.0, 77.6),
		placed("a", 14.0, 78.0),
	})

	assert.Equal(t, 1, s.MarkerCount())
	avatar := handle.liveOfKind(maplib.KindAvatar)
	require.Len(t, avatar, 1)
	assert.Equal(t, "a", avatar[0].spec.Popup.Rows[0].Name)
}

func TestFilterChangeReclusters(t *testing.T) {
	s, _ := startSession(t, nil)

	s.SetCandidates([]creator.Summary{
		func() creator.Summary {
			c := placed("a", 13.0, 77.6)
			c.Niche = "food"
			return c
		}(),
		func() creator.Summary {
			c := placed("b", 14.0, 78.0)
			c.Niche = "travel"
			return c
		}(),
	})
	require.Equal(t, 2, s.MarkerCount())

	s.SetFilters(creator.ExploreFilters{Niches: []string{"food"}}, "")
	assert.Equal(t, 1, s.MarkerCount())

	s.SetFilters(creator.ExploreFilters{}, "")
	assert.Equal(t, 2, s.MarkerCount())
}
