// internal/service/mapsession/locate.go

package mapsession

import (
	"github.com/rs/zerolog"

	"collabmap/internal/domain/maplib"
)

// locator owns the one-shot device geolocation flow: a single request per
// session, at most one accepted result, and the distinct "you are here"
// marker. Denial and timeout stay silent; cluster-bounds fitting remains
// the framing authority in that case.
type locator struct {
	handle    maplib.Handle
	requested bool
	found     bool
	marker    maplib.Marker
	log       zerolog.Logger
}

// request issues the locate call once per session. Manual recenter goes
// through the viewport instead and is the only resubmission path.
func (l *locator) request() {
	if l.requested {
		return
	}
	l.requested = true
	l.handle.Locate()
}

// accept records the first location result and places the self marker.
// Returns false for every result after the first.
func (l *locator) accept(p maplib.LatLng) bool {
	if l.found {
		return false
	}
	l.found = true

	marker, err := l.handle.AddMarker(maplib.MarkerSpec{
		Kind:     maplib.KindSelf,
		Position: p,
		Popup:    maplib.Popup{Title: "You are here"},
	})
	if err != nil {
		// The camera still flies to the point; only the marker is lost.
		l.log.Warn().Err(err).Msg("placing self marker")
		return true
	}

	l.marker = marker
	return true
}

// failed logs a denial or timeout. The user is never blocked on it.
func (l *locator) failed(reason string) {
	l.log.Debug().Str("reason", reason).Msg("geolocation unavailable")
}
