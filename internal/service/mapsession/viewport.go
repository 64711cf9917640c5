// internal/service/mapsession/viewport.go

package mapsession

import (
	"collabmap/internal/domain/maplib"
)

// viewport arbitrates camera framing. Competing triggers resolve by
// priority: once a device location is known it owns framing for the rest
// of the session and cluster-bounds fitting is disabled. Intents are
// never queued; the newest one simply replaces whatever the camera was
// doing.
type viewport struct {
	handle      maplib.Handle
	worldCenter maplib.LatLng
	worldZoom   int
	closeZoom   int
	boundsPad   float64
	device      *maplib.LatLng
}

// reset frames the fixed low-zoom world view. Whichever of device
// location or cluster bounds resolves first overwrites it.
func (v *viewport) reset() {
	v.handle.SetView(v.worldCenter, v.worldZoom)
}

// locationFound records the device point and flies to it. From here on
// the viewer's own context takes framing priority over cluster bounds.
func (v *viewport) locationFound(p maplib.LatLng) {
	v.device = &p
	v.handle.FlyTo(p, v.closeZoom)
}

// clustersChanged fits the camera over the rendered markers, padded so
// edge markers are not clipped. Skipped once a device location is known,
// and skipped for degenerate bounds (no markers, or a single point).
func (v *viewport) clustersChanged(bounds maplib.Bounds, count int) {
	if v.device != nil {
		return
	}

	if count < 2 {
		return
	}

	v.handle.FitBounds(bounds.Pad(v.boundsPad))
}

// recenter handles the explicit user action: fly to the known device
// location, or re-issue a locate request if none was ever found.
func (v *viewport) recenter() {
	if v.device != nil {
		v.handle.FlyTo(*v.device, v.closeZoom)
		return
	}

	v.handle.Locate()
}
