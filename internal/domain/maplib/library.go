// internal/domain/maplib/library.go

package maplib

import "errors"

// ErrUnavailable is returned when the map library never becomes ready
// within the session's bounded wait.
var ErrUnavailable = errors.New("map library unavailable")

// LatLng is a geographic point.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is a geographic bounding box.
type Bounds struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
}

// NewBounds returns a degenerate box containing only the given point.
func NewBounds(p LatLng) Bounds {
	return Bounds{SouthWest: p, NorthEast: p}
}

// Extend grows the box to include the given point.
func (b *Bounds) Extend(p LatLng) {
	if p.Lat < b.SouthWest.Lat {
		b.SouthWest.Lat = p.Lat
	}
	if p.Lat > b.NorthEast.Lat {
		b.NorthEast.Lat = p.Lat
	}
	if p.Lng < b.SouthWest.Lng {
		b.SouthWest.Lng = p.Lng
	}
	if p.Lng > b.NorthEast.Lng {
		b.NorthEast.Lng = p.Lng
	}
}

// IsPoint reports whether the box has collapsed to a single point.
func (b Bounds) IsPoint() bool {
	return b.SouthWest == b.NorthEast
}

// Pad grows the box outward by the given fraction of its span on each
// axis, so markers at the edge are not clipped when the box is framed.
func (b Bounds) Pad(fraction float64) Bounds {
	latSpan := (b.NorthEast.Lat - b.SouthWest.Lat) * fraction
	lngSpan := (b.NorthEast.Lng - b.SouthWest.Lng) * fraction
	return Bounds{
		SouthWest: LatLng{Lat: b.SouthWest.Lat - latSpan, Lng: b.SouthWest.Lng - lngSpan},
		NorthEast: LatLng{Lat: b.NorthEast.Lat + latSpan, Lng: b.NorthEast.Lng + lngSpan},
	}
}

// MarkerKind selects the marker rendering style.
type MarkerKind string

const (
	// KindAvatar renders a single creator's avatar.
	KindAvatar MarkerKind = "avatar"
	// KindBadge renders a numeric count badge for a multi-creator cluster.
	KindBadge MarkerKind = "badge"
	// KindSelf renders the viewer's own "you are here" marker.
	KindSelf MarkerKind = "self"
)

// PopupRow is one actionable line in a marker popup. Token identifies the
// row's click target; rows without a token carry no action.
type PopupRow struct {
	Token     string `json:"token,omitempty"`
	Name      string `json:"name"`
	Niche     string `json:"niche,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Popup is the typed view model bound to a marker.
type Popup struct {
	Title string     `json:"title,omitempty"`
	Rows  []PopupRow `json:"rows,omitempty"`
}

// MarkerSpec describes a marker to be placed on the map. Key carries the
// cluster key for cluster markers, so popup-open events can name the
// cluster they belong to; the self marker has no key.
type MarkerSpec struct {
	Kind      MarkerKind `json:"kind"`
	Key       string     `json:"key,omitempty"`
	Position  LatLng     `json:"position"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	Count     int        `json:"count,omitempty"`
	Popup     Popup      `json:"popup"`
}

// Marker is a placed marker owned by the map handle.
type Marker interface {
	// SetPopup replaces the popup view model bound to the marker.
	SetPopup(p Popup)

	// Remove releases the marker from the map.
	Remove()
}

// Handle is a created map instance. It mirrors the capability surface of
// the underlying map library: tile layer, markers with popups, camera
// framing and a one-shot device locate. Implementations are not safe for
// concurrent use; callers serialize access.
type Handle interface {
	// AddTileLayer attaches the base tile layer.
	AddTileLayer(urlTemplate, attribution string)

	// AddMarker places a marker and returns its handle.
	AddMarker(spec MarkerSpec) (Marker, error)

	// SetView jumps the camera to center at the given zoom.
	SetView(center LatLng, zoom int)

	// FlyTo animates the camera to center at the given zoom.
	FlyTo(center LatLng, zoom int)

	// FitBounds frames the camera over the given box.
	FitBounds(b Bounds)

	// Locate issues a one-shot device geolocation request. The result
	// arrives asynchronously through the session's event path, or never.
	Locate()

	// Remove tears down the map instance and all of its markers.
	Remove()
}

// Library creates map instances. Ready reports whether the library has
// finished initializing; CreateMap must only be called once Ready returns
// true.
type Library interface {
	Ready() bool
	CreateMap() (Handle, error)
}
