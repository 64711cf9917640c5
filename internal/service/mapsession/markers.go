// internal/service/mapsession/markers.go

package mapsession

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"collabmap/internal/domain/creator"
	"collabmap/internal/domain/maplib"
	"collabmap/internal/service/cluster"
)

// markerSet reconciles the rendered marker layer against a freshly built
// cluster map. Every pass clears the previous markers and rebuilds the
// set, which keeps the layer trivially consistent with the cluster map at
// the cost of popup state across passes.
type markerSet struct {
	handle   maplib.Handle
	registry *clickRegistry
	markers  map[cluster.Key]maplib.Marker
	clusters map[cluster.Key]*cluster.Cluster
	log      zerolog.Logger
}

func newMarkerSet(handle maplib.Handle, log zerolog.Logger) *markerSet {
	return &markerSet{
		handle:   handle,
		registry: newClickRegistry(),
		markers:  make(map[cluster.Key]maplib.Marker),
		clusters: make(map[cluster.Key]*cluster.Cluster),
		log:      log,
	}
}

// reconcile replaces the rendered marker set with one marker per cluster
// and returns the union bounds over the markers actually placed. A
// failure while building one marker is logged and skipped; the remaining
// clusters still render.
func (m *markerSet) reconcile(clusters map[cluster.Key]*cluster.Cluster) (maplib.Bounds, int) {
	m.clear()

	// Deterministic placement order keeps the emitted command stream
	// stable for identical inputs.
	keys := make([]cluster.Key, 0, len(clusters))
	for key := range clusters {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var bounds maplib.Bounds
	placed := 0

	for _, key := range keys {
		cl := clusters[key]
		if err := m.place(cl); err != nil {
			m.log.Warn().Err(err).Str("cluster", string(key)).Msg("skipping marker")
			continue
		}

		m.clusters[key] = cl
		if placed == 0 {
			bounds = maplib.NewBounds(cl.Anchor)
		} else {
			bounds.Extend(cl.Anchor)
		}
		placed++
	}

	if placed > 1 && bounds.IsPoint() {
		return bounds, 1
	}

	return bounds, placed
}

// place renders a single cluster marker. A panic inside the map library
// is contained here so one bad record cannot take down the whole pass.
func (m *markerSet) place(cl *cluster.Cluster) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("marker construction panic: %v", r)
		}
	}()

	spec := maplib.MarkerSpec{
		Key:      string(cl.Key),
		Position: cl.Anchor,
		Popup:    m.popupFor(cl),
	}

	if cl.Singleton() {
		spec.Kind = maplib.KindAvatar
		spec.AvatarURL = cl.Members[0].AvatarURL
	} else {
		spec.Kind = maplib.KindBadge
		spec.Count = len(cl.Members)
	}

	marker, err := m.handle.AddMarker(spec)
	if err != nil {
		return fmt.Errorf("adding marker: %w", err)
	}

	m.markers[cl.Key] = marker
	return nil
}

// popupFor builds the popup view model for a cluster, minting fresh click
// tokens for every member row.
func (m *markerSet) popupFor(cl *cluster.Cluster) maplib.Popup {
	tokens := m.registry.bind(cl.Key, cl.Members)

	popup := maplib.Popup{Rows: make([]maplib.PopupRow, len(cl.Members))}
	if !cl.Singleton() {
		popup.Title = fmt.Sprintf("%d creators here", len(cl.Members))
	}

	for i, member := range cl.Members {
		popup.Rows[i] = maplib.PopupRow{
			Token:     tokens[i],
			Name:      member.Name,
			Niche:     member.Niche,
			AvatarURL: member.AvatarURL,
		}
	}

	return popup
}

// popupOpened rewires the popup for a cluster. The map library may
// rebuild popup content between opens, so every open gets a fresh view
// model; tokens from the previous open stop resolving.
func (m *markerSet) popupOpened(key cluster.Key) {
	cl, ok := m.clusters[key]
	if !ok {
		return
	}

	marker, ok := m.markers[key]
	if !ok {
		return
	}

	marker.SetPopup(m.popupFor(cl))
}

// resolve maps a click token back to its creator.
func (m *markerSet) resolve(token string) (creator.Summary, bool) {
	return m.registry.resolve(token)
}

// count returns the number of markers currently rendered.
func (m *markerSet) count() int {
	return len(m.markers)
}

// clear removes every rendered marker and invalidates all click tokens.
func (m *markerSet) clear() {
	for _, marker := range m.markers {
		marker.Remove()
	}
	m.markers = make(map[cluster.Key]maplib.Marker)
	m.clusters = make(map[cluster.Key]*cluster.Cluster)
	m.registry.clear()
}
