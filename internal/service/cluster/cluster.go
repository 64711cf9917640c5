// internal/service/cluster/cluster.go

package cluster

import (
	"math"
	"strconv"

	"collabmap/internal/domain/creator"
	"collabmap/internal/domain/maplib"
)

// precision is the number of decimal places kept when quantizing
// coordinates. Four decimals is roughly 11 meters, coarse enough to absorb
// the jitter free geocoding services produce for repeated lookups of the
// same address.
const precision = 4

// Key identifies a group of creators sharing quantized coordinates.
type Key string

// Quantize reduces a coordinate pair to a stable grouping key. The second
// return is false when either component is not a finite number; such
// creators are never clustered.
func Quantize(lat, lng float64) (Key, bool) {
	if !finite(lat) || !finite(lng) {
		return "", false
	}
	return Key(format(lat) + "_" + format(lng)), true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func format(v float64) string {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		// Normalize negative zero so -0.00004 and 0.00004 share a key.
		r = 0
	}
	return strconv.FormatFloat(r, 'f', precision, 64)
}

// Cluster is one or more creators sharing a quantized key, rendered as a
// single map marker. Members keep the order in which they were first seen.
type Cluster struct {
	Key     Key
	Anchor  maplib.LatLng
	Members []creator.Summary
}

// Singleton reports whether the cluster holds exactly one creator.
func (c *Cluster) Singleton() bool {
	return len(c.Members) == 1
}

// Build groups creators by quantized coordinate key in a single pass.
// Creators without finite coordinates are skipped; they stay visible in
// the list view but never reach the map. The anchor is the first member's
// exact position.
func Build(creators []creator.Summary) map[Key]*Cluster {
	clusters := make(map[Key]*Cluster)

	for _, c := range creators {
		if c.Latitude == nil || c.Longitude == nil {
			continue
		}

		key, ok := Quantize(*c.Latitude, *c.Longitude)
		if !ok {
			continue
		}

		if cl, exists := clusters[key]; exists {
			cl.Members = append(cl.Members, c)
			continue
		}

		clusters[key] = &Cluster{
			Key:     key,
			Anchor:  maplib.LatLng{Lat: *c.Latitude, Lng: *c.Longitude},
			Members: []creator.Summary{c},
		}
	}

	return clusters
}

// UnionBounds returns the bounding box over all cluster anchors and the
// number of distinct anchor points it covers. A count below two means the
// box is degenerate and should not be framed.
func UnionBounds(clusters map[Key]*Cluster) (maplib.Bounds, int) {
	var bounds maplib.Bounds
	count := 0

	for _, cl := range clusters {
		if count == 0 {
			bounds = maplib.NewBounds(cl.Anchor)
		} else {
			bounds.Extend(cl.Anchor)
		}
		count++
	}

	if count > 1 && bounds.IsPoint() {
		return bounds, 1
	}

	return bounds, count
}
