package mapsession

import (
	"collabmap/internal/domain/maplib"
)

// frame records one camera operation issued to the fake handle.
type frame struct {
	op     string
	center maplib.LatLng
	zoom   int
	bounds maplib.Bounds
}

type fakeLib struct {
	ready  bool
	handle *fakeHandle
}

func (f *fakeLib) Ready() bool {
	return f.ready
}

func (f *fakeLib) CreateMap() (maplib.Handle, error) {
	if f.handle == nil {
		f.handle = newFakeHandle()
	}
	return f.handle, nil
}

type fakeHandle struct {
	live       map[*fakeMarker]bool
	frames     []frame
	locates    int
	tileLayers int
	removed    bool
	failMarker func(maplib.MarkerSpec) error
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{live: make(map[*fakeMarker]bool)}
}

func (h *fakeHandle) AddTileLayer(urlTemplate, attribution string) {
	h.tileLayers++
}

func (h *fakeHandle) AddMarker(spec maplib.MarkerSpec) (maplib.Marker, error) {
	if h.failMarker != nil {
		if err := h.failMarker(spec); err != nil {
			return nil, err
		}
	}

	m := &fakeMarker{handle: h, spec: spec}
	h.live[m] = true
	return m, nil
}

func (h *fakeHandle) SetView(center maplib.LatLng, zoom int) {
	h.frames = append(h.frames, frame{op: "set_view", center: center, zoom: zoom})
}

func (h *fakeHandle) FlyTo(center maplib.LatLng, zoom int) {
	h.frames = append(h.frames, frame{op: "fly_to", center: center, zoom: zoom})
}

func (h *fakeHandle) FitBounds(b maplib.Bounds) {
	h.frames = append(h.frames, frame{op: "fit_bounds", bounds: b})
}

func (h *fakeHandle) Locate() {
	h.locates++
}

func (h *fakeHandle) Remove() {
	h.removed = true
}

func (h *fakeHandle) lastFrame() *frame {
	if len(h.frames) == 0 {
		return nil
	}
	return &h.frames[len(h.frames)-1]
}

func (h *fakeHandle) liveOfKind(kind maplib.MarkerKind) []*fakeMarker {
	var out []*fakeMarker
	for m := range h.live {
		if m.spec.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func (h *fakeHandle) frameOps() []string {
	ops := make([]string, len(h.frames))
	for i, f := range h.frames {
		ops[i] = f.op
	}
	return ops
}

type fakeMarker struct {
	handle *fakeHandle
	spec   maplib.MarkerSpec
}

func (m *fakeMarker) SetPopup(p maplib.Popup) {
	m.spec.Popup = p
}

func (m *fakeMarker) Remove() {
	delete(m.handle.live, m)
}
