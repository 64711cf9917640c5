// internal/adapter/mapwire/mapwire.go

// Package mapwire implements the map capability surface as a stream of
// JSON commands executed by a thin browser shim on the other end of a
// websocket. All map state stays server-side; the shim only mirrors it.
package mapwire

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"collabmap/internal/domain/maplib"
)

// Command is one map instruction for the browser shim.
type Command struct {
	Op          string             `json:"op"`
	MarkerID    string             `json:"marker_id,omitempty"`
	Marker      *maplib.MarkerSpec `json:"marker,omitempty"`
	Popup       *maplib.Popup      `json:"popup,omitempty"`
	Center      *maplib.LatLng     `json:"center,omitempty"`
	Zoom        int                `json:"zoom,omitempty"`
	Bounds      *maplib.Bounds     `json:"bounds,omitempty"`
	TileURL     string             `json:"tile_url,omitempty"`
	Attribution string             `json:"attribution,omitempty"`
}

// Sender delivers commands to the client. Implementations must be safe
// to call from the session goroutine.
type Sender interface {
	Send(cmd Command) error
}

// Library implements maplib.Library over a command stream. Ready flips
// once the client shim reports that it has loaded.
type Library struct {
	sender Sender
	log    zerolog.Logger
	ready  atomic.Bool
}

// New creates a wire-backed map library.
func New(sender Sender, log zerolog.Logger) *Library {
	return &Library{
		sender: sender,
		log:    log,
	}
}

// SetReady marks the client shim as initialized.
func (l *Library) SetReady() {
	l.ready.Store(true)
}

// Ready reports whether the client shim has initialized.
func (l *Library) Ready() bool {
	return l.ready.Load()
}

// CreateMap instructs the shim to create the map container.
func (l *Library) CreateMap() (maplib.Handle, error) {
	if err := l.sender.Send(Command{Op: "create_map"}); err != nil {
		return nil, fmt.Errorf("creating map: %w", err)
	}

	return &handle{lib: l}, nil
}

type handle struct {
	lib *Library
}

func (h *handle) send(cmd Command) {
	if err := h.lib.sender.Send(cmd); err != nil {
		h.lib.log.Warn().Err(err).Str("op", cmd.Op).Msg("dropping map command")
	}
}

func (h *handle) AddTileLayer(urlTemplate, attribution string) {
	h.send(Command{Op: "tile_layer", TileURL: urlTemplate, Attribution: attribution})
}

func (h *handle) AddMarker(spec maplib.MarkerSpec) (maplib.Marker, error) {
	id := uuid.New().String()

	if err := h.lib.sender.Send(Command{Op: "add_marker", MarkerID: id, Marker: &spec}); err != nil {
		return nil, fmt.Errorf("adding marker: %w", err)
	}

	return &marker{handle: h, id: id}, nil
}

func (h *handle) SetView(center maplib.LatLng, zoom int) {
	h.send(Command{Op: "set_view", Center: &center, Zoom: zoom})
}

func (h *handle) FlyTo(center maplib.LatLng, zoom int) {
	h.send(Command{Op: "fly_to", Center: &center, Zoom: zoom})
}

func (h *handle) FitBounds(b maplib.Bounds) {
	h.send(Command{Op: "fit_bounds", Bounds: &b})
}

func (h *handle) Locate() {
	h.send(Command{Op: "locate"})
}

func (h *handle) Remove() {
	h.send(Command{Op: "remove_map"})
}

type marker struct {
	handle *handle
	id     string
}

func (m *marker) SetPopup(p maplib.Popup) {
	m.handle.send(Command{Op: "set_popup", MarkerID: m.id, Popup: &p})
}

func (m *marker) Remove() {
	m.handle.send(Command{Op: "remove_marker", MarkerID: m.id})
}
