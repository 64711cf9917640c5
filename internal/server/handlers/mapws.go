// internal/server/handlers/mapws.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"collabmap/internal/adapter/mapwire"
	"collabmap/internal/domain/creator"
	"collabmap/internal/domain/maplib"
	"collabmap/internal/service/mapsession"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, this should be more restrictive
		return true
	},
}

// clientEvent is an inbound message from the map shim.
type clientEvent struct {
	Type      string   `json:"type"`
	Niches    []string `json:"niches,omitempty"`
	Location  string   `json:"location,omitempty"`
	Followers string   `json:"followers,omitempty"`
	Search    string   `json:"search,omitempty"`
	Key       string   `json:"key,omitempty"`
	Token     string   `json:"token,omitempty"`
	Lat       float64  `json:"lat,omitempty"`
	Lng       float64  `json:"lng,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// serverMessage is an outbound message to the map shim.
type serverMessage struct {
	Type    string           `json:"type"`
	Command *mapwire.Command `json:"command,omitempty"`
	Creator *creator.Summary `json:"creator,omitempty"`
	Message string           `json:"message,omitempty"`
}

// mapClient owns one websocket connection and its outbound queue. It
// doubles as the command sender for the wire-backed map library.
type mapClient struct {
	conn *websocket.Conn
	send chan []byte
	log  zerolog.Logger
}

// Send queues a map command for delivery to the shim.
func (c *mapClient) Send(cmd mapwire.Command) error {
	payload, err := json.Marshal(serverMessage{Type: "map", Command: &cmd})
	if err != nil {
		return err
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return errors.New("send queue full")
	}
}

func (c *mapClient) sendMessage(msg serverMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case c.send <- payload:
	default:
	}
}

// MapWebSocketHandler drives one viewer's live map session. The client
// reports shim readiness, filter changes, popup opens, clicks, recenter
// requests and geolocation results; the server answers with map commands
// and navigation events.
func MapWebSocketHandler(manager *mapsession.Manager, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID := r.URL.Query().Get("user_id")
		if viewerID == "" {
			http.Error(w, "Missing user ID", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("upgrading to websocket")
			return
		}

		client := &mapClient{
			conn: conn,
			send: make(chan []byte, 256),
			log:  log,
		}

		lib := mapwire.New(client, log)

		go client.writePump()
		client.readPump(r, manager, lib, viewerID)
	}
}

// readPump processes inbound events until the connection drops. Session
// operations run serially on this goroutine.
func (c *mapClient) readPump(r *http.Request, manager *mapsession.Manager, lib *mapwire.Library, viewerID string) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	var session *mapsession.Session
	defer func() {
		if session != nil {
			manager.Close(session)
		}
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}

		var event clientEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			c.log.Debug().Err(err).Msg("ignoring malformed client event")
			continue
		}

		switch event.Type {
		case "ready":
			if session != nil {
				continue
			}
			lib.SetReady()

			s, err := manager.Open(r.Context(), lib, viewerID, func(cr creator.Summary) {
				c.sendMessage(serverMessage{Type: "view_profile", Creator: &cr})
			})
			if err != nil {
				c.log.Warn().Err(err).Msg("opening map session")
				c.sendMessage(serverMessage{Type: "error", Message: sessionErrorMessage(err)})
				continue
			}
			session = s

		case "filters":
			if session == nil {
				continue
			}
			session.SetFilters(creator.ExploreFilters{
				Niches:    event.Niches,
				Location:  event.Location,
				Followers: creator.ParseFollowerRange(event.Followers),
			}, event.Search)

		case "popup_open":
			if session == nil {
				continue
			}
			session.PopupOpened(event.Key)

		case "click":
			if session == nil {
				continue
			}
			session.Click(event.Token)

		case "located":
			if session == nil {
				continue
			}
			session.LocationFound(maplib.LatLng{Lat: event.Lat, Lng: event.Lng})

		case "locate_failed":
			if session == nil {
				continue
			}
			session.LocationFailed(event.Reason)

		case "recenter":
			if session == nil {
				continue
			}
			session.Recenter()

		default:
			c.log.Debug().Str("type", event.Type).Msg("ignoring unknown client event")
		}
	}
}

// writePump flushes the outbound queue and keeps the connection alive.
func (c *mapClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func sessionErrorMessage(err error) string {
	if errors.Is(err, maplib.ErrUnavailable) {
		return "Maps are unavailable right now. The creator list is still usable."
	}
	return "Failed to load creators"
}
