package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/docscan/internal/editor"
	"github.com/MeKo-Tech/docscan/internal/export"
	"github.com/MeKo-Tech/docscan/internal/filter"
	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/overlay"
	"github.com/MeKo-Tech/docscan/internal/scan"
	"github.com/MeKo-Tech/docscan/internal/utils"
	"github.com/gorilla/websocket"
)

// WebSocket upgrader; origins are checked by checkOrigin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
}

// Client message types.
const (
	msgLoad    = "load"
	msgPointer = "pointer"
	msgFilter  = "filter"
	msgCommit  = "commit"
	msgOverlay = "overlay"
	msgRetake  = "retake"
	msgState   = "state"
	msgImage   = "image"
	msgError   = "error"
)

// Session phases reported in state messages.
const (
	phaseEmpty     = "empty"
	phaseEditing   = "editing"
	phaseRectified = "rectified"
)

// ClientMessage is one request on the session socket. Image is base64 in
// JSON.
type ClientMessage struct {
	Type   string        `json:"type"`
	Image  []byte        `json:"image,omitempty"`
	Event  *editor.Event `json:"event,omitempty"`
	Filter string        `json:"filter,omitempty"`
}

// SessionState describes the session after a message.
type SessionState struct {
	Phase      string              `json:"phase"`
	Corners    *geometry.CornerSet `json:"corners,omitempty"`
	Drag       *editor.DragState   `json:"drag,omitempty"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	PageWidth  int                 `json:"page_width,omitempty"`
	PageHeight int                 `json:"page_height,omitempty"`
	Filter     string              `json:"filter,omitempty"`
}

// ServerMessage is one reply on the session socket.
type ServerMessage struct {
	Type  string        `json:"type"`
	State *SessionState `json:"state,omitempty"`
	Kind  string        `json:"kind,omitempty"` // overlay or page, for image messages
	Image []byte        `json:"image,omitempty"`
	Error string        `json:"error,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// checkOrigin accepts same-origin requests and the configured CORS origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.corsOrigin == "*" || origin == s.corsOrigin {
		return true
	}
	return strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"), r.Host)
}

// sessionWebSocketHandler upgrades the connection and runs one scan session
// until the client goes away or stays silent past the session TTL.
func (s *Server) sessionWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	up := upgrader
	up.CheckOrigin = s.checkOrigin
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.log().Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketSessions.Inc()
	defer websocketSessions.Dec()

	sess, err := s.newSession("", "")
	if err != nil {
		s.sendError(conn, err)
		return
	}
	s.log().Info("WebSocket session started", "remote_addr", r.RemoteAddr)
	s.runSession(conn, sess)
	s.log().Info("WebSocket session ended", "remote_addr", r.RemoteAddr)
}

func (s *Server) runSession(conn *websocket.Conn, sess *scan.Session) {
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024 * 2)
	_ = conn.SetReadDeadline(time.Now().Add(s.sessionTTL))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.sessionTTL))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	// Messages are handled one at a time, in arrival order.
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log().Warn("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(s.sessionTTL))

		if messageType == websocket.TextMessage {
			s.handleSessionMessage(conn, sess, data)
		}
	}
}

// handleSessionMessage applies one client message to sess and writes the
// replies to conn.
func (s *Server) handleSessionMessage(conn WebSocketConnWriter, sess *scan.Session, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, fmt.Errorf("failed to parse message: %w", err))
		return
	}

	switch strings.ToLower(msg.Type) {
	case msgLoad:
		img, _, err := utils.DecodeImageBytes(msg.Image)
		if err != nil {
			s.sendError(conn, err)
			return
		}
		if err := sess.Load(img); err != nil {
			s.sendError(conn, err)
			return
		}
		s.sendState(conn, sess)

	case msgPointer:
		if msg.Event == nil {
			s.sendError(conn, errors.New("pointer message without event"))
			return
		}
		ed, err := sess.Editor()
		if err != nil {
			s.sendError(conn, err)
			return
		}
		if ed.Handle(*msg.Event) {
			s.sendState(conn, sess)
		}

	case msgCommit:
		page, err := sess.Commit()
		if err != nil {
			s.sendError(conn, err)
			return
		}
		outputPixels.Observe(float64(page.Bounds().Dx() * page.Bounds().Dy()))
		s.sendState(conn, sess)
		s.sendImage(conn, "page", sess.Current())

	case msgFilter:
		kind, err := filter.ParseKind(msg.Filter)
		if err != nil {
			s.sendError(conn, err)
			return
		}
		if !sess.ApplyFilter(kind) {
			s.sendError(conn, errors.New("no rectified page to filter"))
			return
		}
		filterApplications.WithLabelValues(string(kind)).Inc()
		s.sendState(conn, sess)
		s.sendImage(conn, "page", sess.Current())

	case msgOverlay:
		ed, err := sess.Editor()
		if err != nil {
			s.sendError(conn, err)
			return
		}
		s.sendImage(conn, "overlay", overlay.Render(sess.Frame(), ed.Corners(), ed.State().Active, s.style))

	case msgRetake:
		sess.Retake()
		s.sendState(conn, sess)

	case msgState:
		s.sendState(conn, sess)

	default:
		s.sendError(conn, fmt.Errorf("unsupported message type %q", msg.Type))
	}
}

// sessionState snapshots sess for a state message.
func sessionState(sess *scan.Session) *SessionState {
	st := &SessionState{Phase: phaseEmpty}
	if f := sess.Frame(); f != nil {
		st.Width, st.Height = f.Bounds().Dx(), f.Bounds().Dy()
	}
	if ed, err := sess.Editor(); err == nil {
		st.Phase = phaseEditing
		c, d := ed.Corners(), ed.State()
		st.Corners, st.Drag = &c, &d
	}
	if page := sess.Rectified(); page != nil {
		st.Phase = phaseRectified
		st.PageWidth, st.PageHeight = page.Bounds().Dx(), page.Bounds().Dy()
		st.Filter = string(sess.Filter())
	}
	return st
}

func (s *Server) sendState(conn WebSocketConnWriter, sess *scan.Session) {
	s.send(conn, ServerMessage{Type: msgState, State: sessionState(sess)})
}

func (s *Server) sendImage(conn WebSocketConnWriter, kind string, img image.Image) {
	var buf bytes.Buffer
	if err := export.Encode(&buf, img, "png"); err != nil {
		s.sendError(conn, err)
		return
	}
	s.send(conn, ServerMessage{Type: msgImage, Kind: kind, Image: buf.Bytes()})
}

func (s *Server) sendError(conn WebSocketConnWriter, err error) {
	s.send(conn, ServerMessage{Type: msgError, Error: err.Error()})
}

// send writes msg as a text frame.
func (s *Server) send(conn WebSocketConnWriter, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log().Error("Failed to marshal WebSocket message", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log().Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
