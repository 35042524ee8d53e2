package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kjannette/paper-trader/internal/models"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

type streamFrame struct {
	Type  string                `json:"type"`
	View  *models.PortfolioView `json:"view,omitempty"`
	Error string                `json:"error,omitempty"`
}

type clientMessage struct {
	Type string `json:"type"`
}

// handleStream upgrades to a websocket and pushes every published portfolio
// view. The client may send "refresh" to force a reconcile.
func (s *Server) handleStream(c *gin.Context) {
	if s.feed == nil {
		writeError(c, http.StatusServiceUnavailable, "live feed not configured")
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	views, unsubscribe := s.feed.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Only the loop below writes to conn; the reader hands requests over.
	refreshReq := make(chan struct{}, 1)
	go s.readStream(conn, refreshReq, cancel)

	log := s.log.With().Str("requestId", c.GetString("requestID")).Logger()
	log.Debug().Msg("stream client connected")
	defer log.Debug().Msg("stream client disconnected")

	first := s.feed.Latest()
	if first == nil {
		first, err = s.feed.RefreshNow(ctx)
		if err != nil {
			if writeFrame(conn, streamFrame{Type: "error", Error: err.Error()}) != nil {
				return
			}
		}
	}
	if first != nil {
		if writeFrame(conn, streamFrame{Type: "portfolio", View: first}) != nil {
			return
		}
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-views:
			if !ok {
				return
			}
			if v == first {
				continue
			}
			if writeFrame(conn, streamFrame{Type: "portfolio", View: v}) != nil {
				return
			}
		case <-refreshReq:
			// The view reaches us through the subscription.
			if _, err := s.feed.RefreshNow(ctx); err != nil {
				if writeFrame(conn, streamFrame{Type: "error", Error: err.Error()}) != nil {
					return
				}
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) readStream(conn *websocket.Conn, refreshReq chan<- struct{}, done context.CancelFunc) {
	defer done()
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if isRefresh(data) {
			select {
			case refreshReq <- struct{}{}:
			default:
			}
		}
	}
}

// isRefresh accepts both a bare "refresh" and {"type":"refresh"}.
func isRefresh(data []byte) bool {
	if strings.TrimSpace(string(data)) == "refresh" {
		return true
	}
	var msg clientMessage
	return json.Unmarshal(data, &msg) == nil && msg.Type == "refresh"
}

func writeFrame(conn *websocket.Conn, f streamFrame) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(f)
}
