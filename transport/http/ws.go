package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/layer-3/talkie/adapters/ws"
	"github.com/layer-3/talkie/core"
	"github.com/layer-3/talkie/hub"
)

// WSHandler admits websocket connections into the session registry
type WSHandler struct {
	registry *hub.Registry
	upgrader websocket.Upgrader
	peerOpts ws.Options
	log      *slog.Logger
}

func NewWSHandler(registry *hub.Registry, peerOpts ws.Options, allowAnyOrigin bool, log *slog.Logger) *WSHandler {
	return &WSHandler{
		registry: registry,
		peerOpts: peerOpts,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// Serve upgrades the request and registers the peer under the token's NFT.
// A bad credential closes the socket with a coded reason before any frame is read.
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	peer := ws.NewPeer(conn, h.peerOpts)

	ctx := c.Request.Context()
	sess, err := h.registry.Admit(ctx, peer, c.Param("token"))
	if err != nil {
		code, reason := refusal(err)
		h.log.Info("websocket refused", "code", code, "err", err)
		_ = peer.Close(code, reason)
		return
	}
	defer h.registry.Release(sess)

	if err := peer.ReadLoop(ctx); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.log.Debug("websocket read loop ended", "token_id", sess.TokenID, "err", err)
	}
}

func refusal(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrTokenExpired):
		return hub.CloseTokenExpired, "Token expired"
	case errors.Is(err, core.ErrInvalidToken):
		return hub.CloseInvalidToken, "Invalid token"
	default:
		return hub.CloseInternalError, "Internal error"
	}
}
