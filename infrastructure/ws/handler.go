// Package ws exposes the realtime stream to browsers over a websocket.
package ws

import (
	"chat-gate/auth"
	"chat-gate/errors"
	"chat-gate/infrastructure/realtime"
	"chat-gate/infrastructure/wire"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const maxFrameBytes = 64 * 1024

// Handler upgrades GET /ws?token=... (or an Authorization header) into a
// realtime session for the token's user.
type Handler struct {
	verifier     *auth.TokenVerifier
	realtime     *realtime.Server
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	log          *slog.Logger
}

func NewHandler(verifier *auth.TokenVerifier, rt *realtime.Server, allowedOrigins []string,
	writeTimeout time.Duration, log *slog.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		realtime: rt,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		writeTimeout: writeTimeout,
		log:          log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, err := h.verifier.Authenticate(r.Context(), token(r))
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("Websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	err = h.realtime.Serve(ctx, userID, &stream{conn: conn, writeTimeout: h.writeTimeout})
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.log.Debug("Websocket closed", "user_id", userID, "error", err)
	}
}

// stream adapts a websocket connection to realtime.Stream.
type stream struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (s *stream) Send(frame *wire.EventFrame) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(frame)
}

func (s *stream) Recv() (*wire.ClientFrame, error) {
	var frame wire.ClientFrame
	if err := s.conn.ReadJSON(&frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

func token(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// checkOrigin accepts every origin when none is configured.
func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
