package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/matchday/live"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *live.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler accepts connections from allowedOrigin; "*" allows any origin.
func NewWebSocketHandler(hub *live.Hub, allowedOrigin string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
		logger: logger,
	}
}

// ServeMatchWs подписывает клиента на события одного матча: /ws/matches/{matchID}
func (h *WebSocketHandler) ServeMatchWs(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.serve(w, r, live.MatchRoom(matchID))
}

// ServeMatchesWs подписывает клиента на события всех матчей: /ws/matches
func (h *WebSocketHandler) ServeMatchesWs(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, live.AllMatchesRoom)
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту HTTP ошибкой.
		h.logger.Warn("websocket upgrade failed", slog.String("room", room), slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn, room)
	if !h.hub.Register(r.Context(), client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
