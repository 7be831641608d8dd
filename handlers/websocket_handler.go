package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/football-league/brackets"
	"github.com/Dosada05/football-league/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub                *brackets.Hub
	competitionService services.CompetitionService
	upgrader           websocket.Upgrader
	logger             *slog.Logger
}

// NewWebSocketHandler принимает список разрешенных Origin; пустой список разрешает все.
func NewWebSocketHandler(hub *brackets.Hub, cs services.CompetitionService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:                hub,
		competitionService: cs,
		logger:             logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
	}
}

// ServeWs подписывает клиента на обновления соревнования.
// Клиент подключается к /ws/competitions/{competitionID}
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if _, err := h.competitionService.Get(r.Context(), competitionID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой
		h.logger.Warn("websocket upgrade failed",
			slog.String("competition_id", competitionID.String()), slog.Any("error", err))
		return
	}

	roomID := brackets.CompetitionRoom(competitionID)
	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: roomID,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("websocket client registered", slog.String("room", roomID))
}
