package websocket

import (
	"errors"
	"log"
	"net/http"

	"github.com/dropfour/server/internal/domain"
	roomservice "github.com/dropfour/server/internal/service/room"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests into room event subscriptions.
type Handler struct {
	hub      *Hub
	rooms    *roomservice.Service
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, rooms *roomservice.Service, allowedOrigins []string) *Handler {
	return &Handler{
		hub:   hub,
		rooms: rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowedOrigins) == 0 {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Watch subscribes the caller to a room's event stream. An optional
// spectatorId query parameter also seats them in the spectator list.
func (h *Handler) Watch(c *gin.Context) {
	roomID := c.Query("roomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId required"})
		return
	}

	if _, err := h.rooms.GetRoom(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	if spectatorID := c.Query("spectatorId"); spectatorID != "" {
		if _, err := h.rooms.JoinRoomAsSpectator(c.Request.Context(), roomID, spectatorID); err != nil {
			log.Printf("[WS] Could not register spectator %s on room %s: %v", spectatorID, roomID, err)
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	NewClient(h.hub, roomID, conn).Run()
}
