package http

import (
	"errors"
	"net/http"

	"github.com/dropfour/server/internal/domain"
	roomservice "github.com/dropfour/server/internal/service/room"
	"github.com/gin-gonic/gin"
)

// RoomHandler exposes the room service over the JSON API.
type RoomHandler struct {
	rooms *roomservice.Service
}

func NewRoomHandler(rooms *roomservice.Service) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

type createRoomRequest struct {
	HostID        string `json:"hostId" binding:"required"`
	HostName      string `json:"hostName" binding:"required"`
	WinningLength int    `json:"winningLength"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hostId and hostName required"})
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), req.HostID, req.HostName, req.WinningLength)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}

type joinRoomRequest struct {
	RoomKey     string `json:"roomKey" binding:"required"`
	PlayerID    string `json:"playerId" binding:"required"`
	PlayerName  string `json:"playerName"`
	AsSpectator bool   `json:"asSpectator"`
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomKey and playerId required"})
		return
	}

	found, err := h.rooms.GetRoomByKey(c.Request.Context(), req.RoomKey)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.AsSpectator {
		room, err := h.rooms.JoinRoomAsSpectator(c.Request.Context(), found.ID, req.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Joined as spectator", "room": room})
		return
	}

	room, err := h.rooms.JoinRoomAsPlayer(c.Request.Context(), found.ID, req.PlayerID, req.PlayerName)
	if errors.Is(err, domain.ErrRoomFull) {
		// The client may retry as a spectator.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "canSpectate": true})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Joined as player", "room": room})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *RoomHandler) GetRoomByKey(c *gin.Context) {
	room, err := h.rooms.GetRoomByKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ListRooms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	existed, err := h.rooms.DeleteRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": existed})
}

type moveRequest struct {
	RoomID   string `json:"roomId" binding:"required"`
	PlayerID string `json:"playerId" binding:"required"`
	Column   *int   `json:"column" binding:"required"`
}

func (h *RoomHandler) MakeMove(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId, playerId and column required"})
		return
	}

	result, err := h.rooms.MakeMove(c.Request.Context(), req.RoomID, req.PlayerID, *req.Column)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": result.Message, "row": result.Row, "room": result.Room})
}

type resetRequest struct {
	RoomID string `json:"roomId" binding:"required"`
}

func (h *RoomHandler) ResetGame(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId required"})
		return
	}

	room, err := h.rooms.ResetGame(c.Request.Context(), req.RoomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}

type leaveRequest struct {
	RoomID        string `json:"roomId" binding:"required"`
	ParticipantID string `json:"participantId" binding:"required"`
}

func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	var req leaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId and participantId required"})
		return
	}

	room, err := h.rooms.LeaveRoom(c.Request.Context(), req.RoomID, req.ParticipantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": room, "roomDeleted": room == nil})
}

// respondError maps the domain error taxonomy onto HTTP statuses. These
// are all expected rejections; only unknown errors surface as 500s.
func respondError(c *gin.Context, err error) {
	var domainErr domain.Error
	if !errors.As(err, &domainErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusBadRequest
	switch domainErr {
	case domain.ErrRoomNotFound:
		status = http.StatusNotFound
	case domain.ErrPlayerNotInRoom:
		status = http.StatusForbidden
	case domain.ErrRoomFull, domain.ErrNotYourTurn, domain.ErrGameFinished:
		status = http.StatusConflict
	case domain.ErrColumnFull, domain.ErrInvalidMove:
		status = http.StatusBadRequest
	}

	c.JSON(status, gin.H{"error": domainErr.Error()})
}
