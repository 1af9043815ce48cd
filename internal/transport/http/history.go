package http

import (
	"net/http"
	"strconv"

	"github.com/dropfour/server/internal/repository/postgres"
	"github.com/gin-gonic/gin"
)

// HistoryHandler serves archived game results.
type HistoryHandler struct {
	Archive *postgres.ArchiveRepo
}

func NewHistoryHandler(archive *postgres.ArchiveRepo) *HistoryHandler {
	return &HistoryHandler{Archive: archive}
}

func (h *HistoryHandler) RecentGames(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	records, err := h.Archive.RecentResults(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"games": records})
}
