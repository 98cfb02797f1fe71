package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Heartbeat refreshes the last-active timestamp. The client calls it on a
// foreground cadence and on backgrounding, so the offline gap approximates
// true absence rather than time since the last periodic write.
func (h *Handler) Heartbeat(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.Offline.UpdateLastActive(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update last active time"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
