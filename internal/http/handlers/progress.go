package handlers

import (
	"errors"
	"net/http"

	"idle_clicker/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetProgress opens (or reuses) the player session and returns the
// immediately-consistent optimistic view.
func (h *Handler) GetProgress(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sess, err := h.Sessions.GetOrOpen(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// authenticated but no record: auth should have created one
			c.JSON(http.StatusNotFound, gin.H{"error": "progress not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
		return
	}

	c.JSON(http.StatusOK, sess.View())
}
