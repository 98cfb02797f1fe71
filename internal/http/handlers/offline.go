package handlers

import (
	"net/http"

	"idle_clicker/internal/domain"
	"idle_clicker/internal/offline"

	"github.com/gin-gonic/gin"
)

// GetOfflineEarnings computes what the player earned while away. An all-zero
// result means there is nothing to claim and the UI must not prompt.
func (h *Handler) GetOfflineEarnings(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sess, err := h.Sessions.GetOrOpen(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
		return
	}

	earnings, err := h.Offline.Calculate(c.Request.Context(), userID, sess.AutoClickPower())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to calculate earnings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coins":           earnings.Coins,
		"experience":      earnings.Experience,
		"time_offline_ms": earnings.TimeOfflineMs,
		"time_offline":    offline.FormatOfflineTime(earnings.TimeOfflineMs),
		"claimable":       !earnings.IsZero(),
	})
}

// ClaimOfflineEarnings applies the accrued reward as ordinary optimistic
// deltas and resets the last-active timestamp so it cannot be claimed twice.
func (h *Handler) ClaimOfflineEarnings(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	sess, err := h.Sessions.GetOrOpen(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
		return
	}

	earnings, err := h.Offline.Calculate(ctx, userID, sess.AutoClickPower())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to calculate earnings"})
		return
	}
	if earnings.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to claim"})
		return
	}

	// reset first: claiming again must start from a fresh gap
	if err := h.Offline.UpdateLastActive(ctx, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update last active time"})
		return
	}

	sess.RecordDelta(domain.FieldCoins, earnings.Coins)
	sess.RecordDelta(domain.FieldExperience, earnings.Experience)

	view := sess.View()
	c.JSON(http.StatusOK, gin.H{
		"claimed_coins":      earnings.Coins,
		"claimed_experience": earnings.Experience,
		"coins":              view.Coins,
		"experience":         view.Experience,
		"level":              view.Level,
	})
}
