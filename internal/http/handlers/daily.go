package handlers

import (
	"net/http"
	"time"

	"idle_clicker/internal/domain"

	"github.com/gin-gonic/gin"
)

// DailyRewardDiamonds is granted once per UTC calendar day.
const DailyRewardDiamonds = 25

// ClaimDailyReward grants the daily diamond reward. The claim day is
// stamped durably before the diamonds are credited, so a crash between the
// two can cost the player a reward but never mint a second one.
func (h *Handler) ClaimDailyReward(c *gin.Context) {
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

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if last := sess.LastDailyReward(); last != nil && !last.UTC().Truncate(24*time.Hour).Before(today) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reward already claimed today"})
		return
	}

	if err := h.Progress.SetLastDailyReward(ctx, userID, today); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to claim reward"})
		return
	}
	sess.SetLastDailyReward(today)

	sess.RecordDelta(domain.FieldDiamonds, DailyRewardDiamonds)

	view := sess.View()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"reward":   DailyRewardDiamonds,
		"diamonds": view.Diamonds,
		"pending":  view.Pending,
	})
}
