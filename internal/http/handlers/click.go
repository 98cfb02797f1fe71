package handlers

import (
	"net/http"
	"strconv"

	"idle_clicker/internal/domain"
	"idle_clicker/internal/localstore"
	"idle_clicker/internal/logger"

	"github.com/gin-gonic/gin"
)

type ClickRequest struct {
	Count int64 `json:"count"`
}

// maxClickBatch bounds how many taps one request may carry.
const maxClickBatch = 50

// Click records tap earnings optimistically: +1 coin and +1 experience per
// tap. The response reflects the deltas immediately; persistence happens
// after the debounce quiet period.
func (h *Handler) Click(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Count == 0 {
		req.Count = 1
	}
	if req.Count < 1 || req.Count > maxClickBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid click count"})
		return
	}

	sess, err := h.Sessions.GetOrOpen(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
		return
	}

	sess.RecordDelta(domain.FieldCoins, req.Count)
	sess.RecordDelta(domain.FieldExperience, req.Count)

	totalClicks := h.bumpClickCounter(c, userID, req.Count)

	view := sess.View()
	c.JSON(http.StatusOK, gin.H{
		"coins":        view.Coins,
		"experience":   view.Experience,
		"level":        view.Level,
		"pending":      view.Pending,
		"total_clicks": totalClicks,
	})
}

// bumpClickCounter keeps the lifetime tap counter in the local store.
// Best-effort bookkeeping, never fails the request.
func (h *Handler) bumpClickCounter(c *gin.Context, userID, count int64) int64 {
	ctx := c.Request.Context()
	key := "clicks:" + strconv.FormatInt(userID, 10)

	total, err := localstore.GetInt64(ctx, h.Local, key, 0)
	if err != nil {
		logger.Warn("click counter read failed", "user_id", userID, "error", err)
		return 0
	}
	total += count
	if err := h.Local.Set(ctx, key, total); err != nil {
		logger.Warn("click counter write failed", "user_id", userID, "error", err)
	}
	return total
}
