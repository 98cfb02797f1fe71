package handlers

import (
	"net/http"

	"idle_clicker/internal/autoclick"
	"idle_clicker/internal/domain"
	"idle_clicker/internal/logger"

	"github.com/gin-gonic/gin"
)

// Catalog is the static upgrade catalog. Prices drive both the purchase
// cost and the passive contribution: each level adds ceil(price / 100).
var Catalog = []domain.UpgradeDef{
	{ID: "cursor", Title: "Sharper Cursor", Price: 100},
	{ID: "gloves", Title: "Mining Gloves", Price: 250},
	{ID: "drill", Title: "Auto Drill", Price: 1000},
	{ID: "rig", Title: "Mining Rig", Price: 5000},
	{ID: "factory", Title: "Click Factory", Price: 20000},
	{ID: "quantum", Title: "Quantum Tapper", Price: 100000},
}

func catalogLookup(id string) (domain.UpgradeDef, bool) {
	for _, def := range Catalog {
		if def.ID == id {
			return def, true
		}
	}
	return domain.UpgradeDef{}, false
}

// GetUpgrades returns the catalog and the player's owned upgrades.
func (h *Handler) GetUpgrades(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	owned, err := h.Upgrades.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load upgrades"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"catalog":          Catalog,
		"owned":            owned,
		"auto_click_power": autoclick.Power(owned),
	})
}

type BuyUpgradeRequest struct {
	UpgradeID string `json:"upgrade_id" binding:"required"`
}

// BuyUpgrade purchases an upgrade. The coin cost is an optimistic delta:
// the caller-side balance check here guarantees no decrement is issued
// without sufficient optimistically-known balance. The new passive rate is
// persisted as a replacement, not a delta.
func (h *Handler) BuyUpgrade(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req BuyUpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	def, found := catalogLookup(req.UpgradeID)
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown upgrade"})
		return
	}

	ctx := c.Request.Context()
	sess, err := h.Sessions.GetOrOpen(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
		return
	}

	if sess.Syncer().Value(domain.FieldCoins) < def.Price {
		c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient coins"})
		return
	}

	ownedUpgrade := &domain.OwnedUpgrade{
		UserID:    userID,
		UpgradeID: def.ID,
		Price:     def.Price,
	}
	if err := h.Upgrades.Add(ctx, ownedUpgrade); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record purchase"})
		return
	}

	sess.RecordDelta(domain.FieldCoins, -def.Price)

	owned, err := h.Upgrades.ListByUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load upgrades"})
		return
	}
	power := autoclick.Power(owned)
	if err := sess.SetAutoClickPower(ctx, power); err != nil {
		// replacement write retries internally; by now the session already
		// runs with the new rate
		logger.Warn("auto click power write failed", "user_id", userID, "error", err)
	}

	view := sess.View()
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"upgrade":          ownedUpgrade,
		"coins":            view.Coins,
		"auto_click_power": power,
		"pending":          view.Pending,
	})
}
