package domain

import "time"

// UpgradeDef is a purchasable upgrade from the static catalog.
type UpgradeDef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price int64  `json:"price"`
}

// OwnedUpgrade is one upgrade owned by a player.
type OwnedUpgrade struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	UpgradeID   string    `db:"upgrade_id" json:"upgrade_id"`
	Price       int64     `db:"price" json:"price"`
	Level       int       `db:"level" json:"level"`
	PurchasedAt time.Time `db:"purchased_at" json:"purchased_at"`
}
