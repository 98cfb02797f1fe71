package autoclick

import "idle_clicker/internal/domain"

// Power derives the passive income rate from the owned upgrades. Each
// upgrade contributes ceil(price * 0.01) per level, so even the cheapest
// upgrade adds at least 1 per tick.
func Power(upgrades []domain.OwnedUpgrade) int64 {
	var total int64
	for _, u := range upgrades {
		if u.Price <= 0 {
			continue
		}
		level := int64(u.Level)
		if level < 1 {
			level = 1
		}
		total += level * ((u.Price + 99) / 100)
	}
	return total
}
