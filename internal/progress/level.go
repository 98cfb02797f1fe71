package progress

// ExperienceRequired is the experience needed to advance one level. The
// stored per-record value is overwritten with this constant on every load;
// per-level scaling was dropped from the design.
const ExperienceRequired int64 = 1000

// LevelFor derives the level from total experience. Deterministic; the
// stored level must never drift from this for more than one reconciliation
// cycle.
func LevelFor(experience int64) int {
	if experience < 0 {
		return 1
	}
	return int(experience/ExperienceRequired) + 1
}
