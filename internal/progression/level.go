package progression

import (
	"math"

	"xforce-progression/internal/domain"
)

const xpPerLevelUnit = 100

// LevelForXP returns floor(1 + sqrt(xp/100)). It is the only place a level is derived.
func LevelForXP(xp int) int {
	if xp <= 0 {
		return 1
	}
	n := int(math.Sqrt(float64(xp) / xpPerLevelUnit))
	// Correct float rounding at exact squares.
	for n > 0 && xpPerLevelUnit*n*n > xp {
		n--
	}
	for xpPerLevelUnit*(n+1)*(n+1) <= xp {
		n++
	}
	return n + 1
}

// XPThresholdForLevel returns the XP at which a user leaves level, i.e. reaches level+1.
func XPThresholdForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return xpPerLevelUnit * level * level
}

// LevelFloorXP returns the XP at which level is first reached.
func LevelFloorXP(level int) int {
	if level <= 1 {
		return 0
	}
	return XPThresholdForLevel(level - 1)
}

// Relevel recomputes agg.Level from agg.XP and reports the previous level
// and whether the level increased.
func Relevel(agg *domain.UserAggregate) (previous int, leveledUp bool) {
	previous = agg.Level
	agg.Level = LevelForXP(agg.XP)
	return previous, agg.Level > previous
}

// Progress returns the display form of xp within its level.
func Progress(xp int) domain.LevelProgress {
	level := LevelForXP(xp)
	floor := LevelFloorXP(level)
	next := XPThresholdForLevel(level)
	fraction := 0.0
	if next > floor {
		fraction = min(max(float64(xp-floor)/float64(next-floor), 0), 1)
	}
	return domain.LevelProgress{
		Level:        level,
		XP:           xp,
		LevelFloorXP: floor,
		NextLevelXP:  next,
		Fraction:     fraction,
	}
}
