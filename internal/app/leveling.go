package app

import (
	"fmt"

	"ipormac/internal/domain"
)

// LevelStanding is a learner's position on the level ladder.
type LevelStanding struct {
	Level    domain.Level
	Next     *domain.Level
	Progress float64
}

// LevelFor places totals on an ascending ladder. The first level is the floor,
// so a learner always has a level. Progress towards the next level is the lesser
// of the points and accuracy fractions, so both thresholds must be met.
func LevelFor(totalPoints int, accuracy float64, levels []domain.Level) LevelStanding {
	if len(levels) == 0 {
		return LevelStanding{Progress: 100}
	}

	idx := 0
	for i, lvl := range levels {
		if totalPoints >= lvl.MinPoints && accuracy >= lvl.MinAccuracy {
			idx = i
		}
	}

	standing := LevelStanding{Level: levels[idx], Progress: 100}
	if idx+1 < len(levels) {
		next := levels[idx+1]
		standing.Next = &next
		progress := percentOf(float64(totalPoints), float64(next.MinPoints))
		if acc := percentOf(accuracy, next.MinAccuracy); acc < progress {
			progress = acc
		}
		standing.Progress = clampPercent(progress)
	}
	return standing
}

// ValidateLevels checks that levels is non-empty and its thresholds never decrease.
func ValidateLevels(levels []domain.Level) error {
	if len(levels) == 0 {
		return fmt.Errorf("%w: no levels", domain.ErrInvalidLevels)
	}
	for i := 1; i < len(levels); i++ {
		prev, cur := levels[i-1], levels[i]
		if cur.MinPoints < prev.MinPoints || cur.MinAccuracy < prev.MinAccuracy {
			return fmt.Errorf("%w: %q has lower thresholds than %q", domain.ErrInvalidLevels, cur.Title, prev.Title)
		}
	}
	return nil
}

func percentOf(value, required float64) float64 {
	if required <= 0 {
		return 100
	}
	p := 100 * value / required
	if p > 100 {
		return 100
	}
	return p
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
