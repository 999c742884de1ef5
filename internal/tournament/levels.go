package tournament

import "time"

// BlindLevels and AnteLevels are multipliers of the starting small blind,
// one entry per level. Levels past the end stay on the last entry.
var (
	BlindLevels = []int{1, 2, 3, 4, 4, 6, 8, 12, 16, 20, 24, 32, 40, 60, 80, 120, 160, 240, 320, 400, 500}
	AnteLevels  = []int{0, 0, 0, 0, 1, 1, 2, 3, 4, 4, 8, 8, 12, 20, 20, 40, 40, 40, 80, 100, 100, 100, 125, 150}
)

// Level returns the blind level reached after elapsed time
func Level(elapsed, levelDuration time.Duration) int {
	if elapsed <= 0 || levelDuration <= 0 {
		return 0
	}
	return int(elapsed / levelDuration)
}

// Blinds returns the small blind and ante for a level
func Blinds(startingSmallBlind, level int) (smallBlind, ante int) {
	return startingSmallBlind * multiplier(BlindLevels, level),
		startingSmallBlind * multiplier(AnteLevels, level)
}

func multiplier(levels []int, level int) int {
	if level < 0 {
		level = 0
	}
	if level >= len(levels) {
		level = len(levels) - 1
	}
	return levels[level]
}

// ChooseTableSizes splits n players into tables of at most maxSeats seats. Tables
// are filled to maxSeats where possible; a short remainder is topped up to maxSeats-1
// by taking players from full tables, and when that cannot work the whole
// split is retried with a smaller maxSeats.
func ChooseTableSizes(n, maxSeats int) []int {
	if n <= 0 {
		return nil
	}
	if maxSeats < 2 || n <= maxSeats {
		return []int{n}
	}

	full := n / maxSeats
	sizes := make([]int, full, full+1)
	for i := range sizes {
		sizes[i] = maxSeats
	}

	rem := n % maxSeats
	switch {
	case rem == 0:
		return sizes
	case rem == maxSeats-1:
		return append(sizes, rem)
	case maxSeats-rem <= full:
		for i := full - 1; rem < maxSeats-1; i-- {
			sizes[i]--
			rem++
		}
		return append(sizes, rem)
	default:
		return ChooseTableSizes(n, maxSeats-1)
	}
}
