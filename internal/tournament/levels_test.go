package tournament

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChooseTableSizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		players int
		want    []int
	}{
		{0, nil},
		{2, []int{2}},
		{5, []int{5}},
		{11, []int{6, 5}},
		{12, []int{6, 6}},
		{19, []int{10, 9}},
		{20, []int{10, 10}},
		{21, []int{7, 7, 7}},
		{28, []int{10, 9, 9}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChooseTableSizes(tt.players, 10), "players=%d", tt.players)
	}
}

func TestChooseTableSizesProperties(t *testing.T) {
	t.Parallel()

	for n := 2; n <= 500; n++ {
		sizes := ChooseTableSizes(n, 10)
		sum, lo, hi := 0, sizes[0], sizes[0]
		for _, s := range sizes {
			sum += s
			lo, hi = min(lo, s), max(hi, s)
		}
		assert.Equal(t, n, sum, "players=%d", n)
		assert.LessOrEqual(t, hi, 10, "players=%d", n)
		assert.GreaterOrEqual(t, lo, 2, "players=%d", n)
		assert.LessOrEqual(t, hi-lo, 1, "players=%d sizes=%v", n, sizes)
	}
}

func TestBlindSchedule(t *testing.T) {
	t.Parallel()

	level := 5 * time.Minute
	assert.Equal(t, 0, Level(0, level))
	assert.Equal(t, 0, Level(-time.Second, level))
	assert.Equal(t, 0, Level(299*time.Second, level))
	assert.Equal(t, 1, Level(300*time.Second, level))
	assert.Equal(t, 12, Level(time.Hour, level))

	tests := []struct {
		level      int
		smallBlind int
		ante       int
	}{
		{0, 25, 0},
		{1, 50, 0},
		{4, 100, 25},
		{6, 200, 50},
		{20, 12500, 2500},
		{22, 12500, 3125},
		{99, 12500, 3750},
	}
	for _, tt := range tests {
		sb, ante := Blinds(25, tt.level)
		assert.Equal(t, tt.smallBlind, sb, "level %d", tt.level)
		assert.Equal(t, tt.ante, ante, "level %d", tt.level)
	}
}
