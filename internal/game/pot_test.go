package game

import (
	"testing"

	"github.com/lox/pokermatic/internal/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runToRiver deals the remaining streets of a hand where nobody can act
func runToRiver(t *testing.T, table *Table) {
	t.Helper()
	for table.Phase() != River {
		require.True(t, table.BettingComplete())
		require.NoError(t, table.Deal())
	}
}

func rig(table *Table, board string, holes map[*Player]string) {
	table.board = deck.MustParseCards(board)
	for p, cards := range holes {
		table.hands[p] = deck.MustParseCards(cards)
	}
}

func payouts(r Result) map[string]int {
	out := make(map[string]int)
	for _, w := range r.Winners {
		out[w.Player.Name] = w.Amount
	}
	return out
}

func threeWayAllIn(t *testing.T) (*Table, *Player, *Player, *Player) {
	t.Helper()
	table := NewTestTable(
		WithBlinds(1, 0),
		WithPlayers("Big", "Mid", "Small"),
		WithStacks(100, 50, 20),
	)
	seats := table.Seats()
	big, mid, small := seats[0], seats[1], seats[2]

	require.NoError(t, table.Deal())
	require.Equal(t, big, table.ActingPlayer())
	require.NoError(t, table.AllIn(big))
	require.NoError(t, table.AllIn(mid))
	require.NoError(t, table.AllIn(small))
	require.True(t, table.BettingComplete())
	return table, big, mid, small
}

func TestSidePotCaps(t *testing.T) {
	t.Parallel()

	table, big, mid, small := threeWayAllIn(t)

	capSmall, _ := table.Cap(small)
	capMid, _ := table.Cap(mid)
	capBig, _ := table.Cap(big)
	assert.Equal(t, 60, capSmall)
	assert.Equal(t, 120, capMid)
	assert.Equal(t, 170, capBig)
	require.NoError(t, table.CheckConservation(170))
}

func TestSidePotTiersFollowHandStrength(t *testing.T) {
	t.Parallel()

	table, big, mid, small := threeWayAllIn(t)
	runToRiver(t, table)
	rig(table, "2c7d9hJs4s", map[*Player]string{
		small: "AhAd",
		mid:   "KhKd",
		big:   "QhQd",
	})

	result, err := table.Showdown()
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Small": 60, "Mid": 60, "Big": 50}, payouts(result))
	assert.Equal(t, 170, result.Total())
	require.Len(t, result.Tiers, 3)
	assert.Equal(t, []int{60, 60, 50}, []int{result.Tiers[0].Amount, result.Tiers[1].Amount, result.Tiers[2].Amount})
	assert.Len(t, result.Tiers[0].Eligible, 3)
	assert.Len(t, result.Tiers[1].Eligible, 2)
	assert.Equal(t, []*Player{big}, result.Tiers[2].Eligible)
	require.NoError(t, table.CheckConservation(170))
}

func TestSidePotBestHandTakesEverything(t *testing.T) {
	t.Parallel()

	table, big, mid, small := threeWayAllIn(t)
	runToRiver(t, table)
	rig(table, "2c7d9hJs4s", map[*Player]string{
		small: "QhQd",
		mid:   "KhKd",
		big:   "AhAd",
	})

	result, err := table.Showdown()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Big": 170}, payouts(result))
	assert.Equal(t, 0, small.Bankroll())
	assert.Equal(t, 0, mid.Bankroll())

	busted := table.RemoveBusted()
	assert.ElementsMatch(t, []*Player{mid, small}, busted)
}

func TestSplitPotOddChipGoesLeftOfButton(t *testing.T) {
	t.Parallel()

	table := NewTestTable(WithBlinds(1, 0), WithPlayers("A", "B", "C"))
	seats := table.Seats()
	a, b, c := seats[0], seats[1], seats[2]

	require.NoError(t, table.Deal())
	require.NoError(t, table.Call(a))
	require.NoError(t, table.Fold(b))
	require.NoError(t, table.Check(c))
	for table.Phase() != River || !table.BettingComplete() {
		require.True(t, table.BettingComplete())
		require.NoError(t, table.Deal())
		require.Equal(t, c, table.ActingPlayer())
		require.NoError(t, table.Check(c))
		require.NoError(t, table.Check(a))
	}
	rig(table, "AsKsQsJsTs", map[*Player]string{
		a: "2c3d",
		c: "2d3c",
	})

	result, err := table.Showdown()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"C": 3, "A": 2}, payouts(result))
	assert.Equal(t, 1000, a.Bankroll())
	assert.Equal(t, 999, b.Bankroll())
	assert.Equal(t, 1001, c.Bankroll())
	require.NoError(t, table.CheckConservation(3000))
}

func TestUnmatchedChipsReturnToBettor(t *testing.T) {
	t.Parallel()

	table := NewTestTable(WithBlinds(1, 0), WithPlayers("Deep", "Short"), WithStacks(1000, 200))
	deep, short := table.Seats()[0], table.Seats()[1]

	require.NoError(t, table.Deal())
	require.NoError(t, table.Call(short))
	require.NoError(t, table.AllIn(deep))
	require.NoError(t, table.Call(short), "calling for more than the stack goes all-in")
	require.True(t, table.BettingComplete())

	capShort, _ := table.Cap(short)
	capDeep, _ := table.Cap(deep)
	assert.Equal(t, 400, capShort)
	assert.Equal(t, 1200, capDeep)

	runToRiver(t, table)
	rig(table, "2c7d9hJs4s", map[*Player]string{
		short: "AhAd",
		deep:  "KhKd",
	})

	result, err := table.Showdown()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Short": 400, "Deep": 800}, payouts(result))
	assert.Equal(t, 800, deep.Bankroll())
	assert.Equal(t, 400, short.Bankroll())
	require.NoError(t, table.CheckConservation(1200))
}

func TestShowdownRejectsUnfinishedHand(t *testing.T) {
	t.Parallel()

	table := HeadsUpTable()
	_, err := table.Showdown()
	require.ErrorIs(t, err, ErrNoHand)

	require.NoError(t, table.Deal())
	_, err = table.Showdown()
	require.ErrorIs(t, err, ErrHandInProgress)
}

func TestEveryoneFoldsToBigBlind(t *testing.T) {
	t.Parallel()

	table := NewTestTable(WithBlinds(1, 0), WithPlayers("A", "B", "C"))
	seats := table.Seats()
	a, b := seats[0], seats[1]

	require.NoError(t, table.Deal())
	require.NoError(t, table.Fold(a))
	require.NoError(t, table.Fold(b))
	assert.True(t, table.HandOver())

	result, err := table.Showdown()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"C": 3}, payouts(result))
	require.NoError(t, table.CheckConservation(3000))
}
