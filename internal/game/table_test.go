package game

import (
	"errors"
	"slices"
	"testing"

	"github.com/lox/pokermatic/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadsUpFoldConservesChips(t *testing.T) {
	t.Parallel()

	table := HeadsUpTable()
	alice, bob := table.Seats()[0], table.Seats()[1]

	require.NoError(t, table.Deal())
	assert.Equal(t, PreFlop, table.Phase())
	assert.Equal(t, 1, table.RoundBet(bob), "small blind sits left of the button")
	assert.Equal(t, 2, table.RoundBet(alice), "heads-up the button posts the big blind")
	assert.Equal(t, bob, table.ActingPlayer())
	require.NoError(t, table.CheckConservation(1000))

	require.NoError(t, table.Fold(bob))
	assert.True(t, table.HandOver())

	result, err := table.Showdown()
	require.NoError(t, err)
	require.Len(t, result.Winners, 1)
	assert.Equal(t, alice, result.Winners[0].Player)
	assert.Equal(t, 3, result.Winners[0].Amount)
	assert.Empty(t, result.Shown)
	assert.Equal(t, 501, alice.Bankroll())
	assert.Equal(t, 499, bob.Bankroll())
	require.NoError(t, table.CheckConservation(1000))
	assert.Equal(t, NewHand, table.Phase())
	assert.Equal(t, 1, table.Button())

	// Button moved to Bob, so Alice posts the small blind and acts first.
	require.NoError(t, table.Deal())
	assert.Equal(t, alice, table.ActingPlayer())
	require.NoError(t, table.Fold(alice))
	_, err = table.Showdown()
	require.NoError(t, err)
	assert.Equal(t, 500, alice.Bankroll())
	assert.Equal(t, 500, bob.Bankroll())
	require.NoError(t, table.CheckConservation(1000))
}

func TestDealRequiresTwoPlayers(t *testing.T) {
	t.Parallel()

	table := NewTestTable(WithPlayers("Solo"))
	require.ErrorIs(t, table.Deal(), ErrInsufficientPlayers)
}

func TestBetValidation(t *testing.T) {
	t.Parallel()

	table := HeadsUpTable()
	alice, bob := table.Seats()[0], table.Seats()[1]
	require.NoError(t, table.Deal())

	require.ErrorIs(t, table.Fold(alice), ErrOutOfTurn)

	err := table.Check(bob)
	require.ErrorIs(t, err, ErrBetTooLow)
	require.ErrorIs(t, err, ErrInvalidBet)
	var betErr *BetError
	require.True(t, errors.As(err, &betErr))
	assert.Equal(t, 1, betErr.Required)

	err = table.Bet(bob, 2)
	require.ErrorIs(t, err, ErrRaiseTooSmall)
	require.ErrorIs(t, err, ErrInvalidBet)
	require.True(t, errors.As(err, &betErr))
	assert.Equal(t, 3, betErr.Required)

	require.NoError(t, table.Bet(bob, 3))
	assert.Equal(t, 4, table.CurrentBet())
	assert.Equal(t, alice, table.ActingPlayer())
	require.NoError(t, table.CheckConservation(1000))

	// Over-betting the stack is treated as all-in.
	require.NoError(t, table.Bet(alice, 600))
	_, capped := table.Cap(alice)
	assert.True(t, capped)
	assert.Equal(t, 0, alice.Bankroll())
	assert.False(t, table.BettingComplete(), "bob can still call the all-in")
	assert.Equal(t, bob, table.ActingPlayer())

	require.NoError(t, table.Call(bob))
	assert.True(t, table.BettingComplete())
	require.NoError(t, table.CheckConservation(1000))

	for table.Phase() != River {
		require.NoError(t, table.Deal())
		assert.Nil(t, table.ActingPlayer(), "nobody can act when everyone is all-in")
	}
	require.True(t, table.HandOver())

	result, err := table.Showdown()
	require.NoError(t, err)
	assert.Equal(t, 1000, result.Total())
	assert.Len(t, result.Shown, 2)
	require.NoError(t, table.CheckConservation(1000))
}

func TestTurnOrderSkipsCappedAndWraps(t *testing.T) {
	t.Parallel()

	table := NewTestTable(
		WithPlayers("P0", "P1", "P2", "P3"),
		WithStacks(30, 1000, 1000, 1000),
	)
	seats := table.Seats()
	table.button = 3

	require.NoError(t, table.Deal())
	assert.Equal(t, 10, table.RoundBet(seats[0]))
	assert.Equal(t, 20, table.RoundBet(seats[1]))
	assert.Equal(t, seats[2], table.ActingPlayer(), "first to act is three seats after the button")

	require.NoError(t, table.Call(seats[2]))
	assert.Equal(t, seats[3], table.ActingPlayer())
	require.NoError(t, table.Call(seats[3]))
	assert.Equal(t, seats[0], table.ActingPlayer(), "action wraps past the end of the seat list")

	require.NoError(t, table.AllIn(seats[0]))
	assert.Equal(t, 30, table.CurrentBet())
	assert.Equal(t, seats[1], table.ActingPlayer())
	require.NoError(t, table.Call(seats[1]))
	assert.False(t, table.BettingComplete(), "callers of the old bet must match the all-in")
	require.NoError(t, table.Call(seats[2]))
	require.NoError(t, table.Call(seats[3]))
	assert.True(t, table.BettingComplete())
	require.NoError(t, table.CheckConservation(3030))

	require.NoError(t, table.Deal())
	assert.Equal(t, Flop, table.Phase())
	assert.Len(t, table.Board(), 3)
	assert.Equal(t, seats[1], table.ActingPlayer(), "capped seat after the button is skipped")

	require.NoError(t, table.Check(seats[1]))
	require.NoError(t, table.Fold(seats[2]))
	assert.Equal(t, seats[3], table.ActingPlayer())
	require.NoError(t, table.Check(seats[3]))
	assert.True(t, table.BettingComplete())
	require.NoError(t, table.CheckConservation(3030))
}

func TestAvailableMoves(t *testing.T) {
	t.Parallel()

	table := HeadsUpTable()
	bob := table.Seats()[1]
	require.NoError(t, table.Deal())

	moves := table.AvailableMoves()
	assert.Equal(t, map[Action]int{
		ActionFold:  0,
		ActionCall:  1,
		ActionBet:   3,
		ActionAllIn: bob.Bankroll(),
	}, moves)

	require.NoError(t, table.Call(bob))
	moves = table.AvailableMoves()
	assert.Contains(t, moves, ActionCheck)
	assert.NotContains(t, moves, ActionCall)
}

func TestActionHistoryRecordsPotAndBet(t *testing.T) {
	t.Parallel()

	table := HeadsUpTable()
	bob := table.Seats()[1]
	require.NoError(t, table.Deal())
	require.NoError(t, table.Bet(bob, 5))

	last := table.LastMoves(5)
	require.Len(t, last, 3)
	assert.Equal(t, ActionSmallBlind, last[0].Action)
	assert.Equal(t, ActionBigBlind, last[1].Action)
	assert.Equal(t, ActionRecord{
		Action:     ActionRaise,
		PlayerID:   bob.ID,
		PlayerName: "Bob",
		Amount:     5,
		Pot:        8,
		CurrentBet: 6,
	}, last[2])
	assert.Len(t, table.LastMoves(1), 1)
	assert.Equal(t, last, table.State(false).RoundHistory)

	alice := table.Seats()[0]
	require.NoError(t, table.Call(alice))
	require.True(t, table.BettingComplete())
	require.NoError(t, table.Deal())

	state := table.State(false)
	assert.Equal(t, "flop", state.Phase)
	assert.Empty(t, state.RoundHistory, "a new street starts a new round")
	assert.Len(t, state.LastMoves, 4)
}

func TestPlayersWithoutChipsAreNotSeated(t *testing.T) {
	t.Parallel()

	table := HeadsUpTable()
	broke := NewPlayer(9, "Broke", "", 0)
	require.ErrorIs(t, table.AddPlayer(broke), ErrNoChips)

	table.Enqueue(broke)
	carol := NewPlayer(10, "Carol", "", 100)
	table.Enqueue(carol)

	admitted := table.AdmitQueued()
	assert.Equal(t, []*Player{carol}, admitted)
	assert.NotContains(t, table.Seats(), broke)
	assert.Empty(t, table.Queued())
}

func TestAntesArePostedBeforeBlinds(t *testing.T) {
	t.Parallel()

	table := NewTestTable(WithPlayers("A", "B", "C"), WithBlinds(10, 5))
	require.NoError(t, table.Deal())

	assert.Equal(t, 15, table.Pot())
	assert.Equal(t, 30, table.RoundBets())
	assert.Equal(t, 45, table.TotalPot())
	require.NoError(t, table.CheckConservation(3000))
}

func TestShortStackPostsPartialBlind(t *testing.T) {
	t.Parallel()

	table := NewTestTable(WithPlayers("A", "B", "C"), WithStacks(1000, 1000, 7))
	seats := table.Seats()
	require.NoError(t, table.Deal())

	assert.Equal(t, 7, table.RoundBet(seats[2]))
	assert.Equal(t, 20, table.CurrentBet())
	_, capped := table.Cap(seats[2])
	assert.True(t, capped)
}

func TestSeatingBetweenHands(t *testing.T) {
	t.Parallel()

	table := NewTestTable(WithPlayers("P1", "P2", "P3", "P4", "P5"))
	seats := table.Seats()

	taken := table.TakeSeats(2, 3)
	assert.Equal(t, []*Player{seats[3], seats[4]}, taken)
	assert.Equal(t, 3, table.SeatCount())

	table.button = 2
	seats[0].SetBankroll(0)
	busted := table.RemoveBusted()
	assert.Equal(t, []*Player{seats[0]}, busted)
	assert.Equal(t, 1, table.Button())
	assert.Equal(t, seats[2], table.PlayerAt(0), "button stays on the same player")

	require.NoError(t, table.Deal())
	late := NewPlayer(99, "Late", "", 1000)
	table.Enqueue(late)
	assert.Nil(t, table.AdmitQueued(), "nobody is seated mid-hand")
	assert.Nil(t, table.TakeSeats(1, 3))
}

func TestAdmitQueuedRespectsMaxSeats(t *testing.T) {
	t.Parallel()

	table := NewTestTable(WithMaxSeats(3), WithPlayers("A", "B"))
	c := NewPlayer(3, "C", "", 100)
	d := NewPlayer(4, "D", "", 100)
	table.Enqueue(c)
	table.Enqueue(d)
	table.Enqueue(c)

	assert.Equal(t, []*Player{c}, table.AdmitQueued())
	assert.Equal(t, []*Player{d}, table.Queued())
	require.ErrorIs(t, table.AddPlayer(d), ErrTableFull)
}

func TestPositions(t *testing.T) {
	t.Parallel()

	table := NewTestTable(WithPlayers("A", "B", "C"))
	seats := table.Seats()
	table.button = 2

	assert.Equal(t, 0, table.PlayerPosition(seats[2]))
	assert.Equal(t, 1, table.PlayerPosition(seats[0]))
	assert.Equal(t, seats[1], table.PlayerAt(2))
	assert.Equal(t, seats[1], table.PlayerAt(5))
	assert.Equal(t, -1, table.PlayerPosition(NewPlayer(9, "X", "", 1)))
}

func TestParseMove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Move
	}{
		{"fold", Move{Action: ActionFold}},
		{"Check", Move{Action: ActionCheck}},
		{"call", Move{Action: ActionCall}},
		{"all_in", Move{Action: ActionAllIn}},
		{"40", Move{Action: ActionBet, Amount: 40}},
	}
	for _, tt := range tests {
		got, err := ParseMove(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseMove("shove")
	require.ErrorIs(t, err, ErrInvalidBet)
}

// TestRandomPlayConservesChips drives many hands with random legal moves and
// checks the chip total after every mutation.
func TestRandomPlayConservesChips(t *testing.T) {
	t.Parallel()

	for seed := int64(1); seed <= 5; seed++ {
		table := NewTestTable(
			WithSeed(seed),
			WithBlinds(5, 1),
			WithPlayers("A", "B", "C", "D", "E", "F"),
			WithStacks(200, 300, 400, 500, 600, 700),
		)
		rng := randutil.New(seed)
		const total = 2700

		for hand := 0; hand < 100 && table.SeatCount() >= 2; hand++ {
			require.NoError(t, table.Deal())
			require.NoError(t, table.CheckConservation(total))

			for steps := 0; !table.HandOver(); steps++ {
				require.Less(t, steps, 500, "hand did not terminate")
				if table.BettingComplete() {
					require.NoError(t, table.Deal())
					require.NoError(t, table.CheckConservation(total))
					continue
				}

				p := table.ActingPlayer()
				require.NotNil(t, p)
				moves := table.AvailableMoves()
				actions := make([]Action, 0, len(moves))
				for a := range moves {
					actions = append(actions, a)
				}
				slices.Sort(actions)
				action := actions[rng.IntN(len(actions))]

				move := Move{Action: action}
				if action == ActionBet {
					move.Amount = moves[ActionBet] + rng.IntN(20)
				}
				require.NoError(t, table.Act(p, move))
				require.NoError(t, table.CheckConservation(total))
			}

			result, err := table.Showdown()
			require.NoError(t, err)
			require.NotEmpty(t, result.Winners)
			require.NoError(t, table.CheckConservation(total))
			table.RemoveBusted()
			require.NoError(t, table.CheckConservation(total), "busted players leave with nothing")
		}
	}
}
