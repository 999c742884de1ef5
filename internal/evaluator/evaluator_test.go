package evaluator

import (
	"slices"
	"testing"

	"github.com/lox/pokermatic/internal/deck"
	"github.com/lox/pokermatic/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, cards string) Hand {
	t.Helper()
	all := deck.MustParseCards(cards)
	h, err := Evaluate(all[:2], all[2:])
	require.NoError(t, err)
	return h
}

func TestEvaluateRanks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cards    string
		rank     Rank
		tiebreak string
	}{
		{"royal flush", "AsKsQsJsTs9h8h", StraightFlush, "AsKsQsJsTs"},
		{"steel wheel", "As2s3s4s5sKhKd", StraightFlush, "5s4s3s2sAs"},
		{"four of a kind", "AsAhAdAcKs2h3h", FourOfAKind, "AsAhAdAcKs"},
		{"full house", "AsAhAdKsKh2h3h", FullHouse, "AsAhAdKsKh"},
		{"two trips make a full house", "9s9h9dKsKhKd2c", FullHouse, "KsKhKd9s9h"},
		{"flush takes top five", "AsKsQs8s6s4s3h", Flush, "AsKsQs8s6s"},
		{"broadway", "AsKhQdJcTs9h8h", Straight, "AsKhQdJcTs"},
		{"wheel", "Ah2c3d4s5h9cKd", Straight, "5h4s3d2cAh"},
		{"three of a kind", "AsAhAdKs9c7h5h", ThreeOfAKind, "AsAhAdKs9c"},
		{"two pair from three", "AsAhKdKs9c9h5h", TwoPair, "AsAhKdKs9c"},
		{"one pair", "AsAhKdQs9c7h5h", OnePair, "AsAhKdQs9c"},
		{"high card", "AsKhQdJs9c7h5h", HighCard, "AsKhQdJs9c"},
		{"five cards only", "2h3d4c5sAs", Straight, "5s4c3d2hAs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := eval(t, tt.cards)
			assert.Equal(t, tt.rank, h.Rank, h.String())
			assert.Equal(t, deck.MustParseCards(tt.tiebreak), h.Tiebreak)
		})
	}
}

func TestEvaluateRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(deck.MustParseCards("AsKs"), deck.MustParseCards("2h3h"))
	require.ErrorIs(t, err, ErrInvalidHand)

	_, err = Evaluate(deck.MustParseCards("AsKs"), deck.MustParseCards("2h3h4h5h6h7h"))
	require.ErrorIs(t, err, ErrInvalidHand)

	_, err = Evaluate(deck.MustParseCards("AsAs"), deck.MustParseCards("2h3h4h"))
	require.ErrorIs(t, err, ErrInvalidHand)
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want Outcome
	}{
		{"flush beats straight", "AsKs2s5s9sTdJc", "9h8d7c6s5h2c2d", First},
		{"higher pair wins", "KsKh2d5c9s", "QsQh2c5d9h", First},
		{"kicker decides", "AsAhKd5c9s", "AdAcQh5d9h", First},
		{"wheel loses to six high", "Ah2c3d4s5h", "2h3c4d5s6h", Second},
		{"board plays", "AsKdQhJcTs", "AhKcQdJsTd", Tie},
		{"second pair decides two pair", "AsAhKdKc2s", "AdAcQhQd3h", First},
		{"full house trips first", "3s3h3d2c2s", "2h2d2sAcAh", First},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, b := eval(t, tt.a), eval(t, tt.b)
			assert.Equal(t, tt.want, Compare(a, b))

			mirrored := map[Outcome]Outcome{First: Second, Second: First, Tie: Tie}
			assert.Equal(t, mirrored[tt.want], Compare(b, a))
			assert.Equal(t, Tie, Compare(a, a))
		})
	}
}

func TestCompareRandomDeals(t *testing.T) {
	t.Parallel()

	d := deck.NewDeck(randutil.New(42), 1)
	mirrored := map[Outcome]Outcome{First: Second, Second: First, Tie: Tie}

	for i := 0; i < 5000; i++ {
		d.Shuffle()
		board := d.DealN(5)
		a, b := MustEvaluate(d.DealN(2), board), MustEvaluate(d.DealN(2), board)

		require.Equal(t, mirrored[Compare(a, b)], Compare(b, a), "deal %d: %s vs %s", i, a, b)
		require.Equal(t, Tie, Compare(a, a), "deal %d: %s", i, a)
		require.Equal(t, Tie, Compare(b, b), "deal %d: %s", i, b)
		if a.Rank != b.Rank {
			want := Second
			if a.Rank > b.Rank {
				want = First
			}
			require.Equal(t, want, Compare(a, b), "deal %d: %s vs %s", i, a, b)
		}

		seven := append(slices.Clone(board[:3]), d.DealN(4)...)
		forward := MustEvaluate(seven[:2], seven[2:])
		slices.Reverse(seven)
		backward := MustEvaluate(seven[:2], seven[2:])
		require.Equal(t, Tie, Compare(forward, backward), "deal %d: card order changed the result", i)
	}
}

func TestRankString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Straight Flush", StraightFlush.String())
	assert.Equal(t, "Pair", OnePair.String())
	assert.Equal(t, "Unknown", Rank(42).String())
}
