// Package evaluator ranks the best five-card hold'em hand that can be built
// from a player's hole cards and the board.
package evaluator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lox/pokermatic/internal/deck"
)

// ErrInvalidHand is returned for card sets that cannot be evaluated
var ErrInvalidHand = errors.New("invalid hand")

// Rank is the category of a five-card hand. Higher is stronger.
type Rank int

const (
	HighCard Rank = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns a human-readable hand description
func (r Rank) String() string {
	switch r {
	case HighCard:
		return "High Card"
	case OnePair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// Hand is an evaluated hand. Tiebreak holds the cards that decide between two
// hands of the same rank, most significant first.
type Hand struct {
	Rank     Rank        `json:"rank"`
	Tiebreak []deck.Card `json:"tiebreak"`
}

func (h Hand) String() string {
	return fmt.Sprintf("%s %v", h.Rank, h.Tiebreak)
}

// Outcome is the result of comparing two hands
type Outcome int

const (
	Tie Outcome = iota
	First
	Second
)

// Evaluate returns the best hand that can be made from hole and board
// combined. Between five and seven distinct cards are required.
func Evaluate(hole, board []deck.Card) (Hand, error) {
	cards := make([]deck.Card, 0, len(hole)+len(board))
	cards = append(cards, hole...)
	cards = append(cards, board...)

	if len(cards) < 5 || len(cards) > 7 {
		return Hand{}, fmt.Errorf("%w: need 5 to 7 cards, got %d", ErrInvalidHand, len(cards))
	}
	seen := make(map[deck.Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return Hand{}, fmt.Errorf("%w: bad card %v", ErrInvalidHand, c)
		}
		if seen[c] {
			return Hand{}, fmt.Errorf("%w: duplicate card %s", ErrInvalidHand, c)
		}
		seen[c] = true
	}

	return evaluate(cards), nil
}

// MustEvaluate is Evaluate for callers that have already validated the cards
func MustEvaluate(hole, board []deck.Card) Hand {
	h, err := Evaluate(hole, board)
	if err != nil {
		panic(err)
	}
	return h
}

// Compare reports which hand is stronger
func Compare(a, b Hand) Outcome {
	if a.Rank != b.Rank {
		if a.Rank > b.Rank {
			return First
		}
		return Second
	}
	for i := 0; i < len(a.Tiebreak) && i < len(b.Tiebreak); i++ {
		av, bv := tiebreakValue(a, i), tiebreakValue(b, i)
		if av > bv {
			return First
		}
		if av < bv {
			return Second
		}
	}
	return Tie
}

// tiebreakValue counts an ace low when it closes a wheel
func tiebreakValue(h Hand, i int) int {
	c := h.Tiebreak[i]
	if c.Rank == deck.Ace && (h.Rank == Straight || h.Rank == StraightFlush) && i == len(h.Tiebreak)-1 {
		return 1
	}
	return c.Value()
}

func evaluate(cards []deck.Card) Hand {
	sorted := slices.Clone(cards)
	slices.SortStableFunc(sorted, func(a, b deck.Card) int {
		return b.Value() - a.Value()
	})

	if flush := flushCards(sorted); flush != nil {
		if run := straight(flush); run != nil {
			return Hand{Rank: StraightFlush, Tiebreak: run}
		}
	}

	groups := groupByValue(sorted)

	if quads := firstGroup(groups, 4, 0); quads != nil {
		return Hand{Rank: FourOfAKind, Tiebreak: append(quads, kickers(sorted, quads, 1)...)}
	}

	if trips := firstGroup(groups, 3, 0); trips != nil {
		if pair := firstGroup(groups, 2, trips[0].Value()); pair != nil {
			return Hand{Rank: FullHouse, Tiebreak: append(trips, pair[:2]...)}
		}
	}

	if flush := flushCards(sorted); flush != nil {
		return Hand{Rank: Flush, Tiebreak: flush[:5]}
	}

	if run := straight(sorted); run != nil {
		return Hand{Rank: Straight, Tiebreak: run}
	}

	if trips := firstGroup(groups, 3, 0); trips != nil {
		return Hand{Rank: ThreeOfAKind, Tiebreak: append(trips, kickers(sorted, trips, 2)...)}
	}

	if high := firstGroup(groups, 2, 0); high != nil {
		if low := firstGroup(groups, 2, high[0].Value()); low != nil {
			used := append(slices.Clone(high), low...)
			return Hand{Rank: TwoPair, Tiebreak: append(used, kickers(sorted, used, 1)...)}
		}
		return Hand{Rank: OnePair, Tiebreak: append(high, kickers(sorted, high, 3)...)}
	}

	return Hand{Rank: HighCard, Tiebreak: slices.Clone(sorted[:5])}
}

// flushCards returns every card of the flush suit, highest first, or nil
func flushCards(sorted []deck.Card) []deck.Card {
	for _, suit := range deck.Suits {
		var suited []deck.Card
		for _, c := range sorted {
			if c.Suit == suit {
				suited = append(suited, c)
			}
		}
		if len(suited) >= 5 {
			return suited
		}
	}
	return nil
}

// straight returns the five cards of the highest straight, highest first. A
// wheel is returned as 5-4-3-2-A.
func straight(sorted []deck.Card) []deck.Card {
	byValue := make(map[int]deck.Card, len(sorted))
	for _, c := range sorted {
		if _, ok := byValue[c.Value()]; !ok {
			byValue[c.Value()] = c
		}
	}
	if ace, ok := byValue[14]; ok {
		byValue[1] = ace
	}

	for high := 14; high >= 5; high-- {
		run := make([]deck.Card, 0, 5)
		for v := high; v > high-5; v-- {
			c, ok := byValue[v]
			if !ok {
				break
			}
			run = append(run, c)
		}
		if len(run) == 5 {
			return run
		}
	}
	return nil
}

// groupByValue buckets cards by value, preserving the descending order
func groupByValue(sorted []deck.Card) [][]deck.Card {
	var groups [][]deck.Card
	for _, c := range sorted {
		n := len(groups)
		if n > 0 && groups[n-1][0].Value() == c.Value() {
			groups[n-1] = append(groups[n-1], c)
			continue
		}
		groups = append(groups, []deck.Card{c})
	}
	return groups
}

// firstGroup returns the highest group with at least size cards, trimmed to
// size, skipping the value excluded. Groups larger than size qualify so that
// a second set of trips can serve as the pair of a full house.
func firstGroup(groups [][]deck.Card, size, excluded int) []deck.Card {
	for _, g := range groups {
		if len(g) >= size && g[0].Value() != excluded {
			return slices.Clone(g[:size])
		}
	}
	return nil
}

// kickers returns the n highest cards not already used
func kickers(sorted, used []deck.Card, n int) []deck.Card {
	out := make([]deck.Card, 0, n)
	for _, c := range sorted {
		if len(out) == n {
			break
		}
		if !slices.Contains(used, c) {
			out = append(out, c)
		}
	}
	return out
}
