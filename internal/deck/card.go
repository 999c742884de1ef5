package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Heart Suit = iota
	Diamond
	Club
	Spade
)

// Suits lists every suit in deck construction order
var Suits = []Suit{Heart, Diamond, Club, Spade}

// String returns the name of the suit
func (s Suit) String() string {
	switch s {
	case Heart:
		return "Heart"
	case Diamond:
		return "Diamond"
	case Club:
		return "Club"
	case Spade:
		return "Spade"
	default:
		return "?"
	}
}

// Symbol returns the single-letter suit code used by ParseCard
func (s Suit) Symbol() string {
	switch s {
	case Heart:
		return "h"
	case Diamond:
		return "d"
	case Club:
		return "c"
	case Spade:
		return "s"
	default:
		return "?"
	}
}

// Rank represents a card rank. Ace is 1 and ranks high except in a wheel.
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// String returns the single-character rank code
func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		if r >= Two && r <= Nine {
			return fmt.Sprintf("%d", int(r))
		}
		return "?"
	}
}

// Name returns the long form of the rank, e.g. "Ace" or "7"
func (r Rank) Name() string {
	switch r {
	case Ace:
		return "Ace"
	case Jack:
		return "Jack"
	case Queen:
		return "Queen"
	case King:
		return "King"
	default:
		return fmt.Sprintf("%d", int(r))
	}
}

// Card represents a playing card
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"value"`
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the short form of the card (e.g., "Ah")
func (c Card) String() string {
	return c.Rank.String() + c.Suit.Symbol()
}

// Describe returns the long form of the card (e.g., "Ace of Hearts")
func (c Card) Describe() string {
	return fmt.Sprintf("%s of %ss", c.Rank.Name(), c.Suit)
}

// Value returns the ranking value of the card with the Ace counted high (14)
func (c Card) Value() int {
	if c.Rank == Ace {
		return 14
	}
	return int(c.Rank)
}

// Valid reports whether suit and rank are in range
func (c Card) Valid() bool {
	return c.Suit >= Heart && c.Suit <= Spade && c.Rank >= Ace && c.Rank <= King
}

// ParseCard parses a two-character card such as "Ah" or "td"
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}

	var rank Rank
	switch strings.ToUpper(s[:1]) {
	case "A":
		rank = Ace
	case "K":
		rank = King
	case "Q":
		rank = Queen
	case "J":
		rank = Jack
	case "T":
		rank = Ten
	default:
		if s[0] < '2' || s[0] > '9' {
			return Card{}, fmt.Errorf("invalid rank in card %q", s)
		}
		rank = Rank(s[0] - '0')
	}

	var suit Suit
	switch strings.ToLower(s[1:]) {
	case "h":
		suit = Heart
	case "d":
		suit = Diamond
	case "c":
		suit = Club
	case "s":
		suit = Spade
	default:
		return Card{}, fmt.Errorf("invalid suit in card %q", s)
	}

	return Card{Suit: suit, Rank: rank}, nil
}

// ParseCards parses a run of concatenated cards such as "AhKdQc"
func ParseCards(s string) ([]Card, error) {
	s = strings.ReplaceAll(s, " ", "")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("invalid card string %q", s)
	}

	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		card, err := ParseCard(s[i : i+2])
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// MustParseCards is ParseCards that panics on error, for tests and fixtures
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}
