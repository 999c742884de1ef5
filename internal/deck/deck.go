package deck

import (
	rand "math/rand/v2"
)

// CardsPerDeck is the size of a single standard deck
const CardsPerDeck = 52

// Deck is a shoe of one or more standard decks. Cards move from the undealt
// pile to the dealt pile as they are dealt and are recombined by Shuffle.
type Deck struct {
	cards []Card
	dealt []Card
	rng   *rand.Rand
}

// NewDeck creates a shuffled shoe made of n standard decks
func NewDeck(rng *rand.Rand, n int) *Deck {
	if n < 1 {
		n = 1
	}
	d := &Deck{
		cards: make([]Card, 0, n*CardsPerDeck),
		dealt: make([]Card, 0, n*CardsPerDeck),
		rng:   rng,
	}
	for i := 0; i < n; i++ {
		for _, suit := range Suits {
			for rank := Ace; rank <= King; rank++ {
				d.cards = append(d.cards, NewCard(suit, rank))
			}
		}
	}
	d.Shuffle()
	return d
}

// Shuffle returns every dealt card to the deck and randomizes the order
func (d *Deck) Shuffle() {
	d.cards = append(d.cards, d.dealt...)
	d.dealt = d.dealt[:0]
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal pops the top card and moves it to the dealt pile
func (d *Deck) Deal() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	last := len(d.cards) - 1
	card := d.cards[last]
	d.cards = d.cards[:last]
	d.dealt = append(d.dealt, card)
	return card, true
}

// DealN deals up to n cards
func (d *Deck) DealN(n int) []Card {
	cards := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		card, ok := d.Deal()
		if !ok {
			break
		}
		cards = append(cards, card)
	}
	return cards
}

// Remaining returns the number of undealt cards
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Dealt returns a copy of the dealt pile in dealing order
func (d *Deck) Dealt() []Card {
	out := make([]Card, len(d.dealt))
	copy(out, d.dealt)
	return out
}

// Size returns the total number of cards in the shoe
func (d *Deck) Size() int {
	return len(d.cards) + len(d.dealt)
}
