package game

import (
	"fmt"
	"slices"

	"github.com/lox/pokermatic/internal/deck"
	"github.com/lox/pokermatic/internal/evaluator"
)

// Payout is what one player collected at showdown
type Payout struct {
	Player *Player
	Amount int
	Hand   *evaluator.Hand
}

// Tier is one settled slice of the pot. Level is the per-player commitment
// that bounds it; every in-hand player who committed at least Level was
// eligible.
type Tier struct {
	Level    int
	Amount   int
	Eligible []*Player
	Winners  []*Player
}

// Result describes a settled hand
type Result struct {
	Winners []Payout
	Tiers   []Tier
	Shown   map[*Player][]deck.Card
	Board   []deck.Card
}

// Total returns the chips paid out
func (r Result) Total() int {
	total := 0
	for _, w := range r.Winners {
		total += w.Amount
	}
	return total
}

// Showdown settles the pot and resets the table for the next hand. The pot is
// split into tiers at each distinct commitment level; a tier goes to the best
// hand among the players who paid into it in full, and a tier nobody in the
// hand can claim goes back to whoever paid for it.
func (t *Table) Showdown() (Result, error) {
	if t.phase == NewHand {
		return Result{}, ErrNoHand
	}
	inHand := t.PlayersInHand()
	if len(inHand) > 1 && (t.phase != River || !t.BettingComplete()) {
		return Result{}, fmt.Errorf("%w: showdown before the river is complete", ErrHandInProgress)
	}

	t.sweepBets()

	hands := make(map[*Player]evaluator.Hand, len(inHand))
	shown := make(map[*Player][]deck.Card)
	if len(inHand) > 1 {
		for _, p := range inHand {
			h, err := evaluator.Evaluate(t.hands[p], t.board)
			if err != nil {
				return Result{}, fmt.Errorf("evaluate %s: %w", p, err)
			}
			hands[p] = h
			shown[p] = slices.Clone(t.hands[p])
		}
	}

	order := t.payoutOrder()
	won := make(map[*Player]int)
	var tiers []Tier
	prev := 0
	for _, level := range t.tierLevels(inHand) {
		tier := Tier{Level: level}
		refunds := make(map[*Player]int)
		for _, p := range order {
			share := min(t.committed[p], level) - min(t.committed[p], prev)
			if share > 0 {
				tier.Amount += share
				refunds[p] = share
			}
		}
		for _, p := range order {
			if t.InHand(p) && t.committed[p] >= level {
				tier.Eligible = append(tier.Eligible, p)
			}
		}

		if len(tier.Eligible) == 0 {
			for p, n := range refunds {
				won[p] += n
			}
		} else {
			tier.Winners = bestHands(tier.Eligible, hands)
			split(tier.Amount, tier.Winners, won)
		}
		if tier.Amount > 0 {
			tiers = append(tiers, tier)
		}
		prev = level
	}

	result := Result{Tiers: tiers, Shown: shown, Board: slices.Clone(t.board)}
	paid := 0
	for _, p := range order {
		n, ok := won[p]
		if !ok {
			continue
		}
		p.TakeWinnings(n)
		paid += n
		payout := Payout{Player: p, Amount: n}
		if h, ok := hands[p]; ok {
			payout.Hand = &h
		}
		result.Winners = append(result.Winners, payout)
	}
	if paid != t.pot {
		return result, fmt.Errorf("%w: paid %d from a pot of %d", ErrChipConservation, paid, t.pot)
	}

	t.resetHand()
	if len(t.seats) > 0 {
		t.button = t.seatIndex(t.button + 1)
	}
	return result, nil
}

// tierLevels returns the ascending commitment levels that bound each tier.
// The last level covers the largest commitment at the table so money nobody
// matched is settled too.
func (t *Table) tierLevels(inHand []*Player) []int {
	var levels []int
	top := 0
	for _, n := range t.committed {
		top = max(top, n)
	}
	for _, p := range inHand {
		if n := t.committed[p]; n > 0 && !slices.Contains(levels, n) {
			levels = append(levels, n)
		}
	}
	if top > 0 && !slices.Contains(levels, top) {
		levels = append(levels, top)
	}
	slices.Sort(levels)
	return levels
}

// payoutOrder lists every contributor starting left of the button
func (t *Table) payoutOrder() []*Player {
	order := make([]*Player, 0, len(t.seats))
	for i := 1; i <= len(t.seats); i++ {
		p := t.seats[t.seatIndex(t.button+i)]
		if _, ok := t.committed[p]; ok {
			order = append(order, p)
		}
	}
	return order
}

func bestHands(eligible []*Player, hands map[*Player]evaluator.Hand) []*Player {
	if len(eligible) == 1 {
		return eligible
	}
	best := []*Player{eligible[0]}
	for _, p := range eligible[1:] {
		switch evaluator.Compare(hands[p], hands[best[0]]) {
		case evaluator.First:
			best = []*Player{p}
		case evaluator.Tie:
			best = append(best, p)
		}
	}
	return best
}

// split divides amount evenly, handing odd chips out one at a time in the
// order the winners are listed
func split(amount int, winners []*Player, won map[*Player]int) {
	share := amount / len(winners)
	rem := amount % len(winners)
	for i, p := range winners {
		won[p] += share
		if i < rem {
			won[p]++
		}
	}
}
