package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Action names an entry in the action history
type Action string

const (
	ActionFold       Action = "fold"
	ActionCheck      Action = "check"
	ActionCall       Action = "call"
	ActionBet        Action = "bet"
	ActionRaise      Action = "raise"
	ActionAllIn      Action = "all_in"
	ActionAnte       Action = "ante"
	ActionSmallBlind Action = "small_blind"
	ActionBigBlind   Action = "big_blind"
)

// ActionRecord is one audited chip movement or decision
type ActionRecord struct {
	Action     Action `json:"action"`
	PlayerID   int64  `json:"player_id"`
	PlayerName string `json:"player_name"`
	Amount     int    `json:"amount"`
	Pot        int    `json:"pot"`
	CurrentBet int    `json:"current_bet"`
}

// Move is a decision submitted by a player. Amount is only read for bets and
// counts the additional chips put in with this action.
type Move struct {
	Action Action
	Amount int
}

// ParseMove parses fold, check, call, all_in or a bare chip amount
func ParseMove(s string) (Move, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold":
		return Move{Action: ActionFold}, nil
	case "check":
		return Move{Action: ActionCheck}, nil
	case "call":
		return Move{Action: ActionCall}, nil
	case "all_in", "allin", "all-in":
		return Move{Action: ActionAllIn}, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return Move{}, fmt.Errorf("%w: unknown action %q", ErrInvalidBet, s)
	}
	return Move{Action: ActionBet, Amount: n}, nil
}

// Act applies a parsed move for p
func (t *Table) Act(p *Player, m Move) error {
	switch m.Action {
	case ActionFold:
		return t.Fold(p)
	case ActionCheck:
		return t.Check(p)
	case ActionCall:
		return t.Call(p)
	case ActionAllIn:
		return t.AllIn(p)
	case ActionBet, ActionRaise:
		return t.Bet(p, m.Amount)
	default:
		return fmt.Errorf("%w: unsupported action %q", ErrInvalidBet, m.Action)
	}
}

func (t *Table) checkTurn(p *Player) error {
	if acting := t.ActingPlayer(); acting == nil || acting != p {
		return ErrOutOfTurn
	}
	return nil
}

// Fold gives up the hand. Any chips already bet this street stay in the pot.
func (t *Table) Fold(p *Player) error {
	if err := t.checkTurn(p); err != nil {
		return err
	}
	t.pot += t.bets[p]
	delete(t.bets, p)
	delete(t.hands, p)
	t.record(ActionFold, p, 0)
	t.updateCaps()
	t.advance()
	return nil
}

// Check is a bet of nothing
func (t *Table) Check(p *Player) error {
	return t.Bet(p, 0)
}

// Call matches the current bet, going all-in when the stack is short
func (t *Table) Call(p *Player) error {
	return t.Bet(p, max(t.currentBet-t.bets[p], 0))
}

// Bet puts amount additional chips in. Amounts at or above the bankroll are
// treated as all-in.
func (t *Table) Bet(p *Player, amount int) error {
	if err := t.checkTurn(p); err != nil {
		return err
	}
	if amount < 0 {
		return &BetError{Err: ErrInvalidBet, Amount: amount}
	}
	if amount > 0 && amount >= p.Bankroll() {
		return t.AllIn(p)
	}

	owed := t.currentBet - t.bets[p]
	if amount < owed {
		return &BetError{Err: ErrBetTooLow, Amount: amount, Required: owed}
	}
	raise := amount - owed
	if raise > 0 && raise < t.minRaise {
		return &BetError{Err: ErrRaiseTooSmall, Amount: amount, Required: owed + t.minRaise}
	}

	action := ActionCall
	switch {
	case amount == 0:
		action = ActionCheck
	case raise > 0 && t.currentBet == 0:
		action = ActionBet
	case raise > 0:
		action = ActionRaise
	}

	t.commit(p, amount)
	if raise > 0 {
		t.currentBet += raise
		t.minRaise = max(t.minRaise, raise)
		clear(t.acted)
	}
	t.acted[p] = true
	t.record(action, p, amount)
	t.updateCaps()
	t.advance()
	return nil
}

// AllIn commits the player's entire bankroll
func (t *Table) AllIn(p *Player) error {
	if err := t.checkTurn(p); err != nil {
		return err
	}
	amount := p.Bankroll()
	if amount <= 0 {
		return &BetError{Err: ErrInvalidBet, Amount: 0, Required: 1}
	}

	t.commit(p, amount)
	if total := t.bets[p]; total > t.currentBet {
		t.minRaise = max(t.minRaise, total-t.currentBet)
		t.currentBet = total
		clear(t.acted)
	}
	t.acted[p] = true
	t.record(ActionAllIn, p, amount)
	t.updateCaps()
	t.advance()
	return nil
}

func (t *Table) commit(p *Player, amount int) {
	paid := p.MakeBet(amount)
	t.bets[p] += paid
	t.committed[p] += paid
}

func (t *Table) advance() {
	if len(t.seats) == 0 {
		t.acting = -1
		return
	}
	t.acting = t.firstEligibleFrom(t.acting + 1)
}

// updateCaps sets each all-in player's cap to the chips they can win: their
// own commitment plus, from every other contributor, no more than they matched.
func (t *Table) updateCaps() {
	for _, p := range t.seats {
		if !t.InHand(p) || p.Bankroll() > 0 || t.committed[p] == 0 {
			continue
		}
		limit := t.committed[p]
		total := 0
		for _, n := range t.committed {
			total += min(n, limit)
		}
		t.caps[p] = total
	}
}

// BettingComplete reports whether the current street needs no more action
func (t *Table) BettingComplete() bool {
	inHand := t.PlayersInHand()
	if len(inHand) <= 1 {
		return true
	}

	var uncapped []*Player
	for _, p := range inHand {
		if _, capped := t.caps[p]; !capped {
			uncapped = append(uncapped, p)
		}
	}

	switch len(uncapped) {
	case 0:
		return true
	case 1:
		return t.bets[uncapped[0]] >= t.currentBet
	}

	for _, p := range uncapped {
		if !t.acted[p] || t.bets[p] != t.currentBet {
			return false
		}
	}
	return true
}

// HandOver reports whether the hand is ready for showdown
func (t *Table) HandOver() bool {
	if t.phase == NewHand {
		return false
	}
	return len(t.PlayersInHand()) <= 1 || (t.phase == River && t.BettingComplete())
}

// AvailableMoves lists what the acting player may do, keyed by action with
// the chips each one costs
func (t *Table) AvailableMoves() map[Action]int {
	p := t.ActingPlayer()
	if p == nil {
		return nil
	}

	moves := map[Action]int{
		ActionFold:  0,
		ActionAllIn: p.Bankroll(),
	}
	owed := max(t.currentBet-t.bets[p], 0)
	if owed == 0 {
		moves[ActionCheck] = 0
	} else {
		moves[ActionCall] = min(owed, p.Bankroll())
	}
	if minBet := owed + t.minRaise; minBet < p.Bankroll() {
		moves[ActionBet] = minBet
	}
	return moves
}

func (t *Table) record(action Action, p *Player, amount int) {
	r := ActionRecord{
		Action:     action,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Amount:     amount,
		Pot:        t.TotalPot(),
		CurrentBet: t.currentBet,
	}
	t.handHistory = append(t.handHistory, r)
	t.roundHistory = append(t.roundHistory, r)
}

// RoundHistory returns the actions of the current street
func (t *Table) RoundHistory() []ActionRecord {
	out := make([]ActionRecord, len(t.roundHistory))
	copy(out, t.roundHistory)
	return out
}

// LastMoves returns up to n of the most recent actions
func (t *Table) LastMoves(n int) []ActionRecord {
	start := max(len(t.handHistory)-n, 0)
	out := make([]ActionRecord, len(t.handHistory)-start)
	copy(out, t.handHistory[start:])
	return out
}
