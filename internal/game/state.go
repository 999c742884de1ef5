package game

import (
	"github.com/lox/pokermatic/internal/deck"
)

// SeatState is the public view of one seat
type SeatState struct {
	PlayerID  int64  `json:"player_id"`
	Name      string `json:"name"`
	Bankroll  int    `json:"bankroll"`
	RoundBet  int    `json:"round_bet"`
	Committed int    `json:"committed"`
	Position  int    `json:"position"`
	InHand    bool   `json:"in_hand"`
	AllIn     bool   `json:"all_in"`
	Cap       int    `json:"cap,omitempty"`
}

// GameState is the public snapshot of a table broadcast after every change.
// Hole cards are never included.
type GameState struct {
	Phase          string         `json:"phase"`
	Board          []deck.Card    `json:"board"`
	Pot            int            `json:"pot"`
	CurrentBet     int            `json:"current_bet"`
	MinRaise       int            `json:"min_raise"`
	SmallBlind     int            `json:"small_blind"`
	BigBlind       int            `json:"big_blind"`
	Ante           int            `json:"ante"`
	Button         int            `json:"button"`
	Seats          []SeatState    `json:"seats"`
	ActingPlayerID int64          `json:"acting_player_id,omitempty"`
	AvailableMoves map[Action]int `json:"available_moves,omitempty"`
	RoundHistory   []ActionRecord `json:"round_history"`
	LastMoves      []ActionRecord `json:"last_moves"`
}

// ActingSeat returns the seat of the player to act
func (s GameState) ActingSeat() (SeatState, bool) {
	if s.ActingPlayerID == 0 {
		return SeatState{}, false
	}
	return s.Seat(s.ActingPlayerID)
}

// Seat looks up a seat by player id
func (s GameState) Seat(playerID int64) (SeatState, bool) {
	for _, seat := range s.Seats {
		if seat.PlayerID == playerID {
			return seat, true
		}
	}
	return SeatState{}, false
}

// State builds the public snapshot. When noActive is set the acting player
// and their options are left out, which is used for end-of-hand broadcasts.
func (t *Table) State(noActive bool) GameState {
	state := GameState{
		Phase:        t.phase.String(),
		Board:        t.Board(),
		Pot:          t.TotalPot(),
		CurrentBet:   t.currentBet,
		MinRaise:     t.minRaise,
		SmallBlind:   t.smallBlind,
		BigBlind:     t.BigBlind(),
		Ante:         t.ante,
		Button:       t.button,
		Seats:        make([]SeatState, 0, len(t.seats)),
		RoundHistory: t.RoundHistory(),
		LastMoves:    t.LastMoves(5),
	}

	for _, p := range t.seats {
		capAmount, capped := t.caps[p]
		state.Seats = append(state.Seats, SeatState{
			PlayerID:  p.ID,
			Name:      p.Name,
			Bankroll:  p.Bankroll(),
			RoundBet:  t.bets[p],
			Committed: t.committed[p],
			Position:  t.PlayerPosition(p),
			InHand:    t.InHand(p),
			AllIn:     capped,
			Cap:       capAmount,
		})
	}

	if !noActive && !t.BettingComplete() {
		if p := t.ActingPlayer(); p != nil {
			state.ActingPlayerID = p.ID
			state.AvailableMoves = t.AvailableMoves()
		}
	}
	return state
}
