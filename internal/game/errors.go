package game

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfTurn           = errors.New("not your turn")
	ErrInvalidBet          = errors.New("invalid bet")
	ErrBetTooLow           = fmt.Errorf("%w: bet too low", ErrInvalidBet)
	ErrRaiseTooSmall       = fmt.Errorf("%w: raise too small", ErrInvalidBet)
	ErrInsufficientPlayers = errors.New("not enough players to deal")
	ErrTableFull           = errors.New("table is full")
	ErrNoChips             = errors.New("player has no chips")
	ErrChipConservation    = errors.New("chip conservation violation")
	ErrHandInProgress      = errors.New("hand in progress")
	ErrNoHand              = errors.New("no hand in progress")
)

// BetError carries the amounts behind a rejected bet
type BetError struct {
	Err      error
	Amount   int
	Required int
}

func (e *BetError) Error() string {
	return fmt.Sprintf("%v: got %d, need %d", e.Err, e.Amount, e.Required)
}

func (e *BetError) Unwrap() error {
	return e.Err
}
