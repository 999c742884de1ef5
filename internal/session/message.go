package session

import (
	"context"
	"encoding/json"

	"github.com/lox/pokermatic/internal/deck"
	"github.com/lox/pokermatic/internal/game"
)

// Notifier delivers messages to a player or to everyone watching a table
type Notifier interface {
	Publish(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Publish(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// MessageType identifies the payload carried by a Message
type MessageType string

const (
	TypeGameState         MessageType = "state"
	TypeHandDealt         MessageType = "hand"
	TypeWinner            MessageType = "winner"
	TypeError             MessageType = "error"
	TypeTableSubscription MessageType = "table_subscription"
)

// Message is an outbound notification
type Message struct {
	Type    MessageType
	TableID int64
	Payload any
}

// MarshalJSON flattens the message into the envelope transports send
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    MessageType `json:"type"`
		TableID int64       `json:"table_id"`
		Data    any         `json:"data"`
	}{m.Type, m.TableID, m.Payload})
}

// GameState is broadcast after every change at a table
type GameState struct {
	HandNumber       int                `json:"hand_number"`
	MoveNumber       int64              `json:"move_number"`
	TimeLimitSeconds int                `json:"time_limit_seconds,omitempty"`
	State            game.GameState     `json:"state"`
	Tournament       *TournamentSummary `json:"tournament,omitempty"`
}

// HandDealt carries a player's private hole cards
type HandDealt struct {
	HandNumber int         `json:"hand_number"`
	Cards      []deck.Card `json:"cards"`
}

// WinnerPayout is one player's share of a settled hand
type WinnerPayout struct {
	PlayerID int64       `json:"player_id"`
	Name     string      `json:"name"`
	Amount   int         `json:"amount"`
	Hand     string      `json:"hand,omitempty"`
	Cards    []deck.Card `json:"cards,omitempty"`
}

// Winner announces the outcome of a hand
type Winner struct {
	HandNumber int                   `json:"hand_number"`
	Board      []deck.Card           `json:"board"`
	Payouts    []WinnerPayout        `json:"payouts"`
	Shown      map[int64][]deck.Card `json:"shown,omitempty"`
}

// ErrorNotice tells a single player why their action was rejected
type ErrorNotice struct {
	Message string `json:"message"`
}

// TableSubscription tells a player which table they now sit at
type TableSubscription struct {
	PlayerID int64 `json:"player_id"`
	Seated   bool  `json:"seated"`
}

// TournamentSummary is the tournament overview attached to state broadcasts
type TournamentSummary struct {
	TournamentID int64    `json:"tournament_id"`
	Name         string   `json:"name"`
	State        string   `json:"state"`
	TotalPlayers int      `json:"total_players"`
	PlayersLeft  int      `json:"players_left"`
	Finished     []string `json:"finished"`
	Tables       int      `json:"number_of_tables"`
	Level        int      `json:"level"`
	SmallBlind   int      `json:"small_blind"`
	Ante         int      `json:"ante"`
}

func winnerFrom(handNumber int, result game.Result) Winner {
	w := Winner{
		HandNumber: handNumber,
		Board:      result.Board,
		Payouts:    make([]WinnerPayout, 0, len(result.Winners)),
	}
	for _, payout := range result.Winners {
		entry := WinnerPayout{
			PlayerID: payout.Player.ID,
			Name:     payout.Player.Name,
			Amount:   payout.Amount,
		}
		if payout.Hand != nil {
			entry.Hand = payout.Hand.Rank.String()
			entry.Cards = payout.Hand.Tiebreak
		}
		w.Payouts = append(w.Payouts, entry)
	}
	if len(result.Shown) > 0 {
		w.Shown = make(map[int64][]deck.Card, len(result.Shown))
		for p, cards := range result.Shown {
			w.Shown[p.ID] = cards
		}
	}
	return w
}
