package server

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lox/pokermatic/internal/session"
)

// Inbound command names
const (
	CommandRegister         = "register"
	CommandAction           = "action"
	CommandJoinTable        = "join_table"
	CommandJoinTournament   = "join_tournament"
	CommandCreateTable      = "create_table"
	CommandCreateTournament = "create_tournament"
)

// Server-originated message types, alongside the table types in session
const (
	TypeRegistration      session.MessageType = "registration"
	TypeTableCreated      session.MessageType = "table_created"
	TypeTournamentCreated session.MessageType = "tournament_created"
)

// Command is an inbound request from a player or admin connection. Fields
// unused by a command are ignored.
type Command struct {
	Command   string `json:"command"`
	CommandID string `json:"command_id,omitempty"`

	// register
	Name      string `json:"name,omitempty"`
	PublicKey string `json:"public_key,omitempty"`

	// action, join_table, join_tournament
	TableID      int64       `json:"table_id,omitempty"`
	TournamentID int64       `json:"tournament_id,omitempty"`
	Action       ActionValue `json:"action,omitempty"`

	// create_table
	Blinds     int `json:"blinds,omitempty"`
	MinPlayers int `json:"min_players,omitempty"`

	// create_tournament
	StartTime         int64 `json:"start_time,omitempty"`
	StartingBlind     int   `json:"starting_blind,omitempty"`
	BlindTimerSeconds int   `json:"blind_timer_seconds,omitempty"`
	StartingChips     int   `json:"starting_chips,omitempty"`
}

// ActionValue accepts either a move name or a bare bet amount
type ActionValue string

func (a *ActionValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ActionValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("action must be a string or a number: %w", err)
	}
	*a = ActionValue(n.String())
	return nil
}

// Registration answers a register command
type Registration struct {
	CommandID string `json:"command_id,omitempty"`
	PlayerID  int64  `json:"player_id"`
	Bankroll  int    `json:"bankroll"`
}

// TableCreated announces a new cash table
type TableCreated struct {
	CommandID  string `json:"command_id,omitempty"`
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	MinPlayers int    `json:"min_players"`
	Blinds     int    `json:"blinds"`
}

// TournamentCreated announces a new tournament and when it starts
type TournamentCreated struct {
	CommandID    string `json:"command_id,omitempty"`
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	StartingTime int64  `json:"starting_time"`
}
