package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/pokermatic/internal/auth"
	"github.com/lox/pokermatic/internal/game"
	"github.com/lox/pokermatic/internal/session"
	"github.com/lox/pokermatic/internal/tournament"
)

// Config represents the complete server configuration
type Config struct {
	Server     ServerSettings      `hcl:"server,block"`
	Tournament *TournamentDefaults `hcl:"tournament,block"`
	Tables     []TableConfig       `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address             string `hcl:"address,optional"`
	Port                int    `hcl:"port,optional"`
	LogLevel            string `hcl:"log_level,optional"`
	AdminToken          string `hcl:"admin_token,optional"`
	AdminAuthURL        string `hcl:"admin_auth_url,optional"`
	StatsFile           string `hcl:"stats_file,optional"`
	TimeLimitSeconds    int    `hcl:"time_limit_seconds,optional"`
	PollIntervalSeconds int    `hcl:"poll_interval_seconds,optional"`
	StartingBankroll    int    `hcl:"starting_bankroll,optional"`
}

// TournamentDefaults fill in whatever a create_tournament command leaves out
type TournamentDefaults struct {
	SmallBlind        int `hcl:"small_blind,optional"`
	BlindTimerSeconds int `hcl:"blind_timer_seconds,optional"`
	StartingChips     int `hcl:"starting_chips,optional"`
	StartDelaySeconds int `hcl:"start_delay_seconds,optional"`
	MaxSeats          int `hcl:"max_seats,optional"`
}

// TableConfig defines a cash table created when the server starts
type TableConfig struct {
	Name       string `hcl:"name,label"`
	SmallBlind int    `hcl:"small_blind,optional"`
	MinPlayers int    `hcl:"min_players,optional"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadConfig loads server configuration from an HCL file. A missing file
// yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.StatsFile == "" {
		c.Server.StatsFile = "pokermatic-stats.json"
	}
	if c.Server.TimeLimitSeconds == 0 {
		c.Server.TimeLimitSeconds = int(session.DefaultTimeLimit / time.Second)
	}
	if c.Server.PollIntervalSeconds == 0 {
		c.Server.PollIntervalSeconds = int(session.DefaultPollInterval / time.Second)
	}
	if c.Server.StartingBankroll == 0 {
		c.Server.StartingBankroll = DefaultStartingBankroll
	}

	if c.Tournament == nil {
		c.Tournament = &TournamentDefaults{}
	}
	t := c.Tournament
	if t.SmallBlind == 0 {
		t.SmallBlind = tournament.DefaultSmallBlind
	}
	if t.BlindTimerSeconds == 0 {
		t.BlindTimerSeconds = int(tournament.DefaultLevelDuration / time.Second)
	}
	if t.StartingChips == 0 {
		t.StartingChips = tournament.DefaultStartingChips
	}
	if t.StartDelaySeconds == 0 {
		t.StartDelaySeconds = int(tournament.DefaultStartDelay / time.Second)
	}
	if t.MaxSeats == 0 {
		t.MaxSeats = game.DefaultMaxSeats
	}

	for i := range c.Tables {
		if c.Tables[i].SmallBlind == 0 {
			c.Tables[i].SmallBlind = 1
		}
		if c.Tables[i].MinPlayers == 0 {
			c.Tables[i].MinPlayers = session.DefaultMinPlayers
		}
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.TimeLimitSeconds < 1 {
		return fmt.Errorf("time limit must be positive")
	}
	if c.Server.PollIntervalSeconds < 1 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Server.StartingBankroll < 1 {
		return fmt.Errorf("starting bankroll must be positive")
	}

	t := c.Tournament
	if t == nil {
		return fmt.Errorf("tournament defaults missing")
	}
	if t.SmallBlind < 1 {
		return fmt.Errorf("tournament: small blind must be positive")
	}
	if t.BlindTimerSeconds < 1 {
		return fmt.Errorf("tournament: blind timer must be positive")
	}
	if t.StartingChips <= 2*t.SmallBlind {
		return fmt.Errorf("tournament: starting chips must cover the big blind")
	}
	if t.MaxSeats < 2 || t.MaxSeats > game.DefaultMaxSeats {
		return fmt.Errorf("tournament: max seats must be between 2 and %d", game.DefaultMaxSeats)
	}

	seen := make(map[string]bool)
	for _, table := range c.Tables {
		if seen[table.Name] {
			return fmt.Errorf("table %s: defined more than once", table.Name)
		}
		seen[table.Name] = true
		if table.SmallBlind < 1 {
			return fmt.Errorf("table %s: small blind must be positive", table.Name)
		}
		if table.MinPlayers < 2 || table.MinPlayers > game.DefaultMaxSeats {
			return fmt.Errorf("table %s: min players must be between 2 and %d", table.Name, game.DefaultMaxSeats)
		}
	}
	return nil
}

// AdminValidator returns the validator guarding the admin endpoint, nil
// when neither a token nor an auth service is configured
func (c *Config) AdminValidator() auth.Validator {
	switch {
	case c.Server.AdminAuthURL != "":
		return auth.NewHTTPValidator(c.Server.AdminAuthURL)
	case c.Server.AdminToken != "":
		return auth.NewStaticValidator(c.Server.AdminToken)
	default:
		return nil
	}
}

// ListenAddress returns the host:port the server binds
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

func (c *Config) TimeLimit() time.Duration {
	return time.Duration(c.Server.TimeLimitSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Server.PollIntervalSeconds) * time.Second
}
