package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/pokermatic/internal/game"
	"github.com/lox/pokermatic/internal/metrics"
	"github.com/lox/pokermatic/internal/randutil"
	"github.com/lox/pokermatic/internal/session"
	"github.com/lox/pokermatic/internal/stats"
	"github.com/lox/pokermatic/internal/tournament"
)

// DefaultStartingBankroll is what a newly registered player brings to cash
// tables
const DefaultStartingBankroll = 500

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingName    = errors.New("name required")
)

// Dispatcher turns inbound commands into calls on tables and tournaments
type Dispatcher struct {
	registry *Registry
	config   *Config
	logger   *log.Logger
	clock    quartz.Clock
	metrics  *metrics.Collector
	recorder stats.Recorder
	lobby    session.Notifier

	rngMu sync.Mutex
	rng   *rand.Rand
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

func WithDispatchClock(clock quartz.Clock) DispatcherOption {
	return func(d *Dispatcher) { d.clock = clock }
}

func WithDispatchLogger(logger *log.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithDispatchMetrics(m *metrics.Collector) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithRecorder stores tournament results
func WithRecorder(r stats.Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithLobby receives table and tournament announcements
func WithLobby(n session.Notifier) DispatcherOption {
	return func(d *Dispatcher) { d.lobby = n }
}

// WithSeed makes every table and tournament created by the dispatcher
// reproducible
func WithSeed(seed int64) DispatcherOption {
	return func(d *Dispatcher) { d.rng = randutil.New(seed) }
}

func NewDispatcher(registry *Registry, config *Config, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		config:   config,
		logger:   log.New(io.Discard),
		clock:    quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		d.rng = randutil.New(randutil.Seed(0))
	}
	d.logger = d.logger.WithPrefix("dispatch")
	return d
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Register creates a player with the configured starting bankroll
func (d *Dispatcher) Register(name, publicKey string, ch session.Notifier) (*game.Player, error) {
	if name == "" {
		return nil, ErrMissingName
	}
	p := game.NewPlayer(d.registry.NextID(), name, publicKey, d.config.Server.StartingBankroll)
	d.registry.AddPlayer(p, ch)
	d.logger.Info("Player registered", "player", name, "id", p.ID)
	return p, nil
}

// HandlePlayer routes a command from a registered player
func (d *Dispatcher) HandlePlayer(p *game.Player, ch session.Notifier, cmd Command) error {
	switch cmd.Command {
	case CommandJoinTable:
		s, err := d.registry.Table(cmd.TableID)
		if err != nil {
			return err
		}
		if err := d.claim(p, s.ID()); err != nil {
			return err
		}
		if err := s.Join(p, ch); err != nil {
			d.registry.Release(p.ID, s.ID())
			return fmt.Errorf("join table %d: %w", cmd.TableID, err)
		}
		if _, err := s.CheckStart(); err != nil {
			d.logger.Warn("Table failed to start", "table", s.ID(), "error", err)
		}
		return nil

	case CommandJoinTournament:
		c, err := d.registry.Tournament(cmd.TournamentID)
		if err != nil {
			return err
		}
		if err := d.claim(p, c.ID()); err != nil {
			return err
		}
		if err := c.Join(p, ch); err != nil {
			d.registry.Release(p.ID, c.ID())
			return fmt.Errorf("join tournament %d: %w", cmd.TournamentID, err)
		}
		return nil

	case CommandAction:
		s, err := d.registry.Table(cmd.TableID)
		if err != nil {
			return err
		}
		move, err := game.ParseMove(string(cmd.Action))
		if err != nil {
			return err
		}
		return s.TakeAction(p, move)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
}

// claim reserves p for owner. A player holds one table or tournament at a
// time; a previous claim lapses once they have busted out of it.
func (d *Dispatcher) claim(p *game.Player, owner int64) error {
	cur, ok := d.registry.Seat(p.ID)
	if ok && cur == owner {
		return fmt.Errorf("%w: already joined %d", ErrAlreadySeated, owner)
	}
	if ok && d.holds(cur, p) {
		return fmt.Errorf("%w: leave %d first", ErrAlreadySeated, cur)
	}
	return d.registry.Claim(p.ID, owner, cur)
}

func (d *Dispatcher) holds(owner int64, p *game.Player) bool {
	if s, err := d.registry.Table(owner); err == nil {
		_, ok := s.Player(p.ID)
		return ok
	}
	if c, err := d.registry.Tournament(owner); err == nil {
		return c.Holds(p)
	}
	return false
}

// Bankroll reads a player's chips under the lock of the table or tournament
// that holds them
func (d *Dispatcher) Bankroll(p *game.Player) int {
	if owner, ok := d.registry.Seat(p.ID); ok {
		if s, err := d.registry.Table(owner); err == nil {
			if chips, ok := s.Bankroll(p); ok {
				return chips
			}
		}
		if c, err := d.registry.Tournament(owner); err == nil {
			return c.Bankroll(p)
		}
	}
	return p.Bankroll()
}

// HandleAdmin routes a command from an admin connection and returns the
// reply to send back
func (d *Dispatcher) HandleAdmin(cmd Command) (session.Message, error) {
	switch cmd.Command {
	case CommandCreateTable:
		s, err := d.CreateTable(TableConfig{Name: cmd.Name, SmallBlind: cmd.Blinds, MinPlayers: cmd.MinPlayers})
		if err != nil {
			return session.Message{}, err
		}
		created := TableCreated{
			CommandID:  cmd.CommandID,
			ID:         s.ID(),
			Name:       cmd.Name,
			MinPlayers: max(cmd.MinPlayers, session.DefaultMinPlayers),
			Blinds:     s.State().SmallBlind,
		}
		d.announce(TypeTableCreated, created)
		return session.Message{Type: TypeTableCreated, Payload: created}, nil

	case CommandCreateTournament:
		var start time.Time
		if cmd.StartTime > 0 {
			start = time.Unix(cmd.StartTime, 0)
		}
		c := d.CreateTournament(TournamentRequest{
			Name:          cmd.Name,
			StartTime:     start,
			SmallBlind:    cmd.StartingBlind,
			LevelDuration: time.Duration(cmd.BlindTimerSeconds) * time.Second,
			StartingChips: cmd.StartingChips,
		})
		created := TournamentCreated{
			CommandID:    cmd.CommandID,
			ID:           c.ID(),
			Name:         c.Name(),
			StartingTime: c.StartTime().Unix(),
		}
		d.announce(TypeTournamentCreated, created)
		return session.Message{Type: TypeTournamentCreated, Payload: created}, nil

	default:
		return session.Message{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
}

// CreateTable opens a named cash table that starts once enough players join
func (d *Dispatcher) CreateTable(tc TableConfig) (*session.Session, error) {
	if tc.Name == "" {
		return nil, ErrMissingName
	}
	if tc.SmallBlind <= 0 {
		tc.SmallBlind = 1
	}
	if tc.MinPlayers < session.DefaultMinPlayers {
		tc.MinPlayers = session.DefaultMinPlayers
	}

	id := d.registry.NextID()
	table := game.NewTable(d.newRNG(), game.TableConfig{SmallBlind: tc.SmallBlind})
	s := session.New(id, table,
		session.WithClock(d.clock),
		session.WithLogger(d.logger),
		session.WithTimeLimit(d.config.TimeLimit()),
		session.WithPollInterval(d.config.PollInterval()),
		session.WithMinPlayers(tc.MinPlayers),
		session.WithMetrics(d.metrics),
	)
	if err := d.registry.AddTable(tc.Name, s); err != nil {
		s.Close()
		return nil, err
	}
	d.logger.Info("Table created", "table", id, "name", tc.Name, "blinds", tc.SmallBlind, "min_players", tc.MinPlayers)
	return s, nil
}

// TournamentRequest overrides the configured tournament defaults. Zero
// fields keep the default.
type TournamentRequest struct {
	Name          string
	StartTime     time.Time
	SmallBlind    int
	LevelDuration time.Duration
	StartingChips int
}

// CreateTournament registers a tournament and schedules its start
func (d *Dispatcher) CreateTournament(req TournamentRequest) *tournament.Coordinator {
	defaults := d.config.Tournament
	if req.StartTime.IsZero() {
		req.StartTime = d.clock.Now().Add(time.Duration(defaults.StartDelaySeconds) * time.Second)
	}
	if req.SmallBlind <= 0 {
		req.SmallBlind = defaults.SmallBlind
	}
	if req.LevelDuration <= 0 {
		req.LevelDuration = time.Duration(defaults.BlindTimerSeconds) * time.Second
	}
	if req.StartingChips <= 0 {
		req.StartingChips = defaults.StartingChips
	}

	opts := []tournament.Option{
		tournament.WithStartTime(req.StartTime),
		tournament.WithSmallBlind(req.SmallBlind),
		tournament.WithLevelDuration(req.LevelDuration),
		tournament.WithStartingChips(req.StartingChips),
		tournament.WithTimeLimit(d.config.TimeLimit()),
		tournament.WithPollInterval(d.config.PollInterval()),
		tournament.WithMaxSeats(defaults.MaxSeats),
		tournament.WithClock(d.clock),
		tournament.WithLogger(d.logger),
		tournament.WithRNG(d.newRNG()),
		tournament.WithTableIDs(d.registry.NextID),
		tournament.WithTableRegistrar(func(s *session.Session) {
			if err := d.registry.AddTable("", s); err != nil {
				d.logger.Error("Failed to register tournament table", "table", s.ID(), "error", err)
			}
		}),
		tournament.WithMetrics(d.metrics),
	}
	if req.Name != "" {
		opts = append(opts, tournament.WithName(req.Name))
	}
	if d.recorder != nil {
		opts = append(opts, tournament.WithRecorder(d.recorder))
	}

	c := tournament.New(d.registry.NextID(), opts...)
	d.registry.AddTournament(c)
	c.Schedule()
	d.logger.Info("Tournament created", "tournament", c.ID(), "name", c.Name(), "start", c.StartTime())
	return c
}

// Close stops every tournament and table
func (d *Dispatcher) Close() {
	for _, c := range d.registry.Tournaments() {
		c.Close()
	}
	for _, s := range d.registry.Tables() {
		s.Close()
	}
}

func (d *Dispatcher) newRNG() *rand.Rand {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return randutil.New(d.rng.Int64())
}

func (d *Dispatcher) announce(t session.MessageType, payload any) {
	if d.lobby == nil {
		return
	}
	if err := d.lobby.Publish(context.Background(), session.Message{Type: t, Payload: payload}); err != nil {
		d.logger.Warn("Failed to announce", "type", t, "error", err)
	}
}
