package tournament

import (
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/pokermatic/internal/metrics"
	"github.com/lox/pokermatic/internal/session"
	"github.com/lox/pokermatic/internal/stats"
)

const (
	DefaultSmallBlind    = 25
	DefaultLevelDuration = 300 * time.Second
	DefaultStartingChips = 5000
	DefaultStartDelay    = 600 * time.Second
)

// Option configures a Coordinator
type Option func(*Coordinator)

func WithName(name string) Option {
	return func(c *Coordinator) { c.name = name }
}

// WithStartTime sets when Schedule starts the tournament
func WithStartTime(t time.Time) Option {
	return func(c *Coordinator) { c.startTime = t }
}

func WithSmallBlind(n int) Option {
	return func(c *Coordinator) { c.smallBlind = n }
}

// WithLevelDuration sets how long each blind level lasts
func WithLevelDuration(d time.Duration) Option {
	return func(c *Coordinator) { c.levelDuration = d }
}

func WithStartingChips(n int) Option {
	return func(c *Coordinator) { c.startingChips = n }
}

// WithTimeLimit sets the per-move time limit at every table
func WithTimeLimit(d time.Duration) Option {
	return func(c *Coordinator) { c.timeLimit = d }
}

// WithPollInterval sets the watchdog interval at every table
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.pollInterval = d }
}

func WithClock(clock quartz.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithRNG sets the source used for seating and for seeding table decks
func WithRNG(rng *rand.Rand) Option {
	return func(c *Coordinator) { c.rng = rng }
}

// WithTableIDs supplies ids for the tables the tournament creates
func WithTableIDs(next func() int64) Option {
	return func(c *Coordinator) { c.nextTableID = next }
}

// WithTableRegistrar is called with every table session the tournament
// creates, before it starts
func WithTableRegistrar(register func(*session.Session)) Option {
	return func(c *Coordinator) { c.registerTable = register }
}

// WithRecorder stores the finishing order once there is a winner
func WithRecorder(r stats.Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithMaxSeats caps the size of every table
func WithMaxSeats(n int) Option {
	return func(c *Coordinator) { c.maxSeats = n }
}
