package session

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/pokermatic/internal/metrics"
)

const (
	DefaultTimeLimit     = 30 * time.Second
	DefaultPollInterval  = 5 * time.Second
	DefaultMinPlayers    = 2
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 100 * time.Millisecond
)

// Option configures a Session
type Option func(*Session)

func WithClock(clock quartz.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithTimeLimit sets how long a player has to act before being folded
func WithTimeLimit(d time.Duration) Option {
	return func(s *Session) { s.timeLimit = d }
}

// WithPollInterval sets how often the watchdog checks the deadline
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) { s.pollInterval = d }
}

// WithMinPlayers sets how many seated players CheckStart waits for
func WithMinPlayers(n int) Option {
	return func(s *Session) { s.minPlayers = n }
}

// WithObserver hands control of hand boundaries to an owner such as a
// tournament
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

// WithTableChannel routes public broadcasts to a single table-wide notifier
// instead of fanning out to every player
func WithTableChannel(n Notifier) Option {
	return func(s *Session) { s.tableChannel = n }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Session) { s.metrics = m }
}

// WithRetry bounds redelivery of a failed publish
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Session) {
		s.retryAttempts = attempts
		s.retryDelay = delay
	}
}
