// Package tournament runs a multi-table freezeout: it seats registered
// players across tables, raises blinds on a schedule, moves players as
// tables shrink and records the finishing order.
package tournament

import (
	"context"
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/pokermatic/internal/game"
	"github.com/lox/pokermatic/internal/metrics"
	"github.com/lox/pokermatic/internal/randutil"
	"github.com/lox/pokermatic/internal/session"
	"github.com/lox/pokermatic/internal/stats"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAlreadyStarted = errors.New("tournament already started")
	ErrNotRunning     = errors.New("tournament not running")
)

// State is the tournament lifecycle
type State int

const (
	Pending State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Coordinator owns every table of one tournament. It implements
// session.Observer for those tables.
type Coordinator struct {
	id            int64
	name          string
	logger        *log.Logger
	clock         quartz.Clock
	rng           *rand.Rand
	metrics       *metrics.Collector
	recorder      stats.Recorder
	nextTableID   func() int64
	registerTable func(*session.Session)
	startTime     time.Time
	smallBlind    int
	levelDuration time.Duration
	startingChips int
	timeLimit     time.Duration
	pollInterval  time.Duration
	maxSeats      int

	mu          sync.Mutex
	state       State
	startedAt   time.Time
	players     []*game.Player
	channels    map[*game.Player]session.Notifier
	tables      []*session.Session
	counts      map[*session.Session]int
	pending     map[*session.Session][]session.Seat
	idle        map[*session.Session]bool
	eliminated  []*game.Player
	winner      *game.Player
	startTimer  *quartz.Timer
	done        chan struct{}
	tableIDSeed int64

	summary atomic.Pointer[session.TournamentSummary]
}

var _ session.Observer = (*Coordinator)(nil)

// New creates a pending tournament
func New(id int64, opts ...Option) *Coordinator {
	c := &Coordinator{
		id:            id,
		logger:        log.New(io.Discard),
		clock:         quartz.NewReal(),
		smallBlind:    DefaultSmallBlind,
		levelDuration: DefaultLevelDuration,
		startingChips: DefaultStartingChips,
		timeLimit:     session.DefaultTimeLimit,
		pollInterval:  session.DefaultPollInterval,
		maxSeats:      game.DefaultMaxSeats,
		channels:      make(map[*game.Player]session.Notifier),
		counts:        make(map[*session.Session]int),
		pending:       make(map[*session.Session][]session.Seat),
		idle:          make(map[*session.Session]bool),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.name == "" {
		c.name = fmt.Sprintf("Tourney %d", id)
	}
	if c.rng == nil {
		c.rng = randutil.New(randutil.Seed(0))
	}
	if c.startTime.IsZero() {
		c.startTime = c.clock.Now().Add(DefaultStartDelay)
	}
	if c.nextTableID == nil {
		c.nextTableID = func() int64 {
			c.tableIDSeed++
			return c.tableIDSeed
		}
	}
	c.logger = c.logger.WithPrefix("tournament").With("tournament", c.name)
	c.metrics.TournamentState("", Pending.String())
	c.publishSummaryLocked()
	return c
}

func (c *Coordinator) ID() int64            { return c.id }
func (c *Coordinator) Name() string         { return c.name }
func (c *Coordinator) StartTime() time.Time { return c.startTime }

// Done is closed once the tournament has a winner
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Join registers a player. Registration closes when the tournament starts.
func (c *Coordinator) Join(p *game.Player, ch session.Notifier) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Pending {
		c.logger.Warn("Rejected late registration", "player", p.Name)
		return ErrAlreadyStarted
	}
	if _, ok := c.channels[p]; !ok {
		c.players = append(c.players, p)
	}
	c.channels[p] = ch
	c.publishSummaryLocked()
	c.logger.Info("Player registered", "player", p.Name, "players", len(c.players))
	return nil
}

// Schedule starts the tournament at its start time
func (c *Coordinator) Schedule() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.startTimer != nil || c.state != Pending {
		return
	}
	c.startTimer = c.clock.AfterFunc(c.clock.Until(c.startTime), func() {
		if err := c.StartTournament(); err != nil && !errors.Is(err, ErrAlreadyStarted) {
			c.logger.Error("Failed to start tournament", "error", err)
		}
	}, "tournament", "start")
	c.logger.Info("Tournament scheduled", "start", c.startTime)
}

// StartTournament hands out starting chips, seats everyone and starts every
// table concurrently
func (c *Coordinator) StartTournament() error {
	c.mu.Lock()
	if c.state != Pending {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	if c.startTimer != nil {
		c.startTimer.Stop()
	}
	c.setStateLocked(Running)
	c.startedAt = c.clock.Now()

	if len(c.players) < 2 {
		c.logger.Warn("Not enough players to play", "players", len(c.players))
		c.checkForWinnerLocked()
		result := c.finishLocked()
		c.mu.Unlock()
		c.record(result)
		return nil
	}

	for _, p := range c.players {
		p.SetBankroll(c.startingChips)
	}

	queue := slices.Clone(c.players)
	c.rng.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })

	sizes := ChooseTableSizes(len(queue), c.maxSeats)
	c.logger.Info("Seating players", "players", len(queue), "tables", sizes)

	sb, ante := Blinds(c.smallBlind, 0)
	for _, size := range sizes {
		s := c.newTableLocked(sb, ante)
		for _, p := range queue[:size] {
			if err := s.AddPlayer(p, c.channels[p]); err != nil {
				c.mu.Unlock()
				return fmt.Errorf("seat %s: %w", p, err)
			}
		}
		queue = queue[size:]
		c.counts[s] = size
	}
	c.publishSummaryLocked()
	tables := slices.Clone(c.tables)
	c.mu.Unlock()

	var g errgroup.Group
	for _, s := range tables {
		g.Go(func() error {
			if err := s.Start(); err != nil {
				return fmt.Errorf("start table %d: %w", s.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Coordinator) newTableLocked(sb, ante int) *session.Session {
	id := c.nextTableID()
	table := game.NewTable(randutil.New(c.rng.Int64()), game.TableConfig{
		SmallBlind: sb,
		Ante:       ante,
		MaxSeats:   c.maxSeats,
	})
	s := session.New(id, table,
		session.WithClock(c.clock),
		session.WithLogger(c.logger),
		session.WithTimeLimit(c.timeLimit),
		session.WithPollInterval(c.pollInterval),
		session.WithObserver(c),
		session.WithMetrics(c.metrics),
	)
	if c.registerTable != nil {
		c.registerTable(s)
	}
	c.tables = append(c.tables, s)
	return s
}

// OnHandFinished settles eliminations, moves players between tables and
// decides whether the table plays another hand
func (c *Coordinator) OnHandFinished(s *session.Session) {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return
	}

	s.AdmitQueued()
	c.recordEliminationsLocked(s.LastBusted())
	c.admitPendingLocked(s)
	c.counts[s] = s.SeatCount()

	if !c.closeTableIfPossibleLocked(s) {
		c.rebalanceLocked(s)
	}
	c.checkForWinnerLocked()

	var start []*session.Session
	if _, open := c.counts[s]; open && c.state == Running {
		sb, ante := c.blindsLocked()
		s.SetBlinds(sb, ante)
		if s.SeatCount() > 1 {
			start = append(start, s)
			delete(c.idle, s)
		} else {
			c.idle[s] = true
		}
	}
	if c.state == Running {
		start = append(start, c.wakeIdleTablesLocked()...)
	}

	var result *stats.Result
	if c.state == Finished {
		result = c.finishLocked()
	}
	c.publishSummaryLocked()
	c.mu.Unlock()

	c.record(result)
	for _, t := range start {
		go func() {
			if err := t.StartHand(); err != nil {
				c.logger.Error("Failed to start hand", "table", t.ID(), "error", err)
			}
		}()
	}
}

// OnStateSnapshotRequested returns the last published summary without taking
// the coordinator lock
func (c *Coordinator) OnStateSnapshotRequested(*session.Session) *session.TournamentSummary {
	return c.summary.Load()
}

func (c *Coordinator) recordEliminationsLocked(busted []*game.Player) {
	n := 0
	for _, p := range busted {
		if _, entrant := c.channels[p]; !entrant || slices.Contains(c.eliminated, p) {
			c.logger.Warn("Ignoring bust of a player not in the tournament", "player", p.Name)
			continue
		}
		n++
		c.eliminated = append(c.eliminated, p)
		c.logger.Info("Player eliminated", "player", p.Name,
			"place", len(c.players)-len(c.eliminated)+1, "of", len(c.players))
	}
	c.metrics.Eliminated(n)
}

func (c *Coordinator) admitPendingLocked(s *session.Session) {
	for _, seat := range c.pending[s] {
		if err := s.AddPlayer(seat.Player, seat.Channel); err != nil {
			c.logger.Error("Failed to seat moved player", "player", seat.Player.Name, "table", s.ID(), "error", err)
			continue
		}
		c.logger.Debug("Seated moved player", "player", seat.Player.Name, "table", s.ID())
	}
	delete(c.pending, s)
}

// closeTableIfPossibleLocked breaks up s when the other tables have room for
// all of its players
func (c *Coordinator) closeTableIfPossibleLocked(s *session.Session) bool {
	others := c.otherTablesLocked(s)
	if len(others) == 0 {
		return false
	}

	available := 0
	for _, other := range others {
		available += c.maxSeats - c.counts[other]
	}
	if available < c.counts[s] {
		return false
	}

	c.logger.Info("Closing table", "table", s.ID(), "players", c.counts[s], "open_seats", available)
	moving := s.TakeSeats(s.SeatCount(), 1)
	for _, other := range others {
		if len(moving) == 0 {
			break
		}
		room := min(c.maxSeats-c.counts[other], len(moving))
		c.pending[other] = append(c.pending[other], moving[:room]...)
		c.counts[other] += room
		moving = moving[room:]
	}

	s.Stop()
	delete(c.counts, s)
	delete(c.idle, s)
	return true
}

// rebalanceLocked moves players from s, one at a time, to any table with at
// least two fewer players
func (c *Coordinator) rebalanceLocked(s *session.Session) {
	for _, other := range c.otherTablesLocked(s) {
		for c.counts[s] > c.counts[other]+1 {
			moved := s.TakeSeats(1, 3)
			if len(moved) == 0 {
				return
			}
			c.logger.Info("Moving player", "player", moved[0].Player.Name, "from", s.ID(), "to", other.ID())
			c.pending[other] = append(c.pending[other], moved...)
			c.counts[s]--
			c.counts[other]++
		}
	}
}

// wakeIdleTablesLocked seats pending players at tables that have no hand
// running and returns the ones that can deal again
func (c *Coordinator) wakeIdleTablesLocked() []*session.Session {
	var wake []*session.Session
	for _, t := range c.tables {
		if !c.idle[t] || len(c.pending[t]) == 0 {
			continue
		}
		c.admitPendingLocked(t)
		c.counts[t] = t.SeatCount()
		sb, ante := c.blindsLocked()
		t.SetBlinds(sb, ante)
		if t.SeatCount() > 1 {
			delete(c.idle, t)
			wake = append(wake, t)
		}
	}
	return wake
}

func (c *Coordinator) otherTablesLocked(s *session.Session) []*session.Session {
	var others []*session.Session
	for _, t := range c.tables {
		if _, open := c.counts[t]; open && t != s {
			others = append(others, t)
		}
	}
	return others
}

func (c *Coordinator) checkForWinnerLocked() {
	if c.state != Running || len(c.players)-len(c.eliminated) > 1 {
		return
	}
	for _, p := range c.players {
		if !slices.Contains(c.eliminated, p) {
			c.winner = p
			break
		}
	}
	c.setStateLocked(Finished)
}

// finishLocked stops every table and returns the result to record
func (c *Coordinator) finishLocked() *stats.Result {
	for _, t := range c.tables {
		t.Stop()
	}
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}

	order := make([]string, 0, len(c.players))
	for _, p := range c.eliminated {
		order = append(order, p.Name)
	}
	if c.winner != nil {
		order = append(order, c.winner.Name)
		c.logger.Info("Tournament won", "winner", c.winner.Name)
	}
	for i, p := range c.finishOrderLocked() {
		c.logger.Info("Final standing", "place", i+2, "player", p.Name)
	}
	return &stats.Result{TournamentID: c.id, Name: c.name, FinishOrder: order}
}

func (c *Coordinator) record(result *stats.Result) {
	if result == nil || c.recorder == nil {
		return
	}
	if err := c.recorder.Record(*result); err != nil {
		c.logger.Error("Failed to record results", "error", err)
	}
}

func (c *Coordinator) setStateLocked(s State) {
	c.metrics.TournamentState(c.state.String(), s.String())
	c.state = s
}

func (c *Coordinator) levelLocked() int {
	if c.startedAt.IsZero() {
		return 0
	}
	return Level(c.clock.Since(c.startedAt), c.levelDuration)
}

func (c *Coordinator) blindsLocked() (int, int) {
	return Blinds(c.smallBlind, c.levelLocked())
}

func (c *Coordinator) publishSummaryLocked() {
	sum := c.summaryLocked()
	c.summary.Store(&sum)
}

func (c *Coordinator) summaryLocked() session.TournamentSummary {
	level := c.levelLocked()
	sb, ante := Blinds(c.smallBlind, level)
	finished := make([]string, 0, len(c.eliminated))
	for _, p := range c.finishOrderLocked() {
		finished = append(finished, p.Name)
	}
	return session.TournamentSummary{
		TournamentID: c.id,
		Name:         c.name,
		State:        c.state.String(),
		TotalPlayers: len(c.players),
		PlayersLeft:  len(c.players) - len(c.eliminated),
		Finished:     finished,
		Tables:       len(c.counts),
		Level:        level,
		SmallBlind:   sb,
		Ante:         ante,
	}
}

// Summary returns a fresh tournament overview
func (c *Coordinator) Summary() session.TournamentSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summaryLocked()
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FinishOrder returns eliminated players, most recent elimination first
func (c *Coordinator) FinishOrder() []*game.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finishOrderLocked()
}

// finishOrderLocked is FinishOrder for callers already holding the lock
func (c *Coordinator) finishOrderLocked() []*game.Player {
	out := slices.Clone(c.eliminated)
	slices.Reverse(out)
	return out
}

// Holds reports whether p is registered and still has a stake in the
// tournament
func (c *Coordinator) Holds(p *game.Player) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, entrant := c.channels[p]; !entrant || c.state == Finished {
		return false
	}
	return !slices.Contains(c.eliminated, p)
}

// Bankroll returns an entrant's chips, read under the lock of whichever
// table holds them
func (c *Coordinator) Bankroll(p *game.Player) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tables {
		if _, open := c.counts[t]; !open {
			continue
		}
		if chips, ok := t.Bankroll(p); ok {
			return chips
		}
	}
	return p.Bankroll()
}

func (c *Coordinator) Winner() *game.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.winner
}

func (c *Coordinator) Players() []*game.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.players)
}

// Tables returns the sessions still in play
func (c *Coordinator) Tables() []*session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*session.Session
	for _, t := range c.tables {
		if _, open := c.counts[t]; open {
			out = append(out, t)
		}
	}
	return out
}

// Pending returns how many moved players are waiting for a seat at each open
// table, keyed by table id
func (c *Coordinator) Pending() map[int64]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int64]int, len(c.pending))
	for t, seats := range c.pending {
		out[t.ID()] = len(seats)
	}
	return out
}

// Wait blocks until the tournament finishes or ctx is done
func (c *Coordinator) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops every table and releases their delivery goroutines
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.startTimer != nil {
		c.startTimer.Stop()
	}
	tables := slices.Clone(c.tables)
	c.mu.Unlock()

	for _, t := range tables {
		t.Close()
	}
}
