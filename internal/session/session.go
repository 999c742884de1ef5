// Package session runs a single table: it seats players, drives hands from
// deal to showdown, enforces move deadlines and delivers notifications.
package session

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/pokermatic/internal/game"
	"github.com/lox/pokermatic/internal/metrics"
)

var (
	ErrNotStarted = errors.New("session not started")
	ErrClosed     = errors.New("session closed")
	ErrHalted     = errors.New("session halted")
	ErrNotSeated  = errors.New("player not at this table")
	ErrManaged    = errors.New("seating at this table is managed by its owner")
)

// Observer takes over hand boundaries. Both hooks are called without the
// session lock held, except OnStateSnapshotRequested which must not block.
type Observer interface {
	OnHandFinished(s *Session)
	OnStateSnapshotRequested(s *Session) *TournamentSummary
}

// Seat pairs a player with the notifier used to reach them
type Seat struct {
	Player  *game.Player
	Channel Notifier
}

// Session orchestrates one table
type Session struct {
	id            int64
	logger        *log.Logger
	clock         quartz.Clock
	metrics       *metrics.Collector
	observer      Observer
	tableChannel  Notifier
	timeLimit     time.Duration
	pollInterval  time.Duration
	minPlayers    int
	retryAttempts int
	retryDelay    time.Duration

	mu            sync.Mutex
	table         *game.Table
	channels      map[*game.Player]Notifier
	started       bool
	halted        bool
	closed        bool
	handNumber    int
	moveNumber    int64
	deadline      time.Time
	currentLimit  time.Duration
	expectedChips int
	lastBusted    []*game.Player
	lastResult    *game.Result
	stopWatch     chan struct{}

	out *outbox
}

// New creates a session around table and starts its delivery goroutine
func New(id int64, table *game.Table, opts ...Option) *Session {
	s := &Session{
		id:            id,
		table:         table,
		clock:         quartz.NewReal(),
		logger:        log.New(io.Discard),
		timeLimit:     DefaultTimeLimit,
		pollInterval:  DefaultPollInterval,
		minPlayers:    DefaultMinPlayers,
		retryAttempts: DefaultRetryAttempts,
		retryDelay:    DefaultRetryDelay,
		channels:      make(map[*game.Player]Notifier),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithPrefix("session").With("table", id)
	s.out = newOutbox(s)
	go s.out.run()
	return s
}

func (s *Session) ID() int64 {
	return s.id
}

// Join seats a player if the table has not started, otherwise queues them
// for the next hand. Tables with an observer only take players through
// AddPlayer.
func (s *Session) Join(p *game.Player, ch Notifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.observer != nil {
		return ErrManaged
	}
	if p.Busted() {
		return game.ErrNoChips
	}
	seated := !s.started
	if seated {
		if err := s.table.AddPlayer(p); err != nil {
			return err
		}
	} else {
		s.table.Enqueue(p)
	}
	s.channels[p] = ch
	s.send(ch, TypeTableSubscription, TableSubscription{PlayerID: p.ID, Seated: seated})
	s.logger.Info("Player joined", "player", p.Name, "seated", seated)
	return nil
}

// AddPlayer seats a player immediately. Used by a tournament between hands.
func (s *Session) AddPlayer(p *game.Player, ch Notifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.table.AddPlayer(p); err != nil {
		return err
	}
	s.channels[p] = ch
	s.send(ch, TypeTableSubscription, TableSubscription{PlayerID: p.ID, Seated: true})
	return nil
}

// TakeSeats unseats up to n players starting from seats after the button and
// returns them with their notifiers
func (s *Session) TakeSeats(n, from int) []Seat {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seats []Seat
	for _, p := range s.table.TakeSeats(n, from) {
		seats = append(seats, Seat{Player: p, Channel: s.channels[p]})
		delete(s.channels, p)
	}
	return seats
}

// AdmitQueued seats queued players while there is room
func (s *Session) AdmitQueued() []*game.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.AdmitQueued()
}

// CheckStart starts the session once enough players are seated
func (s *Session) CheckStart() (bool, error) {
	s.mu.Lock()
	ready := !s.started && !s.closed && s.table.SeatCount() >= s.minPlayers
	s.mu.Unlock()

	if !ready {
		return false, nil
	}
	return true, s.Start()
}

// Start arms the watchdog and deals the first hand
func (s *Session) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.table.RandomizeButton()
	s.startWatchdogLocked()
	s.metrics.TableStarted()
	s.logger.Info("Session started", "players", s.table.SeatCount())

	finished, err := s.startHandLocked()
	s.mu.Unlock()

	if finished {
		s.handFinished()
	}
	return err
}

// StartHand deals the next hand. Observers call this once they have finished
// rearranging the table.
func (s *Session) StartHand() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	finished, err := s.startHandLocked()
	s.mu.Unlock()

	if finished {
		s.handFinished()
	}
	return err
}

// TakeAction applies a player's move
func (s *Session) TakeAction(p *game.Player, m game.Move) error {
	s.mu.Lock()
	finished, err := s.actLocked(p, m)
	s.mu.Unlock()

	if finished {
		s.handFinished()
	}
	return err
}

// Stop halts the watchdog and marks the table idle. Seated players stay.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Close stops the session for good and drops undelivered messages
func (s *Session) Close() {
	s.mu.Lock()
	s.stopLocked()
	s.closed = true
	s.mu.Unlock()
	s.out.close()
}

func (s *Session) SetBlinds(smallBlind, ante int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.SetBlinds(smallBlind, ante)
}

func (s *Session) Seats() []*game.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Seats()
}

func (s *Session) SeatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.SeatCount()
}

// Channel returns the notifier registered for a player
func (s *Session) Channel(p *game.Player) Notifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels[p]
}

// Player finds a seated or queued player by id
func (s *Session) Player(id int64) (*game.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.channels {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (s *Session) MoveNumber() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveNumber
}

func (s *Session) HandNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handNumber
}

func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Session) Halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// Deadline returns when the acting player will be folded, zero when unarmed
func (s *Session) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline
}

// Bankroll returns a seated or queued player's chips, read under the table
// lock
func (s *Session) Bankroll(p *game.Player) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[p]; !ok {
		return 0, false
	}
	return p.Bankroll(), true
}

// LastBusted returns the players removed for lack of chips after the most
// recent hand
func (s *Session) LastBusted() []*game.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*game.Player(nil), s.lastBusted...)
}

// LastResult returns the outcome of the most recent hand
func (s *Session) LastResult() (game.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastResult == nil {
		return game.Result{}, false
	}
	return *s.lastResult, true
}

// State returns the public table snapshot
func (s *Session) State() game.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.State(false)
}

// ChipCount returns every chip at the table, bankrolls and pot
func (s *Session) ChipCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.TotalChips()
}

func (s *Session) startHandLocked() (bool, error) {
	if s.halted {
		return false, ErrHalted
	}
	s.table.AdmitQueued()
	s.lastBusted = nil

	if s.table.SeatCount() < 2 {
		return false, game.ErrInsufficientPlayers
	}

	s.expectedChips = s.table.TotalChips()
	s.handNumber++
	if err := s.table.Deal(); err != nil {
		return false, err
	}
	if err := s.checkConservationLocked(); err != nil {
		return false, err
	}
	s.logger.Debug("Hand dealt", "hand", s.handNumber, "players", s.table.SeatCount())

	for _, p := range s.table.Seats() {
		s.send(s.channels[p], TypeHandDealt, HandDealt{
			HandNumber: s.handNumber,
			Cards:      s.table.HoleCards(p),
		})
	}

	if s.table.BettingComplete() {
		return s.nextRoundLocked()
	}
	s.armLocked(s.timeLimit)
	s.broadcastLocked(false)
	return false, nil
}

func (s *Session) actLocked(p *game.Player, m game.Move) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	if s.halted {
		return false, ErrHalted
	}
	if !s.started {
		return false, ErrNotStarted
	}
	ch, ok := s.channels[p]
	if !ok {
		return false, ErrNotSeated
	}

	if err := s.table.Act(p, m); err != nil {
		s.metrics.RuleViolation()
		s.logger.Warn("Rejected action", "player", p.Name, "action", m.Action, "amount", m.Amount, "error", err)
		s.send(ch, TypeError, ErrorNotice{Message: err.Error()})
		if !errors.Is(err, game.ErrOutOfTurn) {
			s.armLocked(s.currentLimit / 2)
		}
		s.broadcastLocked(false)
		return false, err
	}

	s.deadline = time.Time{}
	s.metrics.Action(string(m.Action))
	if err := s.checkConservationLocked(); err != nil {
		return false, err
	}

	if s.table.BettingComplete() {
		return s.nextRoundLocked()
	}
	s.armLocked(s.timeLimit)
	s.broadcastLocked(false)
	return false, nil
}

// nextRoundLocked settles the hand or deals streets until someone has a
// decision to make
func (s *Session) nextRoundLocked() (bool, error) {
	for {
		if s.table.HandOver() {
			return true, s.finishHandLocked()
		}

		if err := s.table.Deal(); err != nil {
			return false, err
		}
		if err := s.checkConservationLocked(); err != nil {
			return false, err
		}
		if s.table.BettingComplete() {
			s.broadcastLocked(true)
			continue
		}
		s.armLocked(s.timeLimit)
		s.broadcastLocked(false)
		return false, nil
	}
}

func (s *Session) finishHandLocked() error {
	s.deadline = time.Time{}
	result, err := s.table.Showdown()
	if err != nil {
		if errors.Is(err, game.ErrChipConservation) {
			s.haltLocked(err)
			return fmt.Errorf("%w: %w", ErrHalted, err)
		}
		return err
	}
	if err := s.checkConservationLocked(); err != nil {
		return err
	}

	s.lastResult = &result
	s.broadcastLocked(true)
	s.publish(TypeWinner, winnerFrom(s.handNumber, result))
	s.lastBusted = s.table.RemoveBusted()
	for _, p := range s.lastBusted {
		delete(s.channels, p)
		s.logger.Info("Player busted", "player", p.Name, "hand", s.handNumber)
	}
	s.metrics.HandPlayed()
	return nil
}

// handFinished runs outside the lock. Without an observer the session keeps
// dealing while two or more players remain.
func (s *Session) handFinished() {
	if s.observer != nil {
		s.observer.OnHandFinished(s)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.closed && s.started {
		s.table.AdmitQueued()
		if s.table.SeatCount() < 2 {
			s.logger.Info("Not enough players, table idle", "players", s.table.SeatCount())
			s.stopLocked()
			return
		}
		finished, err := s.startHandLocked()
		if err != nil {
			s.logger.Error("Failed to start hand", "error", err)
			s.stopLocked()
			return
		}
		if !finished {
			return
		}
	}
}

func (s *Session) armLocked(limit time.Duration) {
	s.moveNumber++
	s.currentLimit = limit
	s.deadline = s.clock.Now().Add(limit)
}

func (s *Session) checkConservationLocked() error {
	if err := s.table.CheckConservation(s.expectedChips); err != nil {
		s.haltLocked(err)
		return fmt.Errorf("%w: %w", ErrHalted, err)
	}
	return nil
}

func (s *Session) haltLocked(err error) {
	s.logger.Error("Halting session", "error", err, "hand", s.handNumber)
	s.halted = true
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.stopWatch != nil {
		close(s.stopWatch)
		s.stopWatch = nil
	}
	if s.started {
		s.metrics.TableStopped()
	}
	s.started = false
	s.deadline = time.Time{}
}

func (s *Session) broadcastLocked(noActive bool) {
	payload := GameState{
		HandNumber:       s.handNumber,
		MoveNumber:       s.moveNumber,
		TimeLimitSeconds: int(s.currentLimit / time.Second),
		State:            s.table.State(noActive),
	}
	if s.observer != nil {
		payload.Tournament = s.observer.OnStateSnapshotRequested(s)
	}
	s.publish(TypeGameState, payload)
}

// publish sends to the table channel, or to every player when there is none
func (s *Session) publish(t MessageType, payload any) {
	if s.tableChannel != nil {
		s.send(s.tableChannel, t, payload)
		return
	}
	for _, p := range s.table.Seats() {
		s.send(s.channels[p], t, payload)
	}
	for _, p := range s.table.Queued() {
		s.send(s.channels[p], t, payload)
	}
}

func (s *Session) send(to Notifier, t MessageType, payload any) {
	if to == nil {
		return
	}
	s.out.enqueue(to, Message{Type: t, TableID: s.id, Payload: payload})
}
