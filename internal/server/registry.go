package server

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/lox/pokermatic/internal/game"
	"github.com/lox/pokermatic/internal/session"
	"github.com/lox/pokermatic/internal/tournament"
)

var (
	ErrUnknownTable      = errors.New("unknown table")
	ErrUnknownTournament = errors.New("unknown tournament")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrDuplicateTable    = errors.New("table name already in use")
	ErrAlreadySeated     = errors.New("player already seated elsewhere")
)

// Registry holds every player, table and tournament known to one server
// instance. Ids come from a single monotonic counter.
type Registry struct {
	mu          sync.RWMutex
	lastID      int64
	players     map[int64]*registeredPlayer
	tables      map[int64]*session.Session
	tableNames  map[string]int64
	tournaments map[int64]*tournament.Coordinator
	seats       map[int64]int64
}

type registeredPlayer struct {
	player  *game.Player
	channel session.Notifier
}

func NewRegistry() *Registry {
	return &Registry{
		players:     make(map[int64]*registeredPlayer),
		tables:      make(map[int64]*session.Session),
		tableNames:  make(map[string]int64),
		tournaments: make(map[int64]*tournament.Coordinator),
		seats:       make(map[int64]int64),
	}
}

// NextID returns a new identifier, strictly greater than any returned before
func (r *Registry) NextID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID++
	return r.lastID
}

// AddPlayer stores p with the notifier used to reach them
func (r *Registry) AddPlayer(p *game.Player, ch session.Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[p.ID] = &registeredPlayer{player: p, channel: ch}
}

// RemovePlayer forgets a player. Tables they sit at keep them until they bust.
func (r *Registry) RemovePlayer(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, id)
	delete(r.seats, id)
}

// Seat returns the table or tournament a player last joined
func (r *Registry) Seat(playerID int64) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.seats[playerID]
	return owner, ok
}

// Claim records owner as the player's table or tournament. It only succeeds
// while the player's current claim is still prev, with zero meaning none.
func (r *Registry) Claim(playerID, owner, prev int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := r.seats[playerID]; cur != prev {
		return fmt.Errorf("%w: player %d is at %d", ErrAlreadySeated, playerID, cur)
	}
	r.seats[playerID] = owner
	return nil
}

// Release drops the player's claim if it is still owner
func (r *Registry) Release(playerID, owner int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seats[playerID] == owner {
		delete(r.seats, playerID)
	}
}

// Player looks up a registered player and their notifier
func (r *Registry) Player(id int64) (*game.Player, session.Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rp, ok := r.players[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
	}
	return rp.player, rp.channel, nil
}

// AddTable registers a named table. Tournament tables are registered with an
// empty name.
func (r *Registry) AddTable(name string, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name != "" {
		if _, taken := r.tableNames[name]; taken {
			return fmt.Errorf("%w: %q", ErrDuplicateTable, name)
		}
		r.tableNames[name] = s.ID()
	}
	r.tables[s.ID()] = s
	return nil
}

func (r *Registry) Table(id int64) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.tables[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTable, id)
	}
	return s, nil
}

// TableByName finds a table created with create_table
func (r *Registry) TableByName(name string) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.tableNames[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return r.tables[id], nil
}

// Tables returns every registered table ordered by id
func (r *Registry) Tables() []*session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*session.Session, 0, len(r.tables))
	for _, s := range r.tables {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *session.Session) int { return cmp.Compare(a.ID(), b.ID()) })
	return out
}

func (r *Registry) AddTournament(c *tournament.Coordinator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tournaments[c.ID()] = c
}

func (r *Registry) Tournament(id int64) (*tournament.Coordinator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.tournaments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTournament, id)
	}
	return c, nil
}

// Tournaments returns every registered tournament ordered by id
func (r *Registry) Tournaments() []*tournament.Coordinator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*tournament.Coordinator, 0, len(r.tournaments))
	for _, c := range r.tournaments {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *tournament.Coordinator) int { return cmp.Compare(a.ID(), b.ID()) })
	return out
}
