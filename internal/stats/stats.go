// Package stats keeps a JSON file of tournament finishing positions and
// derives per-bot summaries from it.
package stats

import (
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/pokermatic/internal/fileutil"
)

// Result is a completed tournament. FinishOrder lists player names from the
// first eliminated to the winner.
type Result struct {
	TournamentID int64
	Name         string
	FinishOrder  []string
}

// Recorder stores completed tournaments
type Recorder interface {
	Record(r Result) error
}

// Entry is one finish for one bot. Finish counts up from 1 for the first
// player out; the winner's finish equals the field size.
type Entry struct {
	Tournament string `json:"tournament"`
	Finish     int    `json:"finish"`
}

// Tournament is the stored record of one event
type Tournament struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	TotalPlayers int       `json:"total_players"`
	AllPlayers   []string  `json:"all_players"`
	Date         time.Time `json:"date"`
}

type document struct {
	Bots        map[string][]Entry    `json:"bots"`
	Tournaments map[string]Tournament `json:"tournaments"`
}

// Summary aggregates a bot's results. Percentiles are the share of the field
// that finished ahead, so lower is better.
type Summary struct {
	Name              string
	Tournaments       int
	Wins              int
	AveragePercentile float64
	StdDev            float64
}

// Store is a Recorder backed by a JSON file
type Store struct {
	path  string
	clock quartz.Clock
	mu    sync.Mutex
}

// NewStore returns a store for path. The file is created on first Record.
func NewStore(path string, clock quartz.Clock) *Store {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Store{path: path, clock: clock}
}

// Record appends a tournament and every player's finish
func (s *Store) Record(r Result) error {
	if len(r.FinishOrder) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	key := strconv.Itoa(len(doc.Tournaments) + 1)
	doc.Tournaments[key] = Tournament{
		ID:           r.TournamentID,
		Name:         r.Name,
		TotalPlayers: len(r.FinishOrder),
		AllPlayers:   slices.Clone(r.FinishOrder),
		Date:         s.clock.Now().UTC(),
	}
	for i, name := range r.FinishOrder {
		bot := BotName(name)
		doc.Bots[bot] = append(doc.Bots[bot], Entry{Tournament: key, Finish: i + 1})
	}

	if err := fileutil.WriteJSONAtomic(s.path, doc, 0o644); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

// Summaries returns one summary per bot, sorted by name
func (s *Store) Summaries() ([]Summary, error) {
	s.mu.Lock()
	doc, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(doc.Bots))
	for name := range doc.Bots {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]Summary, 0, len(names))
	for _, name := range names {
		sum := Summary{Name: name}
		var pcts []float64
		for _, e := range doc.Bots[name] {
			t, ok := doc.Tournaments[e.Tournament]
			if !ok || t.TotalPlayers == 0 {
				continue
			}
			sum.Tournaments++
			if e.Finish == t.TotalPlayers {
				sum.Wins++
			}
			pcts = append(pcts, float64(t.TotalPlayers-e.Finish)/float64(t.TotalPlayers)*100)
		}
		sum.AveragePercentile, sum.StdDev = meanStdDev(pcts)
		out = append(out, sum)
	}
	return out, nil
}

func (s *Store) load() (*document, error) {
	doc := &document{}
	if _, err := fileutil.ReadJSON(s.path, doc); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	if doc.Bots == nil {
		doc.Bots = make(map[string][]Entry)
	}
	if doc.Tournaments == nil {
		doc.Tournaments = make(map[string]Tournament)
	}
	return doc, nil
}

// BotName groups numbered instances such as "steady 3" under "steady"
func BotName(player string) string {
	if fields := strings.Fields(player); len(fields) > 0 {
		return fields[0]
	}
	return player
}

// meanStdDev returns the mean and sample standard deviation
func meanStdDev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)-1))
}
