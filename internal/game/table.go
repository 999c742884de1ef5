package game

import (
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/lox/pokermatic/internal/deck"
)

// Phase is the street a hand is on
type Phase int

const (
	NewHand Phase = iota
	PreFlop
	Flop
	Turn
	River
)

func (p Phase) String() string {
	switch p {
	case NewHand:
		return "new_hand"
	case PreFlop:
		return "pre_flop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	default:
		return "unknown"
	}
}

// DefaultMaxSeats is the largest table a tournament builds
const DefaultMaxSeats = 10

// TableConfig holds table creation parameters
type TableConfig struct {
	SmallBlind int
	Ante       int
	MaxSeats   int
	Decks      int
}

// Table is a single hold'em table
type Table struct {
	rng  *rand.Rand
	deck *deck.Deck

	seats    []*Player
	queue    []*Player
	maxSeats int
	button   int

	smallBlind int
	ante       int

	phase Phase
	board []deck.Card
	hands map[*Player][]deck.Card

	// pot holds chips from completed streets and folded round bets. bets
	// holds the current street's contributions, committed the whole hand's.
	pot       int
	bets      map[*Player]int
	committed map[*Player]int
	caps      map[*Player]int

	currentBet int
	minRaise   int
	acting     int
	acted      map[*Player]bool

	handHistory  []ActionRecord
	roundHistory []ActionRecord
}

// NewTable creates an empty table
func NewTable(rng *rand.Rand, cfg TableConfig) *Table {
	if cfg.MaxSeats <= 0 {
		cfg.MaxSeats = DefaultMaxSeats
	}
	return &Table{
		rng:        rng,
		deck:       deck.NewDeck(rng, cfg.Decks),
		maxSeats:   cfg.MaxSeats,
		smallBlind: cfg.SmallBlind,
		ante:       cfg.Ante,
		hands:      make(map[*Player][]deck.Card),
		bets:       make(map[*Player]int),
		committed:  make(map[*Player]int),
		caps:       make(map[*Player]int),
		acted:      make(map[*Player]bool),
		acting:     -1,
	}
}

// AddPlayer seats a player at the end of the seat list
func (t *Table) AddPlayer(p *Player) error {
	if p.Busted() {
		return ErrNoChips
	}
	if len(t.seats) >= t.maxSeats {
		return ErrTableFull
	}
	if slices.Contains(t.seats, p) {
		return nil
	}
	t.seats = append(t.seats, p)
	return nil
}

// RemovePlayer unseats a player between hands
func (t *Table) RemovePlayer(p *Player) error {
	if t.phase != NewHand {
		return ErrHandInProgress
	}
	idx := slices.Index(t.seats, p)
	if idx < 0 {
		return fmt.Errorf("player %s is not seated", p)
	}
	t.removeSeat(idx)
	return nil
}

func (t *Table) removeSeat(idx int) {
	t.seats = slices.Delete(t.seats, idx, idx+1)
	if idx < t.button {
		t.button--
	}
	if len(t.seats) == 0 || t.button >= len(t.seats) {
		t.button = 0
	}
}

// Enqueue adds a player to the join queue for the next hand
func (t *Table) Enqueue(p *Player) {
	if slices.Contains(t.queue, p) || slices.Contains(t.seats, p) {
		return
	}
	t.queue = append(t.queue, p)
}

// Queued returns the players waiting for a seat
func (t *Table) Queued() []*Player {
	return slices.Clone(t.queue)
}

// AdmitQueued seats queued players while seats are free. Queued players
// without chips are dropped. It is a no-op while a hand is in progress.
func (t *Table) AdmitQueued() []*Player {
	if t.phase != NewHand {
		return nil
	}
	var admitted []*Player
	for len(t.queue) > 0 && len(t.seats) < t.maxSeats {
		p := t.queue[0]
		t.queue = t.queue[1:]
		if p.Busted() {
			continue
		}
		t.seats = append(t.seats, p)
		admitted = append(admitted, p)
	}
	return admitted
}

// RemoveBusted unseats every player without chips and returns them in seat order
func (t *Table) RemoveBusted() []*Player {
	if t.phase != NewHand {
		return nil
	}
	var busted []*Player
	for i := 0; i < len(t.seats); {
		if t.seats[i].Busted() {
			busted = append(busted, t.seats[i])
			t.removeSeat(i)
			continue
		}
		i++
	}
	return busted
}

// TakeSeats unseats up to n players, each taken from offset seats after the
// button, and returns them. Only valid between hands.
func (t *Table) TakeSeats(n, offset int) []*Player {
	if t.phase != NewHand {
		return nil
	}
	var taken []*Player
	for i := 0; i < n && len(t.seats) > 0; i++ {
		idx := t.seatIndex(t.button + offset)
		taken = append(taken, t.seats[idx])
		t.removeSeat(idx)
	}
	return taken
}

// RandomizeSeats shuffles the seating order
func (t *Table) RandomizeSeats() {
	t.rng.Shuffle(len(t.seats), func(i, j int) {
		t.seats[i], t.seats[j] = t.seats[j], t.seats[i]
	})
}

// RandomizeButton moves the button to a random seat
func (t *Table) RandomizeButton() {
	if len(t.seats) > 0 {
		t.button = t.rng.IntN(len(t.seats))
	}
}

// SetBlinds updates the small blind and ante for the next hand
func (t *Table) SetBlinds(smallBlind, ante int) {
	t.smallBlind = smallBlind
	t.ante = ante
}

func (t *Table) SmallBlind() int    { return t.smallBlind }
func (t *Table) BigBlind() int      { return 2 * t.smallBlind }
func (t *Table) Ante() int          { return t.ante }
func (t *Table) Phase() Phase       { return t.phase }
func (t *Table) Button() int        { return t.button }
func (t *Table) CurrentBet() int    { return t.currentBet }
func (t *Table) MinRaise() int      { return t.minRaise }
func (t *Table) SeatCount() int     { return len(t.seats) }
func (t *Table) MaxSeats() int      { return t.maxSeats }
func (t *Table) Board() []deck.Card { return slices.Clone(t.board) }

// Seats returns the seated players in seat order
func (t *Table) Seats() []*Player {
	return slices.Clone(t.seats)
}

// Pot returns the chips swept from completed streets and folded players
func (t *Table) Pot() int {
	return t.pot
}

// RoundBets returns the sum of current-street contributions not yet swept
func (t *Table) RoundBets() int {
	total := 0
	for _, n := range t.bets {
		total += n
	}
	return total
}

// TotalPot is everything in the middle
func (t *Table) TotalPot() int {
	return t.pot + t.RoundBets()
}

// RoundBet returns what a player has put in on the current street
func (t *Table) RoundBet(p *Player) int {
	return t.bets[p]
}

// Committed returns what a player has put in over the whole hand
func (t *Table) Committed(p *Player) int {
	return t.committed[p]
}

// Cap returns the most an all-in player can win and whether they are capped
func (t *Table) Cap(p *Player) (int, bool) {
	c, ok := t.caps[p]
	return c, ok
}

// HoleCards returns a player's cards, nil when not in the hand
func (t *Table) HoleCards(p *Player) []deck.Card {
	return slices.Clone(t.hands[p])
}

// InHand reports whether a player still holds cards
func (t *Table) InHand(p *Player) bool {
	_, ok := t.hands[p]
	return ok
}

// PlayersInHand returns players holding cards in seat order
func (t *Table) PlayersInHand() []*Player {
	var out []*Player
	for _, p := range t.seats {
		if t.InHand(p) {
			out = append(out, p)
		}
	}
	return out
}

// PlayerPosition returns the seat index of a player relative to the button,
// or -1 when not seated
func (t *Table) PlayerPosition(p *Player) int {
	idx := slices.Index(t.seats, p)
	if idx < 0 {
		return -1
	}
	return (idx - t.button + len(t.seats)) % len(t.seats)
}

// PlayerAt returns the player pos seats after the button
func (t *Table) PlayerAt(pos int) *Player {
	if len(t.seats) == 0 {
		return nil
	}
	return t.seats[t.seatIndex(t.button+pos)]
}

// ActingPlayer returns the player to act, nil when nobody can act
func (t *Table) ActingPlayer() *Player {
	if t.acting < 0 || t.acting >= len(t.seats) || t.phase == NewHand {
		return nil
	}
	return t.seats[t.acting]
}

// TotalChips returns bankrolls plus everything in the middle
func (t *Table) TotalChips() int {
	total := t.TotalPot()
	for _, p := range t.seats {
		total += p.Bankroll()
	}
	return total
}

// CheckConservation verifies that no chips were created or destroyed
func (t *Table) CheckConservation(expected int) error {
	if actual := t.TotalChips(); actual != expected {
		return fmt.Errorf("%w: expected %d total chips, found %d (difference %d)",
			ErrChipConservation, expected, actual, actual-expected)
	}
	return nil
}

func (t *Table) seatIndex(i int) int {
	n := len(t.seats)
	return ((i % n) + n) % n
}

// eligible players hold cards and still have chips to act with
func (t *Table) eligible(p *Player) bool {
	_, capped := t.caps[p]
	return t.InHand(p) && !capped
}

// firstEligibleFrom returns the first eligible seat at or after start, or -1
func (t *Table) firstEligibleFrom(start int) int {
	for i := 0; i < len(t.seats); i++ {
		idx := t.seatIndex(start + i)
		if t.eligible(t.seats[idx]) {
			return idx
		}
	}
	return -1
}

// Deal advances the hand by one street. From NewHand it posts antes and
// blinds and deals hole cards; from later streets it sweeps the round bets,
// burns a card and turns the board.
func (t *Table) Deal() error {
	switch t.phase {
	case NewHand:
		return t.dealHand()
	case PreFlop:
		return t.dealStreet(Flop, 3)
	case Flop:
		return t.dealStreet(Turn, 1)
	case Turn:
		return t.dealStreet(River, 1)
	default:
		return fmt.Errorf("cannot deal on the %s", t.phase)
	}
}

func (t *Table) dealHand() error {
	if len(t.seats) < 2 {
		return ErrInsufficientPlayers
	}

	t.resetHand()
	t.deck.Shuffle()

	if t.ante > 0 {
		for _, p := range t.seats {
			paid := p.MakeBet(t.ante)
			t.pot += paid
			t.committed[p] += paid
			t.record(ActionAnte, p, paid)
		}
	}

	t.postBlind(t.PlayerAt(1), t.smallBlind, ActionSmallBlind)
	t.postBlind(t.PlayerAt(2), t.BigBlind(), ActionBigBlind)
	t.currentBet = t.BigBlind()
	t.minRaise = t.BigBlind()

	for _, p := range t.seats {
		t.hands[p] = t.deck.DealN(2)
	}
	t.phase = PreFlop
	t.updateCaps()
	t.acting = t.firstEligibleFrom(t.button + 3)
	return nil
}

func (t *Table) postBlind(p *Player, amount int, action Action) {
	paid := p.MakeBet(amount)
	t.bets[p] += paid
	t.committed[p] += paid
	t.record(action, p, paid)
}

func (t *Table) dealStreet(next Phase, cards int) error {
	t.sweepBets()
	t.deck.Deal()
	t.board = append(t.board, t.deck.DealN(cards)...)
	t.phase = next
	t.currentBet = 0
	t.minRaise = t.BigBlind()
	clear(t.acted)
	t.roundHistory = nil
	t.acting = t.firstEligibleFrom(t.button + 1)
	return nil
}

func (t *Table) sweepBets() {
	for p, n := range t.bets {
		t.pot += n
		delete(t.bets, p)
	}
}

func (t *Table) resetHand() {
	t.phase = NewHand
	t.board = nil
	t.pot = 0
	t.currentBet = 0
	t.minRaise = 0
	t.acting = -1
	clear(t.hands)
	clear(t.bets)
	clear(t.committed)
	clear(t.caps)
	clear(t.acted)
	t.handHistory = nil
	t.roundHistory = nil
}
