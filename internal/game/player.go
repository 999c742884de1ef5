package game

// Player is a seated participant. The bankroll is only mutated by the table
// that holds the player, under that table's session lock.
type Player struct {
	ID        int64
	Name      string
	PublicKey string

	bankroll int
}

// NewPlayer creates a player with a starting bankroll
func NewPlayer(id int64, name, publicKey string, bankroll int) *Player {
	return &Player{ID: id, Name: name, PublicKey: publicKey, bankroll: bankroll}
}

// Bankroll returns the chips the player has behind
func (p *Player) Bankroll() int {
	return p.bankroll
}

// SetBankroll replaces the bankroll, used when a tournament issues starting chips
func (p *Player) SetBankroll(n int) {
	p.bankroll = n
}

// MakeBet removes up to n chips from the bankroll and returns the amount
// actually taken. The bankroll never goes negative.
func (p *Player) MakeBet(n int) int {
	if n > p.bankroll {
		n = p.bankroll
	}
	if n < 0 {
		n = 0
	}
	p.bankroll -= n
	return n
}

// TakeWinnings adds n chips to the bankroll
func (p *Player) TakeWinnings(n int) {
	p.bankroll += n
}

// Busted reports whether the player has no chips left
func (p *Player) Busted() bool {
	return p.bankroll <= 0
}

func (p *Player) String() string {
	return p.Name
}
