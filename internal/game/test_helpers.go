package game

import (
	"github.com/lox/pokermatic/internal/randutil"
)

// TestTableOption configures test table creation
type TestTableOption func(*testTableBuilder)

type testTableBuilder struct {
	seed    int64
	config  TableConfig
	players []string
	stacks  []int
}

func WithSeed(seed int64) TestTableOption {
	return func(b *testTableBuilder) { b.seed = seed }
}

func WithMaxSeats(seats int) TestTableOption {
	return func(b *testTableBuilder) { b.config.MaxSeats = seats }
}

func WithBlinds(small, ante int) TestTableOption {
	return func(b *testTableBuilder) {
		b.config.SmallBlind = small
		b.config.Ante = ante
	}
}

func WithPlayers(names ...string) TestTableOption {
	return func(b *testTableBuilder) { b.players = names }
}

// WithStacks sets starting bankrolls by seat; missing entries default to 1000
func WithStacks(stacks ...int) TestTableOption {
	return func(b *testTableBuilder) { b.stacks = stacks }
}

// NewTestTable creates a seeded table with sensible defaults. Players get ids
// starting at 1 in seat order.
func NewTestTable(opts ...TestTableOption) *Table {
	builder := &testTableBuilder{
		seed: 42,
		config: TableConfig{
			MaxSeats:   DefaultMaxSeats,
			SmallBlind: 10,
		},
	}
	for _, opt := range opts {
		opt(builder)
	}

	table := NewTable(randutil.New(builder.seed), builder.config)
	for i, name := range builder.players {
		stack := 1000
		if i < len(builder.stacks) {
			stack = builder.stacks[i]
		}
		_ = table.AddPlayer(NewPlayer(int64(i+1), name, "", stack))
	}
	return table
}

// HeadsUpTable is a two-seat table with 1/2 blinds and 500 chips each
func HeadsUpTable() *Table {
	return NewTestTable(
		WithBlinds(1, 0),
		WithPlayers("Alice", "Bob"),
		WithStacks(500, 500),
	)
}
