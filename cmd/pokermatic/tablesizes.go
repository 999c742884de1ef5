package main

import (
	"fmt"
	"strings"

	"github.com/lox/pokermatic/internal/tournament"
)

// TableSizesCmd prints the starting table split for a field
type TableSizesCmd struct {
	Players  int `arg:"" help:"Number of registered players"`
	MaxSeats int `default:"10" help:"Seats per table"`
}

func (c *TableSizesCmd) Run() error {
	if c.Players < 2 {
		return fmt.Errorf("need at least 2 players, got %d", c.Players)
	}
	if c.MaxSeats < 2 {
		return fmt.Errorf("need at least 2 seats per table, got %d", c.MaxSeats)
	}
	sizes := tournament.ChooseTableSizes(c.Players, c.MaxSeats)
	parts := make([]string, len(sizes))
	for i, n := range sizes {
		parts[i] = fmt.Sprint(n)
	}
	fmt.Printf("%d players: %d tables of %s\n", c.Players, len(sizes), strings.Join(parts, ", "))
	return nil
}
