package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version          kong.VersionFlag    `short:"v" help:"Show version"`
	Server           ServerCmd           `cmd:"" help:"Run the tournament server"`
	CreateTournament CreateTournamentCmd `cmd:"create-tournament" help:"Create a tournament on a running server"`
	CreateTable      CreateTableCmd      `cmd:"create-table" help:"Create a cash table on a running server"`
	Stats            StatsCmd            `cmd:"" help:"Show finishing statistics per bot"`
	TableSizes       TableSizesCmd       `cmd:"table-sizes" help:"Show how a field would be split across tables"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pokermatic"),
		kong.Description("Multi-table hold'em tournament server for bots"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
