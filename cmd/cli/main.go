package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/contactgain/cmd/cli/internal/commands"
	"github.com/wolfeidau/contactgain/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Create    commands.CreateCmd    `cmd:"" help:"Create a contact collection session"`
		List      commands.ListCmd      `cmd:"" help:"List sessions you created"`
		Show      commands.ShowCmd      `cmd:"" help:"Show a session"`
		Watch     commands.WatchCmd     `cmd:"" help:"Watch a session countdown"`
		Join      commands.JoinCmd      `cmd:"" help:"Add your contact to a session"`
		Download  commands.DownloadCmd  `cmd:"" help:"Download a session's contacts as a VCF file"`
		Hide      commands.HideCmd      `cmd:"" help:"Hide a session from your list"`
		Durations commands.DurationsCmd `cmd:"" help:"List session duration presets"`
		Debug     bool                  `help:"Enable debug mode."`
		Server    string                `help:"Server URL" default:"http://localhost:8080" env:"CONTACTGAIN_SERVER"`
		Home      string                `help:"Directory holding identity and cache, defaults to ~/.contactgain" env:"CONTACTGAIN_HOME"`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	log.Logger = logger.Setup(cli.Debug)
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version, Server: cli.Server, Home: cli.Home})
	cmd.FatalIfErrorf(err)
}
