package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/gazerecorder/cmd/gazectl/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Record commands.RecordCmd `cmd:"" help:"Record a session from a tracking trace"`
		List   commands.ListCmd   `cmd:"" help:"List stored sessions"`
		Export commands.ExportCmd `cmd:"" help:"Export stored sessions"`
		Import commands.ImportCmd `cmd:"" help:"Import exported sessions"`
		Delete commands.DeleteCmd `cmd:"" help:"Delete stored sessions"`
		Erase  commands.EraseCmd  `cmd:"" help:"Drop the session store schema"`

		Debug       bool   `help:"Enable debug mode."`
		Config      string `help:"Configuration file" type:"path" env:"GAZECTL_CONFIG"`
		Store       string `help:"Session store driver (sqlite, memory or postgres)" env:"GAZECTL_STORE"`
		StorePath   string `help:"SQLite database file" type:"path" env:"GAZECTL_STORE_PATH"`
		PostgresURL string `help:"PostgreSQL connection string" env:"GAZECTL_POSTGRES_URL"`
		Otel        bool   `help:"Export metrics and traces over OTLP" env:"GAZECTL_OTEL"`
		Version     kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:       cli.Debug,
		Config:      cli.Config,
		Store:       cli.Store,
		StorePath:   cli.StorePath,
		PostgresURL: cli.PostgresURL,
		Otel:        cli.Otel,
		Version:     version,
	})
	cmd.FatalIfErrorf(err)
}
