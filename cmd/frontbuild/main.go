package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/frontbuild/cmd/frontbuild/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool   `help:"Enable debug mode."`
		Tracing bool   `help:"Export build traces and metrics over OTLP." env:"FRONTBUILD_TRACING"`
		Root    string `help:"Project root directory." default:"." type:"existingdir" env:"FRONTBUILD_ROOT"`
		Version kong.VersionFlag

		Build  commands.BuildCmd  `cmd:"" help:"Build the project assets"`
		Serve  commands.ServeCmd  `cmd:"" help:"Watch sources and serve the output directory"`
		Config commands.ConfigCmd `cmd:"" help:"Print the resolved build configuration"`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("frontbuild"),
		kong.Description("Bundle scripts and stylesheets for a front-end project."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:   cli.Debug,
		Tracing: cli.Tracing,
		Root:    cli.Root,
		Version: version,
	})
	cmd.FatalIfErrorf(err)
}
