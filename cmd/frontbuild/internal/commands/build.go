package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/frontbuild/internal/assets"
)

type BuildCmd struct {
	ModeFlag    `embed:""`
	SassBinary  string `help:"Dart Sass executable used for .scss sources." default:"sass" env:"FRONTBUILD_SASS"`
	Precompress bool   `help:"Write .gz and .zst copies of text outputs outside development mode." default:"false" env:"FRONTBUILD_PRECOMPRESS"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log, flush := globals.setup(ctx)
	defer flush()

	cfg, root, err := globals.load(c.ModeFlag)
	if err != nil {
		return fmt.Errorf("failed to resolve project root: %w", err)
	}

	log.Info().
		Str("version", globals.Version).
		Str("mode", cfg.Mode.String()).
		Str("root", root).
		Msg("Starting build")

	opts := assets.DefaultOptions(root)
	opts.SassBinary = c.SassBinary
	opts.Precompress = c.Precompress

	res, err := assets.New(cfg, opts).Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build assets: %w", err)
	}

	log.Info().
		Str("build_id", res.BuildID).
		Int("files", len(res.Files)).
		Int("warnings", len(res.Warnings)).
		Str("output", cfg.Output.Path).
		Msg("Build complete")

	return nil
}
