package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/frontbuild/internal/assets"
	"github.com/wolfeidau/frontbuild/internal/devserver"
	"golang.org/x/sync/errgroup"
)

type ServeCmd struct {
	ModeFlag    `embed:""`
	Listen      string   `help:"Dev server listen address." default:"localhost:8080" env:"FRONTBUILD_LISTEN"`
	SassBinary  string   `help:"Dart Sass executable used for .scss sources." default:"sass" env:"FRONTBUILD_SASS"`
	NoOpen      bool     `help:"Do not open a browser even when the configuration asks for it." default:"false"`
	CORSOrigins []string `help:"Allowed CORS origins." env:"FRONTBUILD_CORS_ORIGINS"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
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
		Msg("Starting dev server")

	opts := assets.DefaultOptions(root)
	opts.SassBinary = c.SassBinary
	pipeline := assets.New(cfg, opts)

	server := devserver.New(devserver.Config{
		Listen:      c.Listen,
		Directory:   cfg.DevServer.Static.Directory,
		Open:        cfg.DevServer.Open && !c.NoOpen,
		CORSOrigins: c.CORSOrigins,
	}, log)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return pipeline.Watch(ctx, func(res *assets.Result, err error) {
			if err != nil {
				log.Error().Err(err).Msg("Rebuild failed")
				return
			}
			log.Debug().Str("build_id", res.BuildID).Msg("Rebuild finished")
		})
	})
	eg.Go(func() error {
		return server.Run(ctx)
	})

	return eg.Wait()
}
