package assets

import (
	"context"
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

// Watch builds every group and rebuilds them as their inputs change until ctx is done.
// onBuild is called after each rebuild with the combined result.
func (p *Pipeline) Watch(ctx context.Context, onBuild func(*Result, error)) error {
	groups, err := p.prepare()
	if err != nil {
		return err
	}
	defer p.closeSass()

	var contexts []api.BuildContext
	defer func() {
		for _, c := range contexts {
			c.Dispose()
		}
	}()

	for _, g := range groups {
		opts, err := p.buildOptions(p.root, p.outdir, g)
		if err != nil {
			return fmt.Errorf("%s group: %w", g.name, err)
		}
		opts.Plugins = append(opts.Plugins, p.rebuildPlugin(g, onBuild))

		bctx, ctxErr := api.Context(opts)
		if ctxErr != nil {
			return &BuildError{Group: g.name, Messages: ctxErr.Errors}
		}
		contexts = append(contexts, bctx)
	}

	for i, c := range contexts {
		if err := c.Watch(api.WatchOptions{}); err != nil {
			return fmt.Errorf("failed to watch %s group: %w", groups[i].name, err)
		}
	}

	log.Info().Int("groups", len(groups)).Msg("Watching for changes")

	<-ctx.Done()
	return nil
}

func (p *Pipeline) rebuildPlugin(g *group, onBuild func(*Result, error)) api.Plugin {
	return api.Plugin{
		Name: "frontbuild-rebuild",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				err := p.finish(g, *result)

				var res *Result
				if err == nil {
					res, err = p.complete()
				}
				if err != nil {
					log.Error().Err(err).Str("group", g.name).Msg("Rebuild failed")
				} else {
					log.Info().Str("group", g.name).Int("files", len(res.Files)).Msg("Rebuilt assets")
				}

				if onBuild != nil {
					onBuild(res, err)
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}
