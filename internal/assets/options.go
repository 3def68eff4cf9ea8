package assets

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

// stepState collects what the rule's steps decided before it is applied to esbuild.
type stepState struct {
	extract     bool
	externalURL bool
	sourceMap   bool
}

// buildOptions translates a group into esbuild options. Steps are applied last to first,
// matching the order a loader chain sees the source.
func (p *Pipeline) buildOptions(root, outdir string, g *group) (api.BuildOptions, error) {
	entryPoints := make([]api.EntryPoint, 0, len(g.entries))
	for _, e := range g.entries {
		entryPoints = append(entryPoints, api.EntryPoint{InputPath: e.Source, OutputPath: e.OutputPath})
	}

	opts := api.BuildOptions{
		EntryPointsAdvanced: entryPoints,
		AbsWorkingDir:       root,
		Outdir:              outdir,
		Bundle:              true,
		Write:               false,
		Metafile:            true,
		LogLevel:            api.LogLevelSilent,
		Platform:            api.PlatformBrowser,
		ResolveExtensions:   p.config.Resolve.Extensions,
		Define:              defines(p.config.Mode),
	}

	if g.ext == ".js" {
		opts.Format = api.FormatIIFE
		opts.Sourcemap = devtoolSourceMap(p.config.Devtool)
	}

	var state stepState
	if g.rule != nil {
		for i := len(g.rule.Use) - 1; i >= 0; i-- {
			if err := p.applyStep(&opts, &state, g.rule.Use[i]); err != nil {
				return api.BuildOptions{}, err
			}
		}
	}

	if g.ext == ".css" {
		opts.Sourcemap = cond(state.sourceMap, api.SourceMapLinked, api.SourceMapNone)
	}
	if state.externalURL {
		opts.Plugins = append(opts.Plugins, externalURLPlugin())
	}

	for _, step := range p.config.Optimization.Minimizer {
		if err := applyMinimizer(&opts, g, step); err != nil {
			return api.BuildOptions{}, err
		}
	}

	if g.ext == ".js" {
		if provide, ok := p.config.Plugin(buildconfig.PluginProvide); ok && len(provide.Options) > 0 {
			shim, err := writeProvideShim(root, provide.Options)
			if err != nil {
				return api.BuildOptions{}, err
			}
			opts.Inject = append(opts.Inject, shim)
		}
	}

	return opts, nil
}

func (p *Pipeline) applyStep(opts *api.BuildOptions, state *stepState, step buildconfig.Step) error {
	switch step.Processor {
	case buildconfig.ProcessorSass:
		opts.Plugins = append(opts.Plugins, sassPlugin(p.sassCompiler, step.Options.Bool("sourceMap")))

	case buildconfig.ProcessorPostCSS:
		for _, plugin := range postcssPlugins(step.Options) {
			if plugin.Str("name") != "autoprefixer" {
				log.Debug().Str("plugin", plugin.Str("name")).Msg("Ignoring unsupported postcss plugin")
				continue
			}
			opts.Engines = slices.Clone(p.opts.Browsers)
			if plugin.Bool("options.grid") {
				log.Debug().Msg("Grid prefixing is not supported, prefixing other properties only")
			}
		}

	case buildconfig.ProcessorCSS:
		state.sourceMap = step.Options.Bool("sourceMap")
		if v, ok := step.Options.Get("url"); ok && v == false {
			state.externalURL = true
		}

	case buildconfig.ProcessorCSSExtract:
		state.extract = true
		if public := step.Options.Str("publicPath"); public != "" && !state.externalURL {
			opts.PublicPath = public
		}

	case buildconfig.ProcessorStyle:
		if !state.extract {
			log.Debug().Msg("Style injection requested without extraction, emitting stylesheet files")
		}

	case buildconfig.ProcessorBabel:
		if slices.Contains(step.Options.Strings("presets"), "@babel/preset-env") {
			opts.Target = api.ES2015
		}

	default:
		return fmt.Errorf("%w: %s", ErrUnknownProcessor, step.Processor)
	}

	return nil
}

func applyMinimizer(opts *api.BuildOptions, g *group, step buildconfig.Step) error {
	switch step.Processor {
	case buildconfig.MinimizerTerser:
		if g.ext != ".js" {
			return nil
		}
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
		if step.Options.Bool("terserOptions.compress.drop_console") {
			opts.Drop |= api.DropConsole
		}
		switch v, _ := step.Options.Get("extractComments"); v {
		case "all", true:
			opts.LegalComments = api.LegalCommentsExternal
		case false:
			opts.LegalComments = api.LegalCommentsNone
		}

	case buildconfig.MinimizerCSS:
		if g.ext != ".css" {
			return nil
		}
		opts.MinifyWhitespace = true
		opts.MinifySyntax = true

	default:
		return fmt.Errorf("%w: %s", ErrUnknownProcessor, step.Processor)
	}

	return nil
}

func postcssPlugins(opts buildconfig.Options) []buildconfig.Options {
	v, ok := opts.Get("postcssOptions.plugins")
	if !ok {
		return nil
	}
	list, _ := v.([]any)

	plugins := make([]buildconfig.Options, 0, len(list))
	for _, item := range list {
		switch pl := item.(type) {
		case string:
			plugins = append(plugins, buildconfig.Options{"name": pl})
		case buildconfig.Options:
			plugins = append(plugins, pl)
		case map[string]any:
			plugins = append(plugins, buildconfig.Options(pl))
		}
	}
	return plugins
}

// defines forwards the mode to bundled code. An unset mode defines nothing.
func defines(mode buildconfig.Mode) map[string]string {
	if mode == buildconfig.ModeUnset {
		return nil
	}
	return map[string]string{
		"process.env.NODE_ENV": strconv.Quote(string(mode)),
	}
}

func devtoolSourceMap(devtool string) api.SourceMap {
	switch devtool {
	case "source-map":
		return api.SourceMapLinked
	case "inline-source-map":
		return api.SourceMapInline
	case "hidden-source-map":
		return api.SourceMapExternal
	case "", "false":
		return api.SourceMapNone
	default:
		log.Warn().Str("devtool", devtool).Msg("Unsupported devtool, falling back to linked source maps")
		return api.SourceMapLinked
	}
}

// externalURLPlugin keeps url() references in stylesheets untouched.
func externalURLPlugin() api.Plugin {
	return api.Plugin{
		Name: "css-url-external",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Kind != api.ResolveCSSURLToken {
					return api.OnResolveResult{}, nil
				}
				return api.OnResolveResult{Path: args.Path, External: true}, nil
			})
		},
	}
}

func absOutdir(root, outdir string) string {
	if filepath.IsAbs(outdir) {
		return outdir
	}
	return filepath.Join(root, outdir)
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
