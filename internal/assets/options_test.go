package assets

import (
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

func planGroups(t *testing.T, mode string) (*Pipeline, []*group, string) {
	t.Helper()

	root := t.TempDir()
	cfg := buildconfig.Load(modeEnv(mode), root)
	opts := DefaultOptions(root)
	opts.Sass = &fakeSass{}
	p := New(cfg, opts)

	groups, err := p.plan()
	require.NoError(t, err)
	require.Len(t, groups, 2)
	return p, groups, root
}

func TestPipeline_buildOptions_script(t *testing.T) {
	tests := []struct {
		name         string
		mode         string
		minify       bool
		drop         api.Drop
		legal        api.LegalComments
		defineMode   string
		expectDefine bool
	}{
		{
			name:         "development",
			mode:         "development",
			minify:       false,
			legal:        api.LegalCommentsDefault,
			defineMode:   `"development"`,
			expectDefine: true,
		},
		{
			name:         "production",
			mode:         "production",
			minify:       true,
			drop:         api.DropConsole,
			legal:        api.LegalCommentsExternal,
			defineMode:   `"production"`,
			expectDefine: true,
		},
		{
			name:   "unset",
			mode:   "",
			minify: true,
			drop:   api.DropConsole,
			legal:  api.LegalCommentsExternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, groups, root := planGroups(t, tt.mode)

			opts, err := p.buildOptions(root, p.config.Output.Path, groups[0])
			require.NoError(t, err)

			require.Equal(t, []api.EntryPoint{{InputPath: buildconfig.ScriptEntry, OutputPath: "js/app"}}, opts.EntryPointsAdvanced)
			require.Equal(t, api.FormatIIFE, opts.Format)
			require.Equal(t, api.SourceMapLinked, opts.Sourcemap)
			require.Equal(t, api.ES2015, opts.Target)
			require.True(t, opts.Bundle)
			require.False(t, opts.Write)
			require.True(t, opts.Metafile)

			require.Equal(t, tt.minify, opts.MinifyWhitespace)
			require.Equal(t, tt.minify, opts.MinifyIdentifiers)
			require.Equal(t, tt.minify, opts.MinifySyntax)
			require.Equal(t, tt.drop, opts.Drop)
			require.Equal(t, tt.legal, opts.LegalComments)

			if tt.expectDefine {
				require.Equal(t, tt.defineMode, opts.Define["process.env.NODE_ENV"])
			} else {
				require.Empty(t, opts.Define)
			}

			require.Len(t, opts.Inject, 1)
			require.FileExists(t, opts.Inject[0])
			require.Empty(t, opts.Plugins)
		})
	}
}

func TestPipeline_buildOptions_style(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		minify    bool
		sourceMap api.SourceMap
	}{
		{name: "development", mode: "development", minify: false, sourceMap: api.SourceMapLinked},
		{name: "production", mode: "production", minify: true, sourceMap: api.SourceMapNone},
		{name: "unset", mode: "", minify: true, sourceMap: api.SourceMapNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, groups, root := planGroups(t, tt.mode)

			opts, err := p.buildOptions(root, p.config.Output.Path, groups[1])
			require.NoError(t, err)

			require.Equal(t, []api.EntryPoint{{InputPath: buildconfig.StyleEntry, OutputPath: "css/main"}}, opts.EntryPointsAdvanced)
			require.Equal(t, tt.sourceMap, opts.Sourcemap)
			require.Equal(t, tt.minify, opts.MinifyWhitespace)
			require.Equal(t, tt.minify, opts.MinifySyntax)
			require.False(t, opts.MinifyIdentifiers)
			require.Equal(t, DefaultBrowsers(), opts.Engines)
			require.Empty(t, opts.Inject)

			// url() left alone, so the public path is not applied
			require.Empty(t, opts.PublicPath)

			names := make([]string, 0, len(opts.Plugins))
			for _, pl := range opts.Plugins {
				names = append(names, pl.Name)
			}
			require.ElementsMatch(t, []string{"sass", "css-url-external"}, names)
		})
	}
}

func TestPipeline_buildOptions_publicPath(t *testing.T) {
	p, groups, root := planGroups(t, "production")

	style := groups[1]
	for i, step := range style.rule.Use {
		if step.Processor == buildconfig.ProcessorCSS {
			style.rule.Use[i].Options = buildconfig.Options{"url": true}
		}
	}

	opts, err := p.buildOptions(root, p.config.Output.Path, style)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "dist", "css"), opts.PublicPath)
	for _, pl := range opts.Plugins {
		require.NotEqual(t, "css-url-external", pl.Name)
	}
}

func TestPipeline_buildOptions_unknownMinimizer(t *testing.T) {
	p, groups, root := planGroups(t, "production")
	p.config.Optimization.Minimizer = append(p.config.Optimization.Minimizer, buildconfig.Step{Processor: "uglify"})

	_, err := p.buildOptions(root, p.config.Output.Path, groups[0])
	require.ErrorIs(t, err, ErrUnknownProcessor)
}

func TestDevtoolSourceMap(t *testing.T) {
	tests := []struct {
		devtool  string
		expected api.SourceMap
	}{
		{devtool: "source-map", expected: api.SourceMapLinked},
		{devtool: "inline-source-map", expected: api.SourceMapInline},
		{devtool: "hidden-source-map", expected: api.SourceMapExternal},
		{devtool: "", expected: api.SourceMapNone},
		{devtool: "false", expected: api.SourceMapNone},
		{devtool: "eval-cheap-module-source-map", expected: api.SourceMapLinked},
	}

	for _, tt := range tests {
		t.Run(tt.devtool, func(t *testing.T) {
			require.Equal(t, tt.expected, devtoolSourceMap(tt.devtool))
		})
	}
}

func TestDefines(t *testing.T) {
	require.Nil(t, defines(buildconfig.ModeUnset))
	require.Equal(t, map[string]string{"process.env.NODE_ENV": `"production"`}, defines(buildconfig.ModeProduction))
}
