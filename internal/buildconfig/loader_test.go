package buildconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func envWith(value string, set bool) LookupFunc {
	return func(key string) (string, bool) {
		if key != ModeEnvVar || !set {
			return "", false
		}
		return value, true
	}
}

func sourceMapFlags(t *testing.T, cfg *Configuration) []bool {
	t.Helper()

	rule := cfg.RuleFor("src/scss/main.scss")
	require.NotNil(t, rule)

	var flags []bool
	for _, step := range rule.Use {
		if _, ok := step.Options.Get("sourceMap"); ok {
			flags = append(flags, step.Options.Bool("sourceMap"))
		}
	}
	require.Len(t, flags, 3)
	return flags
}

func TestLoad_modes(t *testing.T) {
	tests := []struct {
		name         string
		lookup       LookupFunc
		expectedMode Mode
		sourceMap    bool
		minimizers   []string
	}{
		{
			name:         "development",
			lookup:       envWith("development", true),
			expectedMode: ModeDevelopment,
			sourceMap:    true,
			minimizers:   nil,
		},
		{
			name:         "production",
			lookup:       envWith("production", true),
			expectedMode: ModeProduction,
			sourceMap:    false,
			minimizers:   []string{MinimizerTerser, MinimizerCSS},
		},
		{
			name:         "unset",
			lookup:       envWith("", false),
			expectedMode: ModeUnset,
			sourceMap:    false,
			minimizers:   []string{MinimizerTerser, MinimizerCSS},
		},
		{
			name:         "empty value",
			lookup:       envWith("", true),
			expectedMode: ModeUnset,
			sourceMap:    false,
			minimizers:   []string{MinimizerTerser, MinimizerCSS},
		},
		{
			name:         "unknown value",
			lookup:       envWith("staging", true),
			expectedMode: ModeUnset,
			sourceMap:    false,
			minimizers:   []string{MinimizerTerser, MinimizerCSS},
		},
		{
			name:         "wrong case",
			lookup:       envWith("Development", true),
			expectedMode: ModeUnset,
			sourceMap:    false,
			minimizers:   []string{MinimizerTerser, MinimizerCSS},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load(tt.lookup, "/project")

			require.Equal(t, tt.expectedMode, cfg.Mode)
			for _, flag := range sourceMapFlags(t, cfg) {
				require.Equal(t, tt.sourceMap, flag)
			}

			var names []string
			for _, step := range cfg.Optimization.Minimizer {
				names = append(names, step.Processor)
			}
			require.Equal(t, tt.minimizers, names)
		})
	}
}

func TestLoad_developmentHasEmptyMinimizerList(t *testing.T) {
	cfg := Load(envWith("development", true), "/project")
	require.NotNil(t, cfg.Optimization.Minimizer)
	require.Empty(t, cfg.Optimization.Minimizer)
}

func TestLoad_entriesIndependentOfMode(t *testing.T) {
	expected := map[string]string{
		BundleApp:   ScriptEntry,
		BundleStyle: StyleEntry,
	}

	for _, raw := range []string{"development", "production", "", "test"} {
		cfg := Load(envWith(raw, true), "/project")
		require.Equal(t, expected, cfg.Entry, "mode %q", raw)
	}
}

func TestLoad_deterministic(t *testing.T) {
	for _, raw := range []string{"development", "production", "other"} {
		first := Load(envWith(raw, true), "/project")
		second := Load(envWith(raw, true), "/project")
		require.Equal(t, first, second)
	}
}

func TestLoad_readsModeOnce(t *testing.T) {
	calls := 0
	Load(func(key string) (string, bool) {
		calls++
		require.Equal(t, ModeEnvVar, key)
		return "production", true
	}, "/project")
	require.Equal(t, 1, calls)
}

func TestLoad_paths(t *testing.T) {
	root := filepath.Join("/srv", "site")
	cfg := Load(envWith("production", true), root)

	require.Equal(t, filepath.Join(root, "dist"), cfg.Output.Path)
	require.Equal(t, "./js/[name].js", cfg.Output.Filename)
	require.Equal(t, filepath.Join(root, "dist"), cfg.DevServer.Static.Directory)
	require.True(t, cfg.DevServer.Open)
	require.Equal(t, "source-map", cfg.Devtool)
	require.Equal(t, []string{".js"}, cfg.Resolve.Extensions)

	html, ok := cfg.Plugin(PluginHTML)
	require.True(t, ok)
	require.Equal(t, filepath.Join(root, "src/html/index.html"), html.Options.Str("template"))
	require.Equal(t, []string{BundleApp, BundleStyle}, html.Options.Strings("chunks"))

	rule := cfg.RuleFor("main.scss")
	require.NotNil(t, rule)
	extract, ok := rule.Step(ProcessorCSSExtract)
	require.True(t, ok)
	require.Equal(t, filepath.Join(root, "dist", "css"), extract.Options.Str("publicPath"))
}

func TestLoad_pluginOrder(t *testing.T) {
	cfg := Load(envWith("", false), "/project")

	var names []string
	for _, p := range cfg.Plugins {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{PluginHTML, PluginCSSMinimizer, PluginCSSExtract, PluginProvide}, names)

	provide, _ := cfg.Plugin(PluginProvide)
	require.Equal(t, "jquery", provide.Options.Str("$"))
}

func TestLoad_styleStepOrder(t *testing.T) {
	cfg := Load(envWith("", false), "/project")
	rule := cfg.RuleFor("a.css")
	require.NotNil(t, rule)

	var processors []string
	for _, step := range rule.Use {
		processors = append(processors, step.Processor)
	}
	require.Equal(t, []string{
		ProcessorStyle,
		ProcessorCSSExtract,
		ProcessorCSS,
		ProcessorPostCSS,
		ProcessorSass,
	}, processors)
}
