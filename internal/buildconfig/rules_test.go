package buildconfig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransformRule_Matches(t *testing.T) {
	cfg := Load(envWith("production", true), "/project")
	script := cfg.Module.Rules[0]
	style := cfg.Module.Rules[1]

	tests := []struct {
		name   string
		rule   TransformRule
		path   string
		expect bool
	}{
		{name: "script entry", rule: script, path: "./src/js/main.js", expect: true},
		{name: "script in node_modules", rule: script, path: "node_modules/jquery/dist/jquery.js", expect: false},
		{name: "script windows separators", rule: script, path: `C:\app\node_modules\x.js`, expect: false},
		{name: "script rejects scss", rule: script, path: "main.scss", expect: false},
		{name: "script rejects mjs", rule: script, path: "main.mjs", expect: false},
		{name: "style scss", rule: style, path: "./src/scss/main.scss", expect: true},
		{name: "style sass", rule: style, path: "theme.sass", expect: true},
		{name: "style css", rule: style, path: "reset.css", expect: true},
		{name: "style css in node_modules", rule: style, path: "node_modules/normalize.css/normalize.css", expect: true},
		{name: "style rejects less", rule: style, path: "theme.less", expect: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expect, tt.rule.Matches(tt.path))
		})
	}
}

func TestConfiguration_RuleFor(t *testing.T) {
	cfg := Load(envWith("development", true), "/project")

	rule := cfg.RuleFor("./src/js/main.js")
	require.NotNil(t, rule)
	_, ok := rule.Step(ProcessorBabel)
	require.True(t, ok)

	require.Nil(t, cfg.RuleFor("./src/img/logo.png"))
}

func TestOptions_Get(t *testing.T) {
	opts := Options{
		"extractComments": "all",
		"terserOptions": Options{
			"compress": map[string]any{"drop_console": true},
		},
		"chunks": []any{"app", 3, "main.css"},
	}

	require.True(t, opts.Bool("terserOptions.compress.drop_console"))
	require.False(t, opts.Bool("terserOptions.compress.missing"))
	require.False(t, opts.Bool("extractComments"))
	require.Equal(t, "all", opts.Str("extractComments"))
	require.Empty(t, opts.Str("extractComments.nested"))
	require.Equal(t, []string{"app", "main.css"}, opts.Strings("chunks"))
	require.NotNil(t, opts.Map("terserOptions.compress"))
	require.Nil(t, opts.Map("chunks"))

	var empty Options
	_, ok := empty.Get("anything")
	require.False(t, ok)
}

func TestParseMode(t *testing.T) {
	require.Equal(t, ModeDevelopment, ParseMode("development"))
	require.Equal(t, ModeProduction, ParseMode("production"))
	require.Equal(t, ModeUnset, ParseMode(""))
	require.Equal(t, ModeUnset, ParseMode("prod"))
	require.Equal(t, "unset", ModeUnset.String())
	require.Equal(t, "production", ModeProduction.String())
}

func TestOptimization_Lookup(t *testing.T) {
	cfg := Load(envWith("production", true), "/project")

	terser, ok := cfg.Optimization.Lookup(MinimizerTerser)
	require.True(t, ok)
	require.True(t, terser.Options.Bool("terserOptions.compress.drop_console"))

	_, ok = cfg.Optimization.Lookup("uglify")
	require.False(t, ok)

	dev := Load(envWith("development", true), "/project")
	_, ok = dev.Optimization.Lookup(MinimizerTerser)
	require.False(t, ok)
}

func TestConfiguration_Plugin(t *testing.T) {
	cfg := Load(envWith("development", true), "/project")

	provide, ok := cfg.Plugin(PluginProvide)
	require.True(t, ok)
	require.Equal(t, "jquery", provide.Options.Str("$"))

	_, ok = cfg.Plugin("bundle-analyzer")
	require.False(t, ok)
}

func TestPattern_Compile(t *testing.T) {
	re, err := Pattern(`\.js$`).Compile()
	require.NoError(t, err)

	again, err := Pattern(`\.js$`).Compile()
	require.NoError(t, err)
	require.Same(t, re, again)

	_, err = Pattern(`(`).Compile()
	require.Error(t, err)

	// invalid patterns match nothing instead of panicking
	require.False(t, Pattern(`(`).MatchString("("))
}

func TestModule_Validate(t *testing.T) {
	cfg := Load(envWith("production", true), "/project")
	require.NoError(t, cfg.Module.Validate())

	cfg.Module.Rules[0].Test = `[`
	require.ErrorContains(t, cfg.Module.Validate(), "rule 0")
}
