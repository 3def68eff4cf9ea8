package assets

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		bundle   string
		ext      string
		expected string
	}{
		{
			name:     "script pattern with extension",
			pattern:  "./js/[name].js",
			bundle:   "app",
			ext:      ".js",
			expected: "js/app",
		},
		{
			name:     "stylesheet bundle named with extension",
			pattern:  "./css/[name]",
			bundle:   "main.css",
			ext:      ".css",
			expected: "css/main",
		},
		{
			name:     "bare name",
			pattern:  "[name].js",
			bundle:   "vendor",
			ext:      ".js",
			expected: "vendor",
		},
		{
			name:     "leading slash stripped",
			pattern:  "/static/[name].js",
			bundle:   "app",
			ext:      ".js",
			expected: "static/app",
		},
		{
			name:     "redundant segments cleaned",
			pattern:  "./js/../bundles//[name].js",
			bundle:   "app",
			ext:      ".js",
			expected: "bundles/app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, outputPath(tt.pattern, tt.bundle, tt.ext))
		})
	}
}

func TestPipeline_plan(t *testing.T) {
	cfg := buildconfig.Load(modeEnv("production"), "/project")
	p := New(cfg, DefaultOptions("/project"))

	groups, err := p.plan()
	require.NoError(t, err)
	require.Len(t, groups, 2)

	script, style := groups[0], groups[1]

	require.Equal(t, groupScript, script.name)
	require.Equal(t, ".js", script.ext)
	require.Same(t, &cfg.Module.Rules[0], script.rule)
	require.Equal(t, []entry{{
		Name:       buildconfig.BundleApp,
		Source:     buildconfig.ScriptEntry,
		OutputPath: "js/app",
	}}, script.entries)

	require.Equal(t, groupStyle, style.name)
	require.Equal(t, ".css", style.ext)
	require.Same(t, &cfg.Module.Rules[1], style.rule)
	require.Equal(t, []entry{{
		Name:       buildconfig.BundleStyle,
		Source:     buildconfig.StyleEntry,
		OutputPath: "css/main",
	}}, style.entries)
}

func TestPipeline_plan_unmatchedEntriesLast(t *testing.T) {
	cfg := buildconfig.Load(modeEnv("production"), "/project")
	cfg.Entry["worker"] = "./src/workers/worker.ts"
	cfg.Entry["admin"] = "./src/js/admin.js"
	p := New(cfg, DefaultOptions("/project"))

	groups, err := p.plan()
	require.NoError(t, err)
	require.Len(t, groups, 3)

	// entries sharing a rule share a group, sorted by bundle name
	require.Len(t, groups[0].entries, 2)
	require.Equal(t, "admin", groups[0].entries[0].Name)
	require.Equal(t, buildconfig.BundleApp, groups[0].entries[1].Name)

	require.Equal(t, groupStyle, groups[1].name)

	unmatched := groups[2]
	require.Nil(t, unmatched.rule)
	require.Equal(t, groupScript, unmatched.name)
	require.Equal(t, "js/worker", unmatched.entries[0].OutputPath)
}

func TestPipeline_plan_filenameFallbacks(t *testing.T) {
	cfg := buildconfig.Load(modeEnv("development"), "/project")
	cfg.Output.Filename = ""
	cfg.Plugins = nil
	p := New(cfg, DefaultOptions("/project"))

	groups, err := p.plan()
	require.NoError(t, err)
	require.Len(t, groups, 2)

	require.Equal(t, "app", groups[0].entries[0].OutputPath)
	// "[name].css" keeps the bundle's own extension
	require.Equal(t, "main.css", groups[1].entries[0].OutputPath)
}

func TestPipeline_plan_noEntries(t *testing.T) {
	cfg := buildconfig.Load(modeEnv("development"), "/project")
	cfg.Entry = nil

	_, err := New(cfg, DefaultOptions("/project")).plan()
	require.ErrorIs(t, err, ErrNoEntryPoints)
}

func TestPipeline_plan_invalidPattern(t *testing.T) {
	cfg := buildconfig.Load(modeEnv("development"), "/project")
	cfg.Module.Rules[1].Exclude = `vendor[`

	_, err := New(cfg, DefaultOptions("/project")).plan()
	require.ErrorContains(t, err, "rule 1: invalid pattern")
}
