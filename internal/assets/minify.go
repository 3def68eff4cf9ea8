package assets

import (
	"errors"
	"fmt"
	"path"
	"regexp"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

// cssMinimizerPlugin post-processes emitted stylesheets whose path matches test. It runs
// in every mode, unlike the css-minimizer entry of the optimization set.
type cssMinimizerPlugin struct {
	test          *regexp.Regexp
	removeAllRule bool
}

func (p *Pipeline) cssMinimizer() (*cssMinimizerPlugin, error) {
	plugin, ok := p.config.Plugin(buildconfig.PluginCSSMinimizer)
	if !ok {
		return nil, nil
	}

	m := &cssMinimizerPlugin{test: regexp.MustCompile(`\.css$`)}
	if test := plugin.Options.Str("test"); test != "" {
		re, err := buildconfig.Pattern(test).Compile()
		if err != nil {
			return nil, fmt.Errorf("%s plugin: %w", buildconfig.PluginCSSMinimizer, err)
		}
		m.test = re
	}

	for _, preset := range presetOptions(plugin.Options) {
		if preset.Bool("discardComments.removeAll") {
			m.removeAllRule = true
		}
	}
	return m, nil
}

func (m *cssMinimizerPlugin) matches(rel string) bool {
	return path.Ext(rel) == ".css" && m.test.MatchString(rel)
}

func (m *cssMinimizerPlugin) minify(css []byte) ([]byte, error) {
	result := api.Transform(string(css), api.TransformOptions{
		Loader:           api.LoaderCSS,
		MinifyWhitespace: true,
		MinifySyntax:     true,
		LegalComments:    cond(m.removeAllRule, api.LegalCommentsNone, api.LegalCommentsInline),
	})
	if len(result.Errors) > 0 {
		return nil, errors.New(result.Errors[0].Text)
	}
	return result.Code, nil
}

// presetOptions returns the option maps of a cssnano style preset, ["name", {...}].
func presetOptions(opts buildconfig.Options) []buildconfig.Options {
	v, ok := opts.Get("minimizerOptions.preset")
	if !ok {
		return nil
	}
	list, _ := v.([]any)

	var out []buildconfig.Options
	for _, item := range list {
		switch o := item.(type) {
		case buildconfig.Options:
			out = append(out, o)
		case map[string]any:
			out = append(out, buildconfig.Options(o))
		}
	}
	return out
}
