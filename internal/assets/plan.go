package assets

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

const (
	groupScript = "script"
	groupStyle  = "style"
)

type entry struct {
	Name   string
	Source string
	// Output path relative to the output directory, without extension
	OutputPath string
}

// group is one esbuild invocation: all entries selected by the same rule.
type group struct {
	name    string
	rule    *buildconfig.TransformRule
	ext     string
	entries []entry
}

// plan assigns every entry to the first rule matching its source path. Entries no rule
// matches are bundled as plain scripts.
func (p *Pipeline) plan() ([]*group, error) {
	if len(p.config.Entry) == 0 {
		return nil, ErrNoEntryPoints
	}
	if err := p.config.Module.Validate(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(p.config.Entry))
	for name := range p.config.Entry {
		names = append(names, name)
	}
	sort.Strings(names)

	byRule := map[int]*group{}
	for _, name := range names {
		source := p.config.Entry[name]

		idx := -1
		for i := range p.config.Module.Rules {
			if p.config.Module.Rules[i].Matches(source) {
				idx = i
				break
			}
		}

		g, ok := byRule[idx]
		if !ok {
			g = p.newGroup(idx)
			byRule[idx] = g
		}

		g.entries = append(g.entries, entry{
			Name:       name,
			Source:     source,
			OutputPath: outputPath(p.filenamePattern(g), name, g.ext),
		})
	}

	keys := make([]int, 0, len(byRule))
	for k := range byRule {
		keys = append(keys, k)
	}
	// rule order first, unmatched entries last
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] < 0 || keys[j] < 0 {
			return keys[j] < 0 && keys[i] >= 0
		}
		return keys[i] < keys[j]
	})

	groups := make([]*group, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, byRule[k])
	}
	return groups, nil
}

func (p *Pipeline) newGroup(ruleIdx int) *group {
	if ruleIdx < 0 {
		return &group{name: groupScript, ext: ".js"}
	}

	rule := &p.config.Module.Rules[ruleIdx]
	g := &group{name: groupScript, rule: rule, ext: ".js"}
	if _, ok := rule.Step(buildconfig.ProcessorCSSExtract); ok {
		g.name = groupStyle
		g.ext = ".css"
	}
	return g
}

// filenamePattern picks the css-extract plugin filename for extracted stylesheets and the
// output filename otherwise.
func (p *Pipeline) filenamePattern(g *group) string {
	if g.ext == ".css" {
		if plugin, ok := p.config.Plugin(buildconfig.PluginCSSExtract); ok {
			if name := plugin.Options.Str("filename"); name != "" {
				return name
			}
		}
		return "[name].css"
	}
	if p.config.Output.Filename != "" {
		return p.config.Output.Filename
	}
	return "[name].js"
}

// outputPath expands a filename pattern for a bundle and drops the extension esbuild
// appends on its own, so "./css/[name]" for "main.css" becomes "css/main".
func outputPath(pattern, name, ext string) string {
	out := strings.ReplaceAll(pattern, "[name]", name)
	out = path.Clean(filepath.ToSlash(out))
	out = strings.TrimPrefix(out, "/")
	return strings.TrimSuffix(out, ext)
}
