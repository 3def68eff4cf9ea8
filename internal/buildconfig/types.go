package buildconfig

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Processor names used in transform rule steps.
const (
	ProcessorBabel      = "babel"
	ProcessorStyle      = "style"
	ProcessorCSSExtract = "css-extract"
	ProcessorCSS        = "css"
	ProcessorPostCSS    = "postcss"
	ProcessorSass       = "sass"
)

// Minimizer names used in the optimization set.
const (
	MinimizerTerser = "terser"
	MinimizerCSS    = "css-minimizer"
)

// Plugin names.
const (
	PluginHTML         = "html"
	PluginCSSMinimizer = "css-minimizer"
	PluginCSSExtract   = "css-extract"
	PluginProvide      = "provide"
)

// Configuration is the declarative description handed to the asset engine.
type Configuration struct {
	Mode         Mode              `json:"mode" yaml:"mode"`
	Entry        map[string]string `json:"entry" yaml:"entry"`
	Resolve      Resolve           `json:"resolve" yaml:"resolve"`
	Output       OutputSpec        `json:"output" yaml:"output"`
	Devtool      string            `json:"devtool" yaml:"devtool"`
	Module       Module            `json:"module" yaml:"module"`
	Optimization Optimization      `json:"optimization" yaml:"optimization"`
	DevServer    DevServerSpec     `json:"devServer" yaml:"devServer"`
	Plugins      []Plugin          `json:"plugins" yaml:"plugins"`
}

type Resolve struct {
	Extensions []string `json:"extensions" yaml:"extensions"`
}

// OutputSpec is the output directory and the filename template, "[name]" is the bundle name.
type OutputSpec struct {
	Path     string `json:"path" yaml:"path"`
	Filename string `json:"filename" yaml:"filename"`
}

type Module struct {
	Rules []TransformRule `json:"rules" yaml:"rules"`
}

// TransformRule maps a file pattern to an ordered chain of steps. Steps are applied
// last to first.
type TransformRule struct {
	Test    Pattern `json:"test" yaml:"test"`
	Exclude Pattern `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Use     []Step  `json:"use" yaml:"use"`
}

// Matches reports whether path is selected by the rule.
func (r TransformRule) Matches(path string) bool {
	if !r.Test.MatchString(path) {
		return false
	}
	return r.Exclude == "" || !r.Exclude.MatchString(path)
}

// Step returns the first step using the named processor.
func (r TransformRule) Step(processor string) (Step, bool) {
	for _, s := range r.Use {
		if s.Processor == processor {
			return s, true
		}
	}
	return Step{}, false
}

type Step struct {
	Processor string  `json:"processor" yaml:"processor"`
	Options   Options `json:"options,omitempty" yaml:"options,omitempty"`
}

type Optimization struct {
	Minimizer []Step `json:"minimizer" yaml:"minimizer"`
}

// Lookup returns the named minimizer step if the optimization set contains it.
func (o Optimization) Lookup(name string) (Step, bool) {
	for _, s := range o.Minimizer {
		if s.Processor == name {
			return s, true
		}
	}
	return Step{}, false
}

type Plugin struct {
	Name    string  `json:"name" yaml:"name"`
	Options Options `json:"options,omitempty" yaml:"options,omitempty"`
}

type DevServerSpec struct {
	Static StaticSpec `json:"static" yaml:"static"`
	Open   bool       `json:"open" yaml:"open"`
}

type StaticSpec struct {
	Directory string `json:"directory" yaml:"directory"`
}

// RuleFor returns the first rule matching path, or nil.
func (c *Configuration) RuleFor(path string) *TransformRule {
	for i := range c.Module.Rules {
		if c.Module.Rules[i].Matches(path) {
			return &c.Module.Rules[i]
		}
	}
	return nil
}

// Plugin returns the first plugin with the given name.
func (c *Configuration) Plugin(name string) (Plugin, bool) {
	for _, p := range c.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin{}, false
}

// Pattern is a regular expression kept in source form so configurations stay comparable
// and serialisable.
type Pattern string

var patterns sync.Map // Pattern -> *regexp.Regexp

// Compile returns the compiled expression, cached per pattern.
func (p Pattern) Compile() (*regexp.Regexp, error) {
	if re, ok := patterns.Load(p); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(string(p))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", string(p), err)
	}
	patterns.Store(p, re)
	return re, nil
}

// MatchString reports whether s, with separators normalised to slashes, matches. Empty
// and invalid patterns match nothing.
func (p Pattern) MatchString(s string) bool {
	if p == "" {
		return false
	}
	re, err := p.Compile()
	if err != nil {
		return false
	}
	return re.MatchString(filepathToSlash(s))
}

// Validate reports the first rule whose test or exclude pattern does not compile.
func (m Module) Validate() error {
	for i, r := range m.Rules {
		for _, pat := range []Pattern{r.Test, r.Exclude} {
			if pat == "" {
				continue
			}
			if _, err := pat.Compile(); err != nil {
				return fmt.Errorf("rule %d: %w", i, err)
			}
		}
	}
	return nil
}

func filepathToSlash(s string) string {
	return strings.ReplaceAll(s, "\\", "/")
}
