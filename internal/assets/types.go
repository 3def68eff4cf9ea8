package assets

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

var (
	ErrNoEntryPoints    = errors.New("no entry points configured")
	ErrUnknownProcessor = errors.New("unknown processor")
	ErrTemplate         = errors.New("html template")
)

// BuildError carries the esbuild diagnostics of a failed group build.
type BuildError struct {
	Group    string
	Messages []api.Message
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s build failed", e.Group)
	}
	msg := e.Messages[0]
	text := msg.Text
	if msg.Location != nil {
		text = fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
	}
	return fmt.Sprintf("%s build failed with %d error(s): %s", e.Group, len(e.Messages), text)
}

type BuildMetadata struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type InputInfo struct {
	Bytes   int          `json:"bytes"`
	Imports []ImportInfo `json:"imports"`
}

type OutputInfo struct {
	Bytes      int          `json:"bytes"`
	EntryPoint string       `json:"entryPoint,omitempty"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path     string `json:"path"`
	Kind     string `json:"kind,omitempty"`
	External bool   `json:"external,omitempty"`
}

func (m *BuildMetadata) merge(other BuildMetadata) {
	if m.Inputs == nil {
		m.Inputs = map[string]InputInfo{}
	}
	if m.Outputs == nil {
		m.Outputs = map[string]OutputInfo{}
	}
	maps.Copy(m.Inputs, other.Inputs)
	maps.Copy(m.Outputs, other.Outputs)
}

// Result describes a completed build.
type Result struct {
	BuildID string
	Mode    buildconfig.Mode
	// Bundle name to its primary output, relative to the output directory
	Entries map[string]string
	// Every written file, relative to the output directory
	Files    []File
	Warnings []string
}

type File struct {
	Path     string `json:"path"`
	Size     int    `json:"size"`
	Checksum string `json:"checksum"`
}

// Pipeline manages the asset build process for a build configuration
type Pipeline struct {
	config *buildconfig.Configuration
	opts   Options
	root   string
	outdir string

	startSass   func(binary string) (SassCompiler, error)
	sassOnce    sync.Once
	sass        SassCompiler
	sassErr     error
	sassStarted bool

	completeMu sync.Mutex

	mu       sync.RWMutex
	metadata *BuildMetadata
	entries  map[string]string
	files    map[string]File
	warnings []string
}

// New creates a new asset pipeline for the given configuration
func New(config *buildconfig.Configuration, opts Options) *Pipeline {
	if opts.MetafilePath == "" {
		opts.MetafilePath = "meta.json"
	}
	if opts.ManifestPath == "" {
		opts.ManifestPath = "manifest.json"
	}
	if opts.SassBinary == "" {
		opts.SassBinary = "sass"
	}
	if opts.Browsers == nil {
		opts.Browsers = DefaultBrowsers()
	}
	return &Pipeline{
		config:    config,
		opts:      opts,
		startSass: StartDartSass,
		sass:      opts.Sass,
	}
}

func (p *Pipeline) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metadata = &BuildMetadata{}
	p.entries = map[string]string{}
	p.files = map[string]File{}
	p.warnings = nil
}
