package assets

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bep/godartsass/v2"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

// SassCompiler turns a Sass source file into CSS.
type SassCompiler interface {
	Compile(req SassRequest) (SassResult, error)
	Close() error
}

type SassRequest struct {
	Path         string
	Source       string
	IncludePaths []string
	SourceMap    bool
}

type SassResult struct {
	CSS       string
	SourceMap string
	// Absolute paths of every partial loaded while compiling
	Imports []string
}

type dartSass struct {
	transpiler *godartsass.Transpiler
}

// StartDartSass starts the embedded Dart Sass protocol server found at binary.
func StartDartSass(binary string) (SassCompiler, error) {
	transpiler, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: binary,
		Timeout:                  30 * time.Second,
		LogEventHandler: func(event godartsass.LogEvent) {
			log.Warn().Str("message", event.Message).Msg("Sass")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start dart sass: %w", err)
	}
	return &dartSass{transpiler: transpiler}, nil
}

func (d *dartSass) Compile(req SassRequest) (SassResult, error) {
	resolver := &importRecorder{includePaths: req.IncludePaths}

	res, err := d.transpiler.Execute(godartsass.Args{
		Source:                  req.Source,
		URL:                     fileURL(req.Path),
		SourceSyntax:            sourceSyntax(req.Path),
		OutputStyle:             godartsass.OutputStyleExpanded,
		IncludePaths:            req.IncludePaths,
		ImportResolver:          resolver,
		EnableSourceMap:         req.SourceMap,
		SourceMapIncludeSources: req.SourceMap,
	})
	if err != nil {
		return SassResult{}, err
	}
	return SassResult{CSS: res.CSS, SourceMap: res.SourceMap, Imports: resolver.loaded()}, nil
}

func (d *dartSass) Close() error {
	return d.transpiler.Close()
}

// sassCompiler returns the configured compiler, starting Dart Sass on first use.
func (p *Pipeline) sassCompiler() (SassCompiler, error) {
	p.sassOnce.Do(func() {
		if p.sass != nil {
			return
		}
		p.sass, p.sassErr = p.startSass(p.opts.SassBinary)
		p.sassStarted = p.sassErr == nil
	})
	return p.sass, p.sassErr
}

// closeSass stops a compiler the pipeline started and rearms sassCompiler, so the next
// Build or Watch starts a fresh one. Must not run while a build is in flight.
func (p *Pipeline) closeSass() {
	if p.sassStarted {
		if err := p.sass.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop dart sass")
		}
	}

	p.sassOnce = sync.Once{}
	p.sass = p.opts.Sass
	p.sassErr = nil
	p.sassStarted = false
}

// importRecorder resolves Sass loads to files on disk and remembers each one so the
// bundler can watch them. Loads it cannot find fall through to the compiler's load paths.
type importRecorder struct {
	includePaths []string

	mu    sync.Mutex
	files []string
}

func (r *importRecorder) CanonicalizeURL(url string) (string, error) {
	path, ok := resolveSassImport(url, r.includePaths)
	if !ok {
		return "", nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.files, path) {
		r.files = append(r.files, path)
	}
	return fileURL(path), nil
}

func (r *importRecorder) Load(canonicalizedURL string) (godartsass.Import, error) {
	path := urlPath(canonicalizedURL)
	data, err := os.ReadFile(path)
	if err != nil {
		return godartsass.Import{}, err
	}
	return godartsass.Import{Content: string(data), SourceSyntax: sourceSyntax(path)}, nil
}

func (r *importRecorder) loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.files)
}

// resolveSassImport finds the file a Sass load refers to, trying partial ("_name") and
// index forms with each Sass extension. Absolute file: URLs are tried as is, other URLs
// against each include path.
func resolveSassImport(url string, includePaths []string) (string, bool) {
	if strings.HasPrefix(url, "file://") {
		return findSassFile(urlPath(url))
	}
	if strings.Contains(url, "://") {
		return "", false
	}
	for _, dir := range includePaths {
		if path, ok := findSassFile(filepath.Join(dir, filepath.FromSlash(url))); ok {
			return path, true
		}
	}
	return "", false
}

func findSassFile(base string) (string, bool) {
	dir, name := filepath.Split(base)

	var candidates []string
	if ext := filepath.Ext(name); ext == ".scss" || ext == ".sass" || ext == ".css" {
		candidates = append(candidates, filepath.Join(dir, "_"+name), base)
	} else {
		for _, ext := range []string{".scss", ".sass", ".css"} {
			candidates = append(candidates, filepath.Join(dir, "_"+name+ext), base+ext)
		}
		for _, ext := range []string{".scss", ".sass", ".css"} {
			candidates = append(candidates, filepath.Join(base, "_index"+ext), filepath.Join(base, "index"+ext))
		}
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

func fileURL(path string) string {
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return "file://" + slashed
}

func urlPath(url string) string {
	p := strings.TrimPrefix(url, "file://")
	// file:///C:/x
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

func sourceSyntax(path string) godartsass.SourceSyntax {
	switch filepath.Ext(path) {
	case ".sass":
		return godartsass.SourceSyntaxSASS
	case ".css":
		return godartsass.SourceSyntaxCSS
	default:
		return godartsass.SourceSyntaxSCSS
	}
}

func sassPlugin(compiler func() (SassCompiler, error), sourceMap bool) api.Plugin {
	return api.Plugin{
		Name: "sass",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `\.(sa|sc)ss$`}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				source, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}

				sass, err := compiler()
				if err != nil {
					return api.OnLoadResult{}, err
				}

				dir := filepath.Dir(args.Path)
				res, err := sass.Compile(SassRequest{
					Path:         args.Path,
					Source:       string(source),
					IncludePaths: []string{dir},
					SourceMap:    sourceMap,
				})
				if err != nil {
					return api.OnLoadResult{}, fmt.Errorf("sass: %w", err)
				}

				css := res.CSS
				if sourceMap && res.SourceMap != "" {
					css += "\n/*# sourceMappingURL=data:application/json;base64," +
						base64.StdEncoding.EncodeToString([]byte(res.SourceMap)) + " */\n"
				}

				return api.OnLoadResult{
					Contents:   &css,
					ResolveDir: dir,
					Loader:     api.LoaderCSS,
					WatchFiles: append([]string{args.Path}, res.Imports...),
				}, nil
			})
		},
	}
}
