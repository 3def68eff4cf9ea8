package assets

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/frontbuild/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/wolfeidau/frontbuild/internal/assets")

// Build runs one esbuild invocation per rule group and writes outputs, the html shell,
// the metafile and the manifest.
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "assets.Build", trace.WithAttributes(
		attribute.String("mode", p.config.Mode.String()),
	))
	defer span.End()

	started := time.Now()
	res, err := p.build(ctx)

	m := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("mode", p.config.Mode.String()))
	m.BuildsTotal.Add(ctx, 1, attrs)
	m.BuildDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)

	if err != nil {
		m.BuildErrorsTotal.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var written int64
	for _, f := range res.Files {
		written += int64(f.Size)
	}
	m.OutputBytes.Add(ctx, written, attrs)

	return res, nil
}

func (p *Pipeline) build(ctx context.Context) (*Result, error) {
	groups, err := p.prepare()
	if err != nil {
		return nil, err
	}
	defer p.closeSass()

	// options are assembled up front, they may write the provide shim
	options := make([]api.BuildOptions, len(groups))
	for i, g := range groups {
		opts, err := p.buildOptions(p.root, p.outdir, g)
		if err != nil {
			return nil, fmt.Errorf("%s group: %w", g.name, err)
		}
		options[i] = opts
	}

	eg, ctx := errgroup.WithContext(ctx)
	for i, g := range groups {
		eg.Go(func() error {
			_, span := tracer.Start(ctx, "assets.Group", trace.WithAttributes(
				attribute.String("group", g.name),
				attribute.Int("entries", len(g.entries)),
			))
			defer span.End()

			if err := ctx.Err(); err != nil {
				return err
			}

			log.Info().Str("group", g.name).Strs("entrypoints", entrySources(g)).Msg("Building assets")

			return p.finish(g, api.Build(options[i]))
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return p.complete()
}

// prepare resolves paths, plans groups and clears state left by a previous build.
func (p *Pipeline) prepare() ([]*group, error) {
	root, err := filepath.Abs(p.opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	p.root = root
	p.outdir = absOutdir(root, p.config.Output.Path)

	groups, err := p.plan()
	if err != nil {
		return nil, err
	}
	if _, err := p.cssMinimizer(); err != nil {
		return nil, err
	}

	p.reset()
	return groups, nil
}

// finish records a group's esbuild result and writes its output files.
func (p *Pipeline) finish(g *group, result api.BuildResult) error {
	for _, msg := range result.Warnings {
		log.Warn().Str("group", g.name).Str("warning", msg.Text).Msg("Build warning")
	}

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("group", g.name).Str("error", msg.Text).Msg("Build error")
		}
		return &BuildError{Group: g.name, Messages: result.Errors}
	}

	var metadata BuildMetadata
	if result.Metafile != "" {
		if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
			return fmt.Errorf("failed to parse metafile: %w", err)
		}
	}

	minimizer, err := p.cssMinimizer()
	if err != nil {
		return err
	}
	for _, file := range result.OutputFiles {
		rel, err := filepath.Rel(p.outdir, file.Path)
		if err != nil {
			return fmt.Errorf("output %s outside of %s: %w", file.Path, p.outdir, err)
		}
		rel = filepath.ToSlash(rel)

		contents := file.Contents
		if minimizer != nil && minimizer.matches(rel) {
			if contents, err = minimizer.minify(contents); err != nil {
				return fmt.Errorf("failed to minimize %s: %w", rel, err)
			}
		}

		if err := p.emit(rel, contents); err != nil {
			return err
		}
		log.Info().Str("file", rel).Msg("Built file")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.metadata.merge(metadata)
	for _, e := range g.entries {
		p.entries[e.Name] = e.OutputPath + g.ext
	}
	for _, msg := range result.Warnings {
		p.warnings = append(p.warnings, msg.Text)
	}
	return nil
}

// complete writes the files that depend on every group: html shell, metafile, manifest
// and precompressed siblings.
func (p *Pipeline) complete() (*Result, error) {
	p.completeMu.Lock()
	defer p.completeMu.Unlock()

	if err := p.writeHTML(); err != nil {
		return nil, err
	}
	if err := p.writeMetafile(); err != nil {
		return nil, err
	}

	res := p.snapshot()
	if err := p.writeManifest(res); err != nil {
		return nil, err
	}

	if p.opts.Precompress && !p.config.Mode.IsDevelopment() {
		if err := p.precompress(res.Files); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// emit writes a file below the output directory and records it.
func (p *Pipeline) emit(rel string, contents []byte) error {
	target := filepath.Join(p.outdir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(target, contents, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}

	p.mu.Lock()
	p.files[rel] = File{Path: rel, Size: len(contents), Checksum: checksum(contents)}
	p.mu.Unlock()
	return nil
}

func (p *Pipeline) writeMetafile() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.metadata, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	target := filepath.Join(p.outdir, filepath.FromSlash(p.opts.MetafilePath))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o600)
}

func (p *Pipeline) snapshot() *Result {
	p.mu.RLock()
	defer p.mu.RUnlock()

	res := &Result{
		BuildID:  uuid.Must(uuid.NewV7()).String(),
		Mode:     p.config.Mode,
		Entries:  make(map[string]string, len(p.entries)),
		Files:    make([]File, 0, len(p.files)),
		Warnings: slices.Clone(p.warnings),
	}
	maps.Copy(res.Entries, p.entries)
	for _, f := range p.files {
		res.Files = append(res.Files, f)
	}
	slices.SortFunc(res.Files, func(a, b File) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return res
}

// Dependencies returns the ordered list of files needed for the given bundle, its primary
// output first, relative to the output directory.
func (p *Pipeline) Dependencies(bundle string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.dependencies(bundle)
}

func (p *Pipeline) dependencies(bundle string) ([]string, error) {
	if p.metadata == nil {
		return nil, errors.New("assets not built yet, call Build() first")
	}

	primary, ok := p.entries[bundle]
	if !ok {
		return nil, fmt.Errorf("bundle %q not found in build", bundle)
	}

	files := []string{primary}
	visited := map[string]bool{primary: true}

	if info, exists := p.metadata.Outputs[p.metaKey(primary)]; exists {
		p.addDependencies(info, &files, visited)
	}
	return files, nil
}

func (p *Pipeline) addDependencies(output OutputInfo, files *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if imp.External {
			continue
		}
		info, exists := p.metadata.Outputs[imp.Path]
		if !exists {
			continue
		}

		rel := p.outdirKey(imp.Path)
		if visited[rel] {
			continue
		}
		visited[rel] = true
		*files = append(*files, rel)

		p.addDependencies(info, files, visited)
	}
}

// metaKey converts an output-relative path into a metafile key (relative to the root).
func (p *Pipeline) metaKey(rel string) string {
	key, err := filepath.Rel(p.root, filepath.Join(p.outdir, filepath.FromSlash(rel)))
	if err != nil {
		return rel
	}
	return filepath.ToSlash(key)
}

func (p *Pipeline) outdirKey(metaKey string) string {
	rel, err := filepath.Rel(p.outdir, filepath.Join(p.root, filepath.FromSlash(metaKey)))
	if err != nil {
		return path.Clean(metaKey)
	}
	return filepath.ToSlash(rel)
}

func entrySources(g *group) []string {
	sources := make([]string, 0, len(g.entries))
	for _, e := range g.entries {
		sources = append(sources, e.Source)
	}
	return sources
}
