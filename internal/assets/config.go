package assets

import "github.com/evanw/esbuild/pkg/api"

type Options struct {
	// Project root, entry and template paths are resolved against it
	Root string
	// Path to metafile (relative to the output directory)
	MetafilePath string
	// Path to the asset manifest (relative to the output directory)
	ManifestPath string
	// Dart Sass embedded executable used for .scss and .sass sources
	SassBinary string
	// Sass compiler override, started lazily from SassBinary when nil
	Sass SassCompiler
	// Write .gz and .zst siblings of text outputs for non-development builds
	Precompress bool
	// Browser targets used when the postcss step enables autoprefixer
	Browsers []api.Engine
}

// DefaultOptions returns a sensible default configuration
func DefaultOptions(root string) Options {
	return Options{
		Root:         root,
		MetafilePath: "meta.json",
		ManifestPath: "manifest.json",
		SassBinary:   "sass",
		Browsers:     DefaultBrowsers(),
	}
}

// DefaultBrowsers mirrors the browserslist "defaults" floor closely enough for prefixing.
func DefaultBrowsers() []api.Engine {
	return []api.Engine{
		{Name: api.EngineChrome, Version: "58"},
		{Name: api.EngineEdge, Version: "16"},
		{Name: api.EngineFirefox, Version: "57"},
		{Name: api.EngineSafari, Version: "11"},
		{Name: api.EngineIOS, Version: "11"},
	}
}
