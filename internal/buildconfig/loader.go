package buildconfig

import (
	"os"
	"path/filepath"
)

// Project layout conventions, relative to the project root.
const (
	ScriptEntry  = "./src/js/main.js"
	StyleEntry   = "./src/scss/main.scss"
	HTMLTemplate = "src/html/index.html"
	OutputDir    = "dist"
)

// Bundle names.
const (
	BundleApp   = "app"
	BundleStyle = "main.css"
)

// LookupFunc has the shape of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadFromEnv builds the configuration using the process environment.
func LoadFromEnv(root string) *Configuration {
	return Load(os.LookupEnv, root)
}

// Load assembles the build configuration. It performs no I/O and cannot fail: the mode is
// read once through lookup and anything unrecognised falls through to ModeUnset.
//
// Loader source maps are enabled only in development while minimizers are registered
// whenever the mode is not development, so an unset mode follows the production branch:
// no source maps, both minimizers.
func Load(lookup LookupFunc, root string) *Configuration {
	raw, _ := lookup(ModeEnvVar)
	mode := ParseMode(raw)
	sourceMap := mode.IsDevelopment()

	dist := filepath.Join(root, OutputDir)

	return &Configuration{
		Mode: mode,
		Entry: map[string]string{
			BundleApp:   ScriptEntry,
			BundleStyle: StyleEntry,
		},
		Resolve: Resolve{
			Extensions: []string{".js"},
		},
		Output: OutputSpec{
			Path:     dist,
			Filename: "./js/[name].js",
		},
		Devtool: "source-map",
		Module: Module{
			Rules: []TransformRule{
				{
					Test:    `\.js$`,
					Exclude: `node_modules`,
					Use: []Step{
						{
							Processor: ProcessorBabel,
							Options: Options{
								"presets": []any{"@babel/preset-env"},
							},
						},
					},
				},
				{
					Test: `\.(sa|sc|c)ss$`,
					Use: []Step{
						{Processor: ProcessorStyle},
						{
							Processor: ProcessorCSSExtract,
							Options: Options{
								"publicPath": filepath.Join(dist, "css"),
								"esModule":   false,
							},
						},
						{
							Processor: ProcessorCSS,
							Options: Options{
								"url":           false,
								"sourceMap":     sourceMap,
								"importLoaders": 2,
							},
						},
						{
							Processor: ProcessorPostCSS,
							Options: Options{
								"sourceMap": sourceMap,
								"postcssOptions": Options{
									"plugins": []any{
										Options{
											"name":    "autoprefixer",
											"options": Options{"grid": true},
										},
									},
								},
							},
						},
						{
							Processor: ProcessorSass,
							Options: Options{
								"sourceMap": sourceMap,
							},
						},
					},
				},
			},
		},
		Optimization: Optimization{
			Minimizer: minimizers(mode),
		},
		DevServer: DevServerSpec{
			Static: StaticSpec{Directory: dist},
			Open:   true,
		},
		Plugins: []Plugin{
			{
				Name: PluginHTML,
				Options: Options{
					"template": filepath.Join(root, HTMLTemplate),
					"filename": "./index.html",
					"chunks":   []any{BundleApp, BundleStyle},
				},
			},
			{
				Name: PluginCSSMinimizer,
				Options: Options{
					"test":   `\.optimize\.css$`,
					"minify": "clean-css",
					"minimizerOptions": Options{
						"preset": []any{
							"default",
							Options{
								"discardComments":  Options{"removeAll": true},
								"minifyFontValues": Options{"removeQuotes": false},
							},
						},
					},
				},
			},
			{
				Name: PluginCSSExtract,
				Options: Options{
					"filename":      "./css/[name]",
					"chunkFilename": "[id].css",
				},
			},
			{
				Name:    PluginProvide,
				Options: Options{"$": "jquery"},
			},
		},
	}
}

func minimizers(mode Mode) []Step {
	if mode.IsDevelopment() {
		return []Step{}
	}
	return []Step{
		{
			Processor: MinimizerTerser,
			Options: Options{
				"extractComments": "all",
				"terserOptions": Options{
					"compress": Options{"drop_console": true},
				},
			},
		},
		{Processor: MinimizerCSS},
	}
}
