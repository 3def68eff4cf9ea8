package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

// shimDir sits under node_modules so bare imports in the shim resolve like project code.
const shimDir = "node_modules/.cache/frontbuild"

// writeProvideShim writes a module exporting every provided global. esbuild injects it,
// replacing free references to those identifiers with imports.
func writeProvideShim(root string, provide buildconfig.Options) (string, error) {
	src, err := provideShim(provide)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(root, filepath.FromSlash(shimDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create shim directory: %w", err)
	}

	path := filepath.Join(dir, "provide.js")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		return "", fmt.Errorf("failed to write provide shim: %w", err)
	}
	return path, nil
}

// provideShim accepts "module" for a default import and ["module", "export"] for a named one.
func provideShim(provide buildconfig.Options) (string, error) {
	names := make([]string, 0, len(provide))
	for name := range provide {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	for i, name := range names {
		local := fmt.Sprintf("__provide_%d", i)

		switch v := provide[name].(type) {
		case string:
			fmt.Fprintf(&b, "import %s from %s;\n", local, strconv.Quote(v))
		case []any:
			if len(v) != 2 {
				return "", fmt.Errorf("provide %q: expected [module, export]", name)
			}
			module, _ := v[0].(string)
			export, _ := v[1].(string)
			if module == "" || export == "" {
				return "", fmt.Errorf("provide %q: expected [module, export]", name)
			}
			fmt.Fprintf(&b, "import { %s as %s } from %s;\n", export, local, strconv.Quote(module))
		default:
			return "", fmt.Errorf("provide %q: unsupported value %T", name, v)
		}

		fmt.Fprintf(&b, "export { %s as %s };\n", local, name)
	}
	return b.String(), nil
}
