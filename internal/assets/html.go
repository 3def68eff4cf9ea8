package assets

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>frontbuild</title>
</head>
<body>
</body>
</html>
`

// writeHTML renders the html plugin's template with a tag for every file of every chunk.
func (p *Pipeline) writeHTML() error {
	plugin, ok := p.config.Plugin(buildconfig.PluginHTML)
	if !ok {
		return nil
	}

	tmpl := []byte(defaultTemplate)
	if templatePath := plugin.Options.Str("template"); templatePath != "" {
		data, err := os.ReadFile(templatePath)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTemplate, err)
		}
		tmpl = data
	}

	filename := plugin.Options.Str("filename")
	if filename == "" {
		filename = "index.html"
	}
	filename = strings.TrimPrefix(path.Clean(filepath.ToSlash(filename)), "/")

	chunks := plugin.Options.Strings("chunks")

	p.mu.RLock()
	if chunks == nil {
		for name := range p.entries {
			chunks = append(chunks, name)
		}
		slices.Sort(chunks)
	}

	var hrefs []string
	for _, chunk := range chunks {
		files, err := p.dependencies(chunk)
		if err != nil {
			log.Debug().Err(err).Str("chunk", chunk).Msg("Skipping chunk")
			continue
		}
		for _, f := range files {
			hrefs = append(hrefs, relativeURL(path.Dir(filename), f))
		}
	}
	p.mu.RUnlock()

	out, err := injectTags(tmpl, hrefs)
	if err != nil {
		return err
	}

	return p.emit(filename, out)
}

// injectTags appends a stylesheet link or deferred script per href to <head>, in order.
func injectTags(tmpl []byte, hrefs []string) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(tmpl))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}

	head := findElement(doc, atom.Head)
	if head == nil {
		return nil, fmt.Errorf("%w: no head element", ErrTemplate)
	}

	for _, href := range hrefs {
		switch path.Ext(href) {
		case ".css":
			head.AppendChild(&html.Node{
				Type:     html.ElementNode,
				Data:     "link",
				DataAtom: atom.Link,
				Attr: []html.Attribute{
					{Key: "href", Val: href},
					{Key: "rel", Val: "stylesheet"},
				},
			})
		case ".js":
			head.AppendChild(&html.Node{
				Type:     html.ElementNode,
				Data:     "script",
				DataAtom: atom.Script,
				Attr: []html.Attribute{
					{Key: "defer"},
					{Key: "src", Val: href},
				},
			})
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}
	return buf.Bytes(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func relativeURL(fromDir, target string) string {
	if fromDir == "." || fromDir == "" {
		return target
	}
	rel, err := filepath.Rel(filepath.FromSlash(fromDir), filepath.FromSlash(target))
	if err != nil {
		return "/" + target
	}
	return filepath.ToSlash(rel)
}
