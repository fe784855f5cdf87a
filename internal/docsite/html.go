package docsite

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`

// renderHTML renders every markdown file under the docs directory, outside the
// build directory, to a matching .html file.
func (b *Builder) renderHTML(ctx context.Context) error {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(mdLinkRewriter{}, 100)),
		),
	)
	out := b.HTMLDir()
	buildDir := filepath.Join(b.docsDir, BuildDir)

	return filepath.WalkDir(b.docsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == buildDir {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".md" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(b.docsDir, path)
		if err != nil {
			return err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var body bytes.Buffer
		if err := md.Convert(src, &body); err != nil {
			return fmt.Errorf("render %s: %w", rel, err)
		}

		dest := filepath.Join(out, strings.TrimSuffix(rel, ".md")+".html")
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		page := fmt.Sprintf(pageTemplate, html.EscapeString(pageTitle(src, rel)), body.String())
		return os.WriteFile(dest, []byte(page), 0o644)
	})
}

// pageTitle is the first level-one heading, or the file name.
func pageTitle(src []byte, rel string) string {
	for _, line := range strings.Split(string(src), "\n") {
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return strings.TrimSuffix(filepath.Base(rel), ".md")
}

// mdLinkRewriter points relative links at rendered pages instead of sources.
type mdLinkRewriter struct{}

func (mdLinkRewriter) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		link, ok := n.(*ast.Link)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		dest := string(link.Destination)
		if strings.Contains(dest, "://") || strings.HasPrefix(dest, "#") {
			return ast.WalkContinue, nil
		}
		path, frag, _ := strings.Cut(dest, "#")
		if base, ok := strings.CutSuffix(path, ".md"); ok {
			dest = base + ".html"
			if frag != "" {
				dest += "#" + frag
			}
			link.Destination = []byte(dest)
		}
		return ast.WalkContinue, nil
	})
}
