package docsite

import (
	"bytes"
	"context"
	"fmt"
	"go/ast"
	"go/doc"
	"go/parser"
	"go/printer"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	cobradoc "github.com/spf13/cobra/doc"
)

// generateReference writes one markdown section per Go package found under
// the package directory, in path order.
func (b *Builder) generateReference(_ context.Context) error {
	dirs, err := packageDirs(b.packageDir)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("# API Reference\n\n")
	for _, dir := range dirs {
		rel, err := filepath.Rel(b.packageDir, dir)
		if err != nil {
			return err
		}
		importPath := filepath.ToSlash(filepath.Join(filepath.Base(b.packageDir), rel))
		if err := writePackage(&buf, dir, importPath); err != nil {
			return fmt.Errorf("%s: %w", importPath, err)
		}
	}

	if err := os.MkdirAll(b.docsDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(b.docsDir, ReferenceFile), buf.Bytes(), 0o644)
}

func (b *Builder) generateCLI(_ context.Context) error {
	if b.root == nil {
		return nil
	}
	dir := filepath.Join(b.docsDir, CLIDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	disableAutoGenTag(b.root)
	return cobradoc.GenMarkdownTree(b.root, dir)
}

// disableAutoGenTag drops the dated footer cobra adds to every page.
func disableAutoGenTag(cmd *cobra.Command) {
	cmd.DisableAutoGenTag = true
	for _, c := range cmd.Commands() {
		disableAutoGenTag(c)
	}
}

// packageDirs lists directories under root holding non-test Go files.
func packageDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), "_") || strings.HasPrefix(d.Name(), ".") || d.Name() == "testdata") {
			return filepath.SkipDir
		}
		files, err := goFiles(path)
		if err != nil {
			return err
		}
		if len(files) > 0 {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	return dirs, nil
}

func goFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

func writePackage(buf *bytes.Buffer, dir, importPath string) error {
	paths, err := goFiles(dir)
	if err != nil {
		return err
	}

	fset := token.NewFileSet()
	var files []*ast.File
	for _, path := range paths {
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return err
		}
		if len(files) > 0 && f.Name.Name != files[0].Name.Name {
			continue
		}
		files = append(files, f)
	}

	pkg, err := doc.NewFromFiles(fset, files, importPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(buf, "## %s\n\n", importPath)
	if pkg.Doc != "" {
		buf.Write(pkg.Markdown(pkg.Doc))
		buf.WriteString("\n")
	}

	for _, f := range pkg.Funcs {
		if err := writeDecl(buf, fset, pkg, "func "+f.Name, f.Decl, f.Doc); err != nil {
			return err
		}
	}
	for _, t := range pkg.Types {
		if err := writeDecl(buf, fset, pkg, "type "+t.Name, t.Decl, t.Doc); err != nil {
			return err
		}
		for _, f := range t.Funcs {
			if err := writeDecl(buf, fset, pkg, "func "+f.Name, f.Decl, f.Doc); err != nil {
				return err
			}
		}
		for _, m := range t.Methods {
			if err := writeDecl(buf, fset, pkg, "func ("+t.Name+") "+m.Name, m.Decl, m.Doc); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeDecl(buf *bytes.Buffer, fset *token.FileSet, pkg *doc.Package, title string, decl ast.Node, text string) error {
	fmt.Fprintf(buf, "### %s\n\n```go\n", title)
	if err := printer.Fprint(buf, fset, decl); err != nil {
		return err
	}
	buf.WriteString("\n```\n\n")
	if text != "" {
		buf.Write(pkg.Markdown(text))
		buf.WriteString("\n")
	}
	return nil
}
