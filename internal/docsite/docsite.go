// Package docsite builds the project documentation: API reference pages
// generated from Go package docs and the CLI, rendered with the hand-written
// pages to HTML.
package docsite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Generated file and directory names inside the docs directory.
const (
	BuildDir      = "_build"
	ReferenceFile = "reference.md"
	CLIDir        = "cli"
)

// Builder regenerates and renders the documentation site.
type Builder struct {
	packageDir string
	docsDir    string
	root       *cobra.Command
	logger     *slog.Logger
}

// NewBuilder creates a Builder documenting the Go packages under packageDir
// into docsDir. root is the command line tree to document; nil skips the CLI
// pages.
func NewBuilder(packageDir, docsDir string, root *cobra.Command, logger *slog.Logger) *Builder {
	return &Builder{
		packageDir: packageDir,
		docsDir:    docsDir,
		root:       root,
		logger:     logger,
	}
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Build runs every step in order and stops at the first failure. Output
// depends only on the sources, so repeated builds produce identical files.
func (b *Builder) Build(ctx context.Context) error {
	steps := []step{
		{"remove build output", b.clean},
		{"remove generated reference", b.removeGenerated},
		{"generate package reference", b.generateReference},
		{"generate cli reference", b.generateCLI},
		{"clean", b.clean},
		{"html", b.renderHTML},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.logger.Debug("docs step", "step", s.name)
		if err := s.run(ctx); err != nil {
			return fmt.Errorf("docs %s: %w", s.name, err)
		}
	}

	b.logger.Info("docs built", "output", b.HTMLDir())
	return nil
}

// HTMLDir is where rendered pages are written.
func (b *Builder) HTMLDir() string {
	return filepath.Join(b.docsDir, BuildDir, "html")
}

func (b *Builder) clean(_ context.Context) error {
	return os.RemoveAll(filepath.Join(b.docsDir, BuildDir))
}

func (b *Builder) removeGenerated(_ context.Context) error {
	if err := os.Remove(filepath.Join(b.docsDir, ReferenceFile)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.RemoveAll(filepath.Join(b.docsDir, CLIDir))
}
