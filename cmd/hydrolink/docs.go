package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/hydrolink/internal/docsite"
)

func newDocsCmd(g *globalFlags, root *cobra.Command) *cobra.Command {
	var packageDir, docsDir string
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Regenerate the API reference and build the HTML documentation",
		Long: `Docs removes the previous build output and generated reference pages,
regenerates the reference from the Go packages under --package-dir and the
command line pages from this command tree, then renders every markdown file in
--docs-dir to <docs-dir>/_build/html.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return docsite.NewBuilder(packageDir, docsDir, root, logger).Build(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&packageDir, "package-dir", "internal", "directory of Go packages to document")
	cmd.Flags().StringVar(&docsDir, "docs-dir", "docs", "documentation source directory")
	return cmd
}
