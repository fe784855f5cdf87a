package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/hydrolink/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxReported caps the detailed errors printed per phase.
const maxReported = 20

func newValidateCmd(g *globalFlags) *cobra.Command {
	in := &inputFlags{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an input file before hydrolinking it",
		Long: `Validate reads the input file with the same field options as link and checks,
without calling the NHD services, that every point has a unique identifier, a
supported coordinate system, coordinates inside the United States and a buffer
within limits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(in, cmd.OutOrStdout())
		},
	}
	in.register(cmd)
	return cmd
}

func runValidate(in *inputFlags, out io.Writer) error {
	points, err := in.read()
	if err != nil {
		return err
	}

	phases := []*phase{
		validateIdentifiers(points),
		validatePoints(points),
	}

	fmt.Fprintf(out, "=== Input Validation: %s ===\n\n", in.file)
	failed := 0
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			failed += len(p.errors)
		}
		fmt.Fprintf(out, "  %-32s %s\n", p.name, status)
	}

	var named int
	for _, obs := range points {
		if domain.NormalizeWaterName(obs.WaterName) != "" {
			named++
		}
	}
	fmt.Fprintf(out, "\nPoints: %d, with water name: %d\n", len(points), named)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxReported {
				fmt.Fprintf(out, "  ... and %d more\n", len(p.errors)-maxReported)
				break
			}
			fmt.Fprintf(out, "  %s\n", e)
		}
	}

	if failed > 0 {
		return fmt.Errorf("validation failed with %d errors", failed)
	}
	return nil
}

func validateIdentifiers(points []domain.Observation) *phase {
	p := &phase{name: "Identifiers"}
	seen := make(map[string]int, len(points))
	for i, obs := range points {
		if obs.SourceID == "" {
			p.errorf("row %d: empty identifier", i+1)
			continue
		}
		if first, ok := seen[obs.SourceID]; ok {
			p.errorf("row %d: identifier %q duplicates row %d", i+1, obs.SourceID, first)
			continue
		}
		seen[obs.SourceID] = i + 1
	}
	return p
}

func validatePoints(points []domain.Observation) *phase {
	p := &phase{name: "Coordinates and buffer"}
	for i, obs := range points {
		if _, err := domain.NewPoint(obs); err != nil {
			p.errorf("row %d: %s", i+1, describe(err))
		}
	}
	return p
}

// describe hints at swapped latitude and longitude columns.
func describe(err error) string {
	if errors.Is(err, domain.ErrOutsideUS) {
		return err.Error() + " (check latitude and longitude are not swapped)"
	}
	return err.Error()
}
