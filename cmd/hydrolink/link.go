package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/hydrolink/internal/adapter/arcgis"
	"github.com/couchcryptid/hydrolink/internal/adapter/sqlite"
	"github.com/couchcryptid/hydrolink/internal/adapter/tabular"
	"github.com/couchcryptid/hydrolink/internal/domain"
	"github.com/couchcryptid/hydrolink/internal/observability"
	"github.com/couchcryptid/hydrolink/internal/pipeline"
	"github.com/couchcryptid/hydrolink/internal/ui"
)

type inputFlags struct {
	file   string
	fields tabular.Fields
	crs    int
	buffer int
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "input-file", "", "input file, including extension (.csv or .shp)")
	cmd.Flags().StringVar(&f.fields.Lat, "latitude-field", "y", "field name for latitude, case sensitive")
	cmd.Flags().StringVar(&f.fields.Lon, "longitude-field", "x", "field name for longitude, case sensitive")
	cmd.Flags().StringVar(&f.fields.StreamName, "stream-name-field", "stream", "field name for stream name, None if there is none, case sensitive")
	cmd.Flags().StringVar(&f.fields.ID, "identifier-field", "id", "field name for identifier, case sensitive")
	cmd.Flags().IntVar(&f.crs, "crs", 4269, "EPSG code of the input coordinates, NAD83 (4269) recommended")
	cmd.Flags().IntVar(&f.buffer, "buffer", domain.DefaultBufferMeters, "search buffer in meters, max 2000")
	_ = cmd.MarkFlagRequired("input-file")
}

func (f *inputFlags) read() ([]domain.Observation, error) {
	in := tabular.Input{Fields: f.fields, CRS: f.crs, BufferMeters: f.buffer}
	return in.ReadFile(f.file)
}

type linkFlags struct {
	input     inputFlags
	version   string
	method    string
	hydroType string
	cutoff    float64
	output    string
	db        string
	workers   int
}

func (f *linkFlags) options() domain.Options {
	return domain.Options{
		Version:          domain.NHDVersion(f.version),
		Method:           domain.Method(f.method),
		HydroType:        domain.HydroType(f.hydroType),
		SimilarityCutoff: f.cutoff,
	}
}

func newLinkCmd(g *globalFlags) *cobra.Command {
	f := &linkFlags{}

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Hydrolink every point in a CSV file or point shapefile",
		Long: `Hydrolink reads points from the input file, links each to the chosen NHD
version and appends one row per point to the output CSV. Points that cannot be
linked are written with the reason in the "hydrolink message" column.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLink(cmd.Context(), g, f, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f.input.register(cmd)
	cmd.Flags().StringVar(&f.method, "method", string(domain.MethodNameMatch), "selection method: name_match or closest")
	cmd.Flags().StringVar(&f.version, "nhd-version", string(domain.NHDHighRes), "NHD version: nhdhr or nhdplusv2")
	cmd.Flags().StringVar(&f.hydroType, "hydro-type", string(domain.HydroFlowline), "feature type: flowline or waterbody")
	cmd.Flags().Float64Var(&f.cutoff, "similarity-cutoff", domain.DefaultSimilarityCutoff, "lowest name similarity counted as a match, 0.6 to 1.0")
	cmd.Flags().StringVar(&f.output, "output", "", "output CSV, appended to if it exists (default <input>_output.csv)")
	cmd.Flags().StringVar(&f.db, "db", "", "also record results in this SQLite database")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "points linked concurrently (default $WORKERS or 4)")
	return cmd
}

func runLink(ctx context.Context, g *globalFlags, f *linkFlags, out, errOut io.Writer) error {
	opts := f.options()
	if err := opts.Validate(); err != nil {
		return err
	}

	cfg, logger, err := g.load(errOut)
	if err != nil {
		return err
	}
	logger = logger.With("run_id", uuid.NewString())

	points, err := f.input.read()
	if err != nil {
		return err
	}
	logger.Info("input read", "file", f.input.file, "points", len(points))

	output := f.output
	if output == "" {
		output = strings.TrimSuffix(f.input.file, filepath.Ext(f.input.file)) + "_output.csv"
	}

	var store *sqlite.Store
	if f.db != "" {
		store, err = sqlite.Open(f.db, nil)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	workers := f.workers
	if workers <= 0 {
		workers = cfg.Workers
	}

	metrics := observability.NewMetrics()
	client := arcgis.NewClient(cfg, logger, metrics)
	service := arcgis.NewCachedService(client, cfg.NHDCacheSize, metrics)
	linker := domain.NewLinker(service, opts, logger)
	batch := pipeline.NewBatch(linker, workers, logger, metrics)

	spin := ui.NewSpinner(os.Stderr, "hydrolinking")
	batch.OnProgress(spin.Progress)
	spin.Start()
	results, err := batch.Run(ctx, points, opts)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("hydrolink: %w", err)
	}

	if err := tabular.AppendCSV(output, opts.Version, results); err != nil {
		return err
	}

	var counts map[domain.Status]int
	if store != nil {
		if err := store.SaveBatch(ctx, results); err != nil {
			return err
		}
		if counts, err = store.CountByStatus(ctx, opts.Version); err != nil {
			return err
		}
	}

	var linked int
	for _, hl := range results {
		if hl.Linked() {
			linked++
		}
	}
	fmt.Fprintf(out, "hydrolinked %d of %d points to %s, output exported to %s\n", linked, len(results), opts.Version, output)
	if store != nil {
		fmt.Fprintf(out, "%s now holds %d linked and %d failed %s records\n",
			f.db, counts[domain.StatusSuccess], counts[domain.StatusFailed], opts.Version)
	}
	return nil
}
