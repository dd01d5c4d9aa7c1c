package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stacklok/csw-harvester/internal/config"
	"github.com/stacklok/csw-harvester/internal/harvest"
	"github.com/stacklok/csw-harvester/internal/probe"
	"github.com/stacklok/csw-harvester/internal/registry"
	"github.com/stacklok/csw-harvester/internal/sources"
	"github.com/stacklok/csw-harvester/internal/spreadsheet"
)

func newHarvestCmd() *cobra.Command {
	harvestCmd := &cobra.Command{
		Use:   "harvest",
		Short: "Harvest CSW connections from the API spreadsheet",
		Long: `Harvest reads the API spreadsheet from --url or --spreadsheets, keeps the rows
matching --level and prints one line per catalogue URL:

  {n. }{country}, {governmental level}, {provider}{separator}{url}

With --write the new entries are appended to the --xml registry instead,
after validation against the --xsd schema. Entries already present are
skipped. Settings can also come from a YAML file (--config) or from
CSW_HARVESTER_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(newViper(), cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := config.New(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runHarvest(ctx, cmd, cfg, sources.NewSourceHandlerFactory(nil))
		},
	}
	addHarvestFlags(harvestCmd.Flags())
	return harvestCmd
}

// runHarvest acquires and parses the spreadsheet, then runs the pipeline.
// Setup failures abort before any row is read.
func runHarvest(ctx context.Context, cmd *cobra.Command, cfg *config.Config, factory sources.SourceHandlerFactory) (err error) {
	rep := newReporter(cfg)
	rep.start(ctx)
	defer func() {
		rep.finish(ctx, err)
	}()

	var store *registry.Store
	if cfg.Output().Write {
		store, err = registry.Open(ctx, cfg.Registry().XMLPath, cfg.Registry().XSDPath)
		if err != nil {
			return fmt.Errorf("failed to open registry: %w", err)
		}
	}

	rows, err := readRows(ctx, cfg.Source(), factory, rep)
	if err != nil {
		return err
	}

	opts := []harvest.Option{
		harvest.WithOutput(cmd.OutOrStdout()),
		harvest.WithMetrics(rep.metrics),
	}
	if store != nil {
		opts = append(opts, harvest.WithRegistry(store))
	}
	if cfg.Selection().ProbingEnabled() {
		opts = append(opts, harvest.WithProber(probe.NewCSWProber(nil, cfg.Probe().Timeout)))
	}

	pipeline, err := harvest.NewPipeline(cfg, opts...)
	if err != nil {
		return err
	}

	summary, err := pipeline.Run(ctx, rows)
	rep.summary = summary
	return err
}

// readRows acquires the source spreadsheet and returns the data rows of the designated sheet
func readRows(
	ctx context.Context,
	src config.SourceConfig,
	factory sources.SourceHandlerFactory,
	rep *reporter,
) ([]harvest.SourceRow, error) {
	handler, err := factory.CreateHandler(src.Type())
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Fetching source spreadsheet", "type", src.Type(), "location", src.Location())
	doc, err := handler.Fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spreadsheet: %w", err)
	}
	rep.sourceFetched(ctx, doc)

	workbook, err := spreadsheet.Parse(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet %s: %w", doc.Location, err)
	}
	sheet, err := workbook.Sheet(src.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet %s: %w", doc.Location, err)
	}

	rows := harvest.NewSourceRows(sheet.DataRows())
	slog.InfoContext(ctx, "Read source spreadsheet", "sheet", sheet.Name, "rows", len(rows))
	return rows, nil
}
