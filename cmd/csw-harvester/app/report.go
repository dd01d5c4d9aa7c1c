package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/stacklok/csw-harvester/internal/config"
	"github.com/stacklok/csw-harvester/internal/harvest"
	"github.com/stacklok/csw-harvester/internal/sources"
	"github.com/stacklok/csw-harvester/internal/status"
	"github.com/stacklok/csw-harvester/internal/telemetry"
	"github.com/stacklok/csw-harvester/internal/versions"
)

// reporter collects what a run did and persists it as a status file and a metrics textfile
type reporter struct {
	cfg         *config.Config
	metrics     *telemetry.HarvestMetrics
	persistence status.StatusPersistence

	started  time.Time
	previous *status.RunStatus
	source   *sources.Document
	summary  *harvest.Summary
}

func newReporter(cfg *config.Config) *reporter {
	rep := &reporter{
		cfg:     cfg,
		metrics: telemetry.NewHarvestMetrics(),
	}
	if path := cfg.Reporting().StatusFile; path != "" {
		rep.persistence = status.NewFileStatusPersistence(path)
	}
	return rep
}

// start loads the status of the previous run
func (r *reporter) start(ctx context.Context) {
	r.started = time.Now()
	if r.persistence == nil {
		return
	}

	previous, err := r.persistence.LoadStatus(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load previous run status", "error", err)
		return
	}
	r.previous = previous
	if versions.NewerThanRunning(previous.HarvesterVersion) {
		slog.WarnContext(ctx, "Status file was written by a newer harvester",
			"recorded", previous.HarvesterVersion, "running", versions.GetVersionInfo().Version)
	}
}

// sourceFetched records the acquired document
func (r *reporter) sourceFetched(ctx context.Context, doc *sources.Document) {
	r.source = doc
	if r.previous != nil && r.previous.SourceHash != "" && r.previous.SourceHash == doc.Hash {
		slog.InfoContext(ctx, "Source spreadsheet unchanged since the previous run", "hash", doc.Hash)
	}
}

// finish writes the status and metrics files. Failures are logged and do not change the run result.
func (r *reporter) finish(ctx context.Context, runErr error) {
	finished := time.Now()
	r.metrics.RecordRun(finished.Sub(r.started), finished)

	if r.persistence != nil {
		if err := r.persistence.SaveStatus(ctx, r.runStatus(runErr, finished)); err != nil {
			slog.WarnContext(ctx, "Failed to save run status", "error", err)
		}
	}
	if err := r.metrics.WriteTextfile(r.cfg.Reporting().MetricsFile); err != nil {
		slog.WarnContext(ctx, "Failed to write metrics", "error", err)
	}
}

func (r *reporter) runStatus(runErr error, finished time.Time) *status.RunStatus {
	started := r.started
	st := &status.RunStatus{
		Phase:            status.RunPhaseComplete,
		HarvesterVersion: versions.GetVersionInfo().Version,
		Mode:             "print",
		Source:           r.cfg.Source().Location(),
		StartedAt:        &started,
		FinishedAt:       &finished,
	}
	if r.cfg.Output().Write {
		st.Mode = "write"
	}
	if runErr != nil {
		st.Phase = status.RunPhaseFailed
		st.Message = runErr.Error()
	}
	if r.source != nil {
		st.SourceHash = r.source.Hash
	}
	if s := r.summary; s != nil {
		st.Counts = status.Counts{
			Rows:       s.Rows,
			Filtered:   s.Filtered,
			Candidates: s.Candidates,
			Skipped:    s.Skipped,
			Printed:    s.Printed,
			Written:    s.Written,
			Duplicates: s.Duplicates,
			Invalid:    s.Invalid,
			Inactive:   s.Inactive,
			Failed:     s.Failed,
		}
		st.InvalidURLs = s.InvalidURLs
		st.InactiveURLs = s.InactiveURLs
	}
	return st
}
