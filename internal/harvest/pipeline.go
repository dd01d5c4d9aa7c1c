package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/stacklok/csw-harvester/internal/config"
	"github.com/stacklok/csw-harvester/internal/probe"
	"github.com/stacklok/csw-harvester/internal/telemetry"
	"github.com/stacklok/csw-harvester/internal/validators"
)

// NotValidPrefix precedes invalid URLs in print mode
const NotValidPrefix = "NOT VALID "

// Pipeline routes spreadsheet rows to standard output or to the registry
type Pipeline struct {
	filter   config.FilterConfig
	policy   Policy
	output   config.OutputConfig
	probing  bool
	registry Registry
	prober   Prober
	out      io.Writer
	metrics  *telemetry.HarvestMetrics
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithRegistry sets the registry used in write mode
func WithRegistry(registry Registry) Option {
	return func(p *Pipeline) {
		p.registry = registry
	}
}

// WithProber sets the prober used when a liveness selection is configured
func WithProber(prober Prober) Option {
	return func(p *Pipeline) {
		p.prober = prober
	}
}

// WithOutput sets the print mode destination, standard output by default
func WithOutput(out io.Writer) Option {
	return func(p *Pipeline) {
		p.out = out
	}
}

// WithMetrics sets the run metrics
func WithMetrics(metrics *telemetry.HarvestMetrics) Option {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// NewPipeline creates a pipeline for cfg
func NewPipeline(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	p := &Pipeline{
		filter:  cfg.Filter(),
		policy:  NewPolicy(cfg.Selection(), cfg.Output().Write),
		output:  cfg.Output(),
		probing: cfg.Selection().ProbingEnabled(),
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.output.Write && p.registry == nil {
		return nil, fmt.Errorf("registry is required in write mode")
	}
	if p.probing && p.prober == nil {
		return nil, fmt.Errorf("prober is required when filtering by service liveness")
	}
	return p, nil
}

// Run processes rows in order and returns the run summary
func (p *Pipeline) Run(ctx context.Context, rows []SourceRow) (*Summary, error) {
	rc := NewRunContext()

	for i := range rows {
		if err := ctx.Err(); err != nil {
			summary := rc.Summary()
			return &summary, fmt.Errorf("harvest interrupted at row %d: %w", i+1, err)
		}
		if err := p.processRow(ctx, rc, rows[i]); err != nil {
			summary := rc.Summary()
			return &summary, err
		}
	}

	summary := rc.Summary()
	slog.InfoContext(ctx, "Harvest finished",
		"rows", summary.Rows,
		"filtered", summary.Filtered,
		"candidates", summary.Candidates,
		"printed", summary.Printed,
		"written", summary.Written,
		"duplicates", summary.Duplicates,
		"invalid", summary.Invalid,
		"inactive", summary.Inactive,
		"failed", summary.Failed)
	return &summary, nil
}

func (p *Pipeline) processRow(ctx context.Context, rc *RunContext, row SourceRow) error {
	rc.summary.Rows++
	if !row.Matches(p.filter) {
		rc.summary.Filtered++
		p.metrics.RecordRow(telemetry.RowFiltered)
		return nil
	}
	p.metrics.RecordRow(telemetry.RowAccepted)

	for _, candidate := range Expand(row) {
		rc.summary.Candidates++
		verdict := p.classify(ctx, rc, candidate)
		p.metrics.RecordCandidate(verdict.Status())

		if !p.policy.Admits(verdict) {
			rc.summary.Skipped++
			continue
		}

		if p.output.Write {
			p.write(ctx, rc, candidate)
			continue
		}
		if err := p.print(candidate, verdict); err != nil {
			return err
		}
		rc.summary.Printed++
		p.metrics.RecordPrinted()
	}
	return nil
}

func (p *Pipeline) classify(ctx context.Context, rc *RunContext, candidate Candidate) Verdict {
	if !validators.IsValidURL(candidate.URL) {
		if rc.Invalid.Add(candidate.URL) {
			slog.DebugContext(ctx, "Invalid service URL", "name", candidate.Name(), "url", candidate.URL)
		}
		return Verdict{Valid: false, Probe: probe.Result{State: probe.StateUnknown}}
	}

	verdict := Verdict{Valid: true, Probe: probe.Result{State: probe.StateUnknown}}
	if !p.probing {
		return verdict
	}

	result, ok := rc.probeResult(candidate.URL)
	if !ok {
		result = p.prober.Probe(ctx, candidate.URL)
		rc.rememberProbe(candidate.URL, result)
		p.metrics.RecordProbe(string(result.State), string(result.Reason))
	}
	if !result.Live() && rc.Inactive.Add(candidate.URL) {
		slog.DebugContext(ctx, "Inactive service",
			"url", candidate.URL, "reason", string(result.Reason), "message", result.Message)
	}
	verdict.Probe = result
	return verdict
}

func (p *Pipeline) write(ctx context.Context, rc *RunContext, candidate Candidate) {
	name, err := validators.ValidateEntryName(candidate.Name())
	if err != nil {
		rc.summary.Failed++
		p.metrics.RecordWrite(telemetry.WriteFailed)
		slog.WarnContext(ctx, "Skipping entry with invalid name", "name", candidate.Name(), "error", err)
		return
	}

	exists, err := p.registry.Exists(ctx, name, candidate.URL)
	if err != nil {
		rc.summary.Failed++
		p.metrics.RecordWrite(telemetry.WriteFailed)
		slog.ErrorContext(ctx, "Failed to check registry", "name", name, "url", candidate.URL, "error", err)
		return
	}
	if exists {
		rc.summary.Duplicates++
		p.metrics.RecordWrite(telemetry.WriteDuplicate)
		slog.DebugContext(ctx, "Entry already in registry", "name", name, "url", candidate.URL)
		return
	}

	changed, err := p.registry.Append(ctx, name, candidate.URL)
	switch {
	case err != nil:
		rc.summary.Failed++
		p.metrics.RecordWrite(telemetry.WriteFailed)
		slog.ErrorContext(ctx, "Failed to append registry entry", "name", name, "url", candidate.URL, "error", err)
	case !changed:
		rc.summary.Duplicates++
		p.metrics.RecordWrite(telemetry.WriteDuplicate)
	default:
		rc.summary.Written++
		p.metrics.RecordWrite(telemetry.WriteAppended)
		slog.InfoContext(ctx, "Added registry entry", "name", name, "url", candidate.URL)
	}
}

// print writes one entry line, and a blank line when vertical spacing is enabled
func (p *Pipeline) print(candidate Candidate, verdict Verdict) error {
	line := FormatEntry(candidate, p.output.Separator)
	if !verdict.Valid {
		line = NotValidPrefix + candidate.URL
	}
	if p.output.PrintVertSpace {
		line += "\n"
	}
	if _, err := fmt.Fprintln(p.out, line); err != nil {
		return &OutputError{Err: err}
	}
	return nil
}

// FormatEntry renders a candidate as "{prefix}{country}, {level}, {provider}{separator}{url}"
func FormatEntry(candidate Candidate, separator string) string {
	return candidate.Name() + separator + candidate.URL
}

// OutputError is returned when print mode output cannot be written
type OutputError struct {
	Err error
}

// Error returns the error message
func (e *OutputError) Error() string {
	return fmt.Sprintf("failed to write output: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *OutputError) Unwrap() error {
	return e.Err
}

// IsOutputError reports whether err is an output failure
func IsOutputError(err error) bool {
	var outErr *OutputError
	return errors.As(err, &outErr)
}
