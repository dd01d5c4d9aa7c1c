package harvest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/csw-harvester/internal/config"
	"github.com/stacklok/csw-harvester/internal/harvest/mocks"
	"github.com/stacklok/csw-harvester/internal/probe"
	"github.com/stacklok/csw-harvester/internal/telemetry"
)

// newTestConfig builds a config for a remote source after applying mutate
func newTestConfig(t *testing.T, mutate func(*config.Options)) *config.Config {
	t.Helper()

	opts := config.DefaultOptions()
	opts.URL = "https://data.test/apis.ods"
	if mutate != nil {
		mutate(&opts)
	}
	if opts.Write {
		dir := t.TempDir()
		opts.XML = filepath.Join(dir, "connections.xml")
		opts.XSD = filepath.Join(dir, "connections.xsd")
		require.NoError(t, os.WriteFile(opts.XML, []byte("<qgsCSWConnections/>"), 0600))
		require.NoError(t, os.WriteFile(opts.XSD, []byte("<xs:schema/>"), 0600))
	}

	cfg, err := config.New(opts)
	require.NoError(t, err)
	return cfg
}

func geospatialRow(country, level, provider, urls string) SourceRow {
	return SourceRow{
		ProviderCountry:   country,
		APIProvider:       provider,
		URLField:          urls,
		Themes:            "Geospatial",
		GovernmentalLevel: level,
	}
}

func runPrint(t *testing.T, cfg *config.Config, rows []SourceRow, opts ...Option) (string, *Summary) {
	t.Helper()

	var out bytes.Buffer
	pipeline, err := NewPipeline(cfg, append([]Option{WithOutput(&out)}, opts...)...)
	require.NoError(t, err)

	summary, err := pipeline.Run(context.Background(), rows)
	require.NoError(t, err)
	return out.String(), summary
}

func TestPipeline_Print_MultiURLRow(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t, func(o *config.Options) {
		o.Level = "Geospatial"
		o.Separator = ": "
	})
	rows := []SourceRow{geospatialRow("US", "National", "Agency", "http://a.test\nhttp://b.test")}

	out, summary := runPrint(t, cfg, rows)

	assert.Equal(t, "1. US, National, Agency: http://a.test\n2. US, National, Agency: http://b.test\n", out)
	assert.Equal(t, 1, summary.Rows)
	assert.Equal(t, 2, summary.Candidates)
	assert.Equal(t, 2, summary.Printed)
}

func TestPipeline_Print_FilterExcludesRows(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t, func(o *config.Options) { o.Level = "Geospatial" })
	health := geospatialRow("FR", "Regional", "ARS", "http://health.test")
	health.Themes = "Health"
	rows := []SourceRow{health, geospatialRow("DE", "National", "BKG", "http://geo.test")}

	out, summary := runPrint(t, cfg, rows)

	assert.Equal(t, "DE, National, BKG: http://geo.test\n", out)
	assert.NotContains(t, out, "health.test")
	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, 1, summary.Filtered)
	assert.Equal(t, 1, summary.Candidates)
}

func TestPipeline_Print_InvalidURLs(t *testing.T) {
	t.Parallel()

	rows := []SourceRow{
		geospatialRow("US", "National", "Agency", "http://a.test"),
		geospatialRow("US", "Local", "City", "not-a-url"),
	}

	tests := []struct {
		name        string
		mutate      func(*config.Options)
		expected    string
		wantInvalid int
	}{
		{
			name:        "all urls",
			mutate:      nil,
			expected:    "US, National, Agency: http://a.test\nNOT VALID not-a-url\n",
			wantInvalid: 1,
		},
		{
			name:        "valid only",
			mutate:      func(o *config.Options) { o.ValidService = true },
			expected:    "US, National, Agency: http://a.test\n",
			wantInvalid: 1,
		},
		{
			name:        "invalid only",
			mutate:      func(o *config.Options) { o.NotValidService = true },
			expected:    "NOT VALID not-a-url\n",
			wantInvalid: 1,
		},
		{
			name: "vertical space",
			mutate: func(o *config.Options) {
				o.PrintVertSpace = true
				o.Separator = " -> "
			},
			expected:    "US, National, Agency -> http://a.test\n\nNOT VALID not-a-url\n\n",
			wantInvalid: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, summary := runPrint(t, newTestConfig(t, tt.mutate), rows)
			assert.Equal(t, tt.expected, out)
			assert.Equal(t, tt.wantInvalid, summary.Invalid)
			assert.Equal(t, []string{"not-a-url"}, summary.InvalidURLs)
		})
	}
}

func TestPipeline_Print_LivenessSelection(t *testing.T) {
	t.Parallel()

	rows := []SourceRow{
		geospatialRow("US", "National", "Live", "http://live.test/csw"),
		geospatialRow("US", "National", "Dead", "http://dead.test/csw"),
		geospatialRow("US", "Regional", "Live again", "http://live.test/csw"),
	}

	tests := []struct {
		name     string
		mutate   func(*config.Options)
		expected string
	}{
		{
			name:     "active only",
			mutate:   func(o *config.Options) { o.ActiveService = true },
			expected: "US, National, Live: http://live.test/csw\nUS, Regional, Live again: http://live.test/csw\n",
		},
		{
			name:     "not active only",
			mutate:   func(o *config.Options) { o.NotActiveService = true },
			expected: "US, National, Dead: http://dead.test/csw\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			prober := mocks.NewMockProber(ctrl)
			prober.EXPECT().Probe(gomock.Any(), "http://live.test/csw").
				Return(probe.Result{State: probe.StateLive}).Times(1)
			prober.EXPECT().Probe(gomock.Any(), "http://dead.test/csw").
				Return(probe.Result{State: probe.StateDead, Reason: probe.ReasonExceptionReport}).Times(1)

			out, summary := runPrint(t, newTestConfig(t, tt.mutate), rows, WithProber(prober))

			assert.Equal(t, tt.expected, out)
			assert.Equal(t, 1, summary.Inactive)
			assert.Equal(t, []string{"http://dead.test/csw"}, summary.InactiveURLs)
		})
	}
}

func TestPipeline_Print_NoProbingWithoutLivenessSelection(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	prober := mocks.NewMockProber(ctrl)
	prober.EXPECT().Probe(gomock.Any(), gomock.Any()).Times(0)

	out, _ := runPrint(t, newTestConfig(t, nil),
		[]SourceRow{geospatialRow("US", "National", "Agency", "http://a.test")}, WithProber(prober))
	assert.Equal(t, "US, National, Agency: http://a.test\n", out)
}

func TestPipeline_Write(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t, func(o *config.Options) { o.Write = true })
	rows := []SourceRow{
		geospatialRow("X", "National", "Known", "http://a.test"),
		geospatialRow("US", "National", "Agency", "http://b.test\nhttp://c.test"),
		geospatialRow("Y", "Local", "Broken", "not-a-url"),
	}

	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	gomock.InOrder(
		registry.EXPECT().Exists(gomock.Any(), "X, National, Known", "http://a.test").Return(true, nil),
		registry.EXPECT().Exists(gomock.Any(), "1. US, National, Agency", "http://b.test").Return(false, nil),
		registry.EXPECT().Append(gomock.Any(), "1. US, National, Agency", "http://b.test").Return(true, nil),
		registry.EXPECT().Exists(gomock.Any(), "2. US, National, Agency", "http://c.test").Return(false, nil),
		registry.EXPECT().Append(gomock.Any(), "2. US, National, Agency", "http://c.test").Return(false, nil),
	)

	metrics := telemetry.NewHarvestMetrics()
	var out bytes.Buffer
	pipeline, err := NewPipeline(cfg, WithRegistry(registry), WithOutput(&out), WithMetrics(metrics))
	require.NoError(t, err)

	summary, err := pipeline.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Empty(t, out.String(), "write mode must not print entries")
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 2, summary.Duplicates)
	assert.Equal(t, 1, summary.Skipped, "invalid URL is excluded in write mode")
	assert.Equal(t, 1, summary.Invalid)
	assert.Zero(t, summary.Failed)
}

func TestPipeline_Write_FailuresDoNotAbort(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t, func(o *config.Options) { o.Write = true })
	rows := []SourceRow{
		geospatialRow("A", "National", "First", "http://a.test"),
		geospatialRow("B", "National", "Second", "http://b.test"),
		geospatialRow("C", "National", "Third", "http://c.test"),
	}

	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	registry.EXPECT().Exists(gomock.Any(), "A, National, First", "http://a.test").Return(false, errors.New("parse error"))
	registry.EXPECT().Exists(gomock.Any(), "B, National, Second", "http://b.test").Return(false, nil)
	registry.EXPECT().Append(gomock.Any(), "B, National, Second", "http://b.test").Return(false, errors.New("schema violation"))
	registry.EXPECT().Exists(gomock.Any(), "C, National, Third", "http://c.test").Return(false, nil)
	registry.EXPECT().Append(gomock.Any(), "C, National, Third", "http://c.test").Return(true, nil)

	pipeline, err := NewPipeline(cfg, WithRegistry(registry))
	require.NoError(t, err)

	summary, err := pipeline.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1, summary.Written)
}

func TestPipeline_Write_ActiveOnly(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t, func(o *config.Options) {
		o.Write = true
		o.ActiveService = true
	})
	rows := []SourceRow{
		geospatialRow("A", "National", "Up", "http://up.test"),
		geospatialRow("B", "National", "Down", "http://down.test"),
	}

	ctrl := gomock.NewController(t)
	prober := mocks.NewMockProber(ctrl)
	prober.EXPECT().Probe(gomock.Any(), "http://up.test").Return(probe.Result{State: probe.StateLive})
	prober.EXPECT().Probe(gomock.Any(), "http://down.test").
		Return(probe.Result{State: probe.StateDead, Reason: probe.ReasonUnexpected, Message: "connection refused"})
	registry := mocks.NewMockRegistry(ctrl)
	registry.EXPECT().Exists(gomock.Any(), "A, National, Up", "http://up.test").Return(false, nil)
	registry.EXPECT().Append(gomock.Any(), "A, National, Up", "http://up.test").Return(true, nil)

	pipeline, err := NewPipeline(cfg, WithRegistry(registry), WithProber(prober))
	require.NoError(t, err)

	summary, err := pipeline.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 1, summary.Inactive)
}

func TestPipeline_Run_ContextCancelled(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	pipeline, err := NewPipeline(newTestConfig(t, nil), WithOutput(&out))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := pipeline.Run(ctx, []SourceRow{geospatialRow("US", "National", "Agency", "http://a.test")})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Zero(t, summary.Rows)
	assert.Empty(t, out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestPipeline_Run_OutputFailureAborts(t *testing.T) {
	t.Parallel()

	pipeline, err := NewPipeline(newTestConfig(t, nil), WithOutput(failingWriter{}))
	require.NoError(t, err)

	rows := []SourceRow{
		geospatialRow("US", "National", "Agency", "http://a.test"),
		geospatialRow("US", "National", "Other", "http://b.test"),
	}
	summary, err := pipeline.Run(context.Background(), rows)

	require.Error(t, err)
	assert.True(t, IsOutputError(err))
	assert.Equal(t, 1, summary.Rows, "run must stop at the first output failure")
}

func TestNewPipeline_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline(nil)
	require.Error(t, err)

	_, err = NewPipeline(newTestConfig(t, func(o *config.Options) { o.Write = true }))
	require.ErrorContains(t, err, "registry is required")

	_, err = NewPipeline(newTestConfig(t, func(o *config.Options) { o.ActiveService = true }))
	require.ErrorContains(t, err, "prober is required")
}

func TestFormatEntry(t *testing.T) {
	t.Parallel()

	candidate := Candidate{DisplayName: "US, National, Agency", URL: "http://b.test", Sequence: 2}
	assert.Equal(t, "2. US, National, Agency: http://b.test", FormatEntry(candidate, ": "))
	assert.Equal(t, "2. US, National, Agencyhttp://b.test", FormatEntry(candidate, ""))
}
