package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stacklok/csw-harvester/internal/validators"
)

const (
	// DefaultSeparator separates the display name from the URL in print mode
	DefaultSeparator = ": "

	// DefaultProbeTimeout bounds each CSW handshake
	DefaultProbeTimeout = 10 * time.Second

	// DefaultFetchRetries is the number of extra acquisition attempts after a transport failure
	DefaultFetchRetries = 2

	// MaxFetchRetries caps FetchRetries
	MaxFetchRetries = 10
)

const (
	// RegistryExtension is the extension of the registry file
	RegistryExtension = ".xml"

	// SchemaExtension is the extension of the registry schema file
	SchemaExtension = ".xsd"

	// SpreadsheetExtension is the extension of local source spreadsheets
	SpreadsheetExtension = ".ods"
)

const (
	// SourceTypeRemote is the type for spreadsheets downloaded over HTTP(S)
	SourceTypeRemote = "remote"

	// SourceTypeFile is the type for spreadsheets read from the local filesystem
	SourceTypeFile = "file"
)

// Validity selects candidates by URL syntax
type Validity int

const (
	// ValidityAny admits valid and invalid URLs
	ValidityAny Validity = iota
	// ValidityValidOnly admits syntactically valid URLs only
	ValidityValidOnly
	// ValidityInvalidOnly admits syntactically invalid URLs only
	ValidityInvalidOnly
)

// String returns the flag spelling of the selection
func (v Validity) String() string {
	switch v {
	case ValidityValidOnly:
		return "valid-service"
	case ValidityInvalidOnly:
		return "not-valid-service"
	default:
		return "any"
	}
}

// Liveness selects candidates by probe outcome
type Liveness int

const (
	// LivenessAny disables probing
	LivenessAny Liveness = iota
	// LivenessLiveOnly admits services answering the handshake
	LivenessLiveOnly
	// LivenessDeadOnly admits services failing the handshake
	LivenessDeadOnly
)

// String returns the flag spelling of the selection
func (l Liveness) String() string {
	switch l {
	case LivenessLiveOnly:
		return "active-service"
	case LivenessDeadOnly:
		return "not-active-service"
	default:
		return "any"
	}
}

// FieldError describes one invalid configuration field
type FieldError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

// Error returns the error message
func (e *FieldError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg = fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *FieldError) Unwrap() error {
	return e.Err
}

// SourceConfig describes where the spreadsheet comes from
type SourceConfig struct {
	URL     string
	Path    string
	Sheet   string
	Retries int
	Timeout time.Duration
}

// IsRemote reports whether the source is downloaded
func (s SourceConfig) IsRemote() bool {
	return s.URL != ""
}

// Type returns SourceTypeRemote or SourceTypeFile
func (s SourceConfig) Type() string {
	if s.IsRemote() {
		return SourceTypeRemote
	}
	return SourceTypeFile
}

// Location returns the URL or path of the source
func (s SourceConfig) Location() string {
	if s.IsRemote() {
		return s.URL
	}
	return s.Path
}

// FilterConfig describes row selection
type FilterConfig struct {
	Level string
	Field string
}

// MatchesAll reports whether filtering is disabled
func (f FilterConfig) MatchesAll() bool {
	return f.Level == LevelAll
}

// SelectionConfig describes candidate selection
type SelectionConfig struct {
	Validity Validity
	Liveness Liveness
}

// ProbingEnabled reports whether candidates must be probed
func (s SelectionConfig) ProbingEnabled() bool {
	return s.Liveness != LivenessAny
}

// OutputConfig describes where accepted candidates go
type OutputConfig struct {
	Write          bool
	Separator      string
	PrintVertSpace bool
}

// RegistryConfig locates the registry and its schema
type RegistryConfig struct {
	XMLPath string
	XSDPath string
}

// ProbeConfig configures service probing
type ProbeConfig struct {
	Timeout time.Duration
}

// ReportingConfig configures run reports
type ReportingConfig struct {
	StatusFile  string
	MetricsFile string
}

// Config is the validated, immutable harvester configuration.
// Accessors return copies.
type Config struct {
	source    SourceConfig
	filter    FilterConfig
	selection SelectionConfig
	output    OutputConfig
	registry  RegistryConfig
	probe     ProbeConfig
	reporting ReportingConfig
}

// Source returns the source configuration
func (c *Config) Source() SourceConfig { return c.source }

// Filter returns the row filter configuration
func (c *Config) Filter() FilterConfig { return c.filter }

// Selection returns the candidate selection configuration
func (c *Config) Selection() SelectionConfig { return c.selection }

// Output returns the output configuration
func (c *Config) Output() OutputConfig { return c.output }

// Registry returns the registry configuration
func (c *Config) Registry() RegistryConfig { return c.registry }

// Probe returns the probe configuration
func (c *Config) Probe() ProbeConfig { return c.probe }

// Reporting returns the reporting configuration
func (c *Config) Reporting() ReportingConfig { return c.reporting }

// New validates opts and builds a Config.
// All offending fields are reported at once, joined with errors.Join.
func New(opts Options) (*Config, error) {
	cfg := &Config{}
	var errs []error

	source, sourceErrs := validateSource(opts)
	errs = append(errs, sourceErrs...)
	cfg.source = source

	filter, err := validateFilter(opts)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.filter = filter

	selection, selectionErrs := validateSelection(opts)
	errs = append(errs, selectionErrs...)
	cfg.selection = selection

	cfg.output = OutputConfig{
		Write:          opts.Write,
		Separator:      opts.Separator,
		PrintVertSpace: opts.PrintVertSpace,
	}

	registry, registryErrs := validateRegistry(opts)
	errs = append(errs, registryErrs...)
	cfg.registry = registry

	probeTimeout, err := parseDuration("probeTimeout", opts.ProbeTimeout, false)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.probe = ProbeConfig{Timeout: probeTimeout}

	cfg.reporting = ReportingConfig{
		StatusFile:  strings.TrimSpace(opts.StatusFile),
		MetricsFile: strings.TrimSpace(opts.MetricsFile),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func validateSource(opts Options) (SourceConfig, []error) {
	var errs []error
	source := SourceConfig{
		URL:     strings.TrimSpace(opts.URL),
		Path:    strings.TrimSpace(opts.Spreadsheets),
		Sheet:   strings.TrimSpace(opts.Sheet),
		Retries: opts.FetchRetries,
	}

	switch {
	case source.URL == "" && source.Path == "":
		errs = append(errs, &FieldError{Field: "url", Reason: "one of url or spreadsheets is required"})
	case source.URL != "" && source.Path != "":
		errs = append(errs, &FieldError{Field: "url", Reason: "url and spreadsheets are mutually exclusive"})
	case source.URL != "":
		if err := validators.CheckURL(source.URL); err != nil {
			errs = append(errs, &FieldError{Field: "url", Value: source.URL, Reason: "invalid source URL", Err: err})
		}
	default:
		if err := CheckFile(source.Path, SpreadsheetExtension); err != nil {
			errs = append(errs, &FieldError{Field: "spreadsheets", Value: source.Path, Reason: "invalid spreadsheet", Err: err})
		}
	}

	if opts.FetchRetries < 0 || opts.FetchRetries > MaxFetchRetries {
		errs = append(errs, &FieldError{
			Field:  "fetchRetries",
			Value:  fmt.Sprint(opts.FetchRetries),
			Reason: fmt.Sprintf("must be between 0 and %d", MaxFetchRetries),
		})
	}

	timeout, err := parseDuration("fetchTimeout", opts.FetchTimeout, true)
	if err != nil {
		errs = append(errs, err)
	}
	source.Timeout = timeout

	return source, errs
}

func validateFilter(opts Options) (FilterConfig, error) {
	field, ok := normalizeFilterField(opts.FilterField)
	if !ok {
		return FilterConfig{}, &FieldError{
			Field:  "filterField",
			Value:  opts.FilterField,
			Reason: fmt.Sprintf("must be one of %s, %s", FilterFieldThemes, FilterFieldGovernmentalLevel),
		}
	}

	level, ok := normalizeLevel(field, opts.Level)
	if !ok {
		return FilterConfig{}, &FieldError{
			Field:  "level",
			Value:  opts.Level,
			Reason: fmt.Sprintf("must be %s or one of %s", LevelAll, strings.Join(LevelsFor(field), ", ")),
		}
	}

	return FilterConfig{Level: level, Field: field}, nil
}

func validateSelection(opts Options) (SelectionConfig, []error) {
	var errs []error
	selection := SelectionConfig{}

	switch {
	case opts.ValidService && opts.NotValidService:
		errs = append(errs, &FieldError{Field: "validService", Reason: "validService and notValidService are mutually exclusive"})
	case opts.ValidService:
		selection.Validity = ValidityValidOnly
	case opts.NotValidService:
		selection.Validity = ValidityInvalidOnly
		if opts.Write {
			errs = append(errs, &FieldError{Field: "notValidService", Reason: "invalid URLs cannot be written to the registry"})
		}
	}

	switch {
	case opts.ActiveService && opts.NotActiveService:
		errs = append(errs, &FieldError{Field: "activeService", Reason: "activeService and notActiveService are mutually exclusive"})
	case opts.ActiveService:
		selection.Liveness = LivenessLiveOnly
	case opts.NotActiveService:
		selection.Liveness = LivenessDeadOnly
	}

	return selection, errs
}

func validateRegistry(opts Options) (RegistryConfig, []error) {
	registry := RegistryConfig{
		XMLPath: strings.TrimSpace(opts.XML),
		XSDPath: strings.TrimSpace(opts.XSD),
	}
	if !opts.Write {
		return registry, nil
	}

	var errs []error
	if registry.XMLPath == "" {
		errs = append(errs, &FieldError{Field: "xml", Reason: "registry file is required when writing"})
	} else if err := CheckFile(registry.XMLPath, RegistryExtension); err != nil {
		errs = append(errs, &FieldError{Field: "xml", Value: registry.XMLPath, Reason: "invalid registry file", Err: err})
	}

	if registry.XSDPath == "" {
		errs = append(errs, &FieldError{Field: "xsd", Reason: "schema file is required when writing"})
	} else if err := CheckFile(registry.XSDPath, SchemaExtension); err != nil {
		errs = append(errs, &FieldError{Field: "xsd", Value: registry.XSDPath, Reason: "invalid schema file", Err: err})
	}

	return registry, errs
}
