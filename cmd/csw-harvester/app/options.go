package app

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stacklok/csw-harvester/internal/config"
)

// Flag names double as viper keys; CSW_HARVESTER_<NAME> with dashes as underscores overrides them.
const (
	flagConfig           = "config"
	flagURL              = "url"
	flagSpreadsheets     = "spreadsheets"
	flagSheet            = "sheet"
	flagLevel            = "level"
	flagFilterField      = "filter-field"
	flagSeparator        = "separator"
	flagActiveService    = "active-service"
	flagNotActiveService = "not-active-service"
	flagValidService     = "valid-service"
	flagNotValidService  = "not-valid-service"
	flagWrite            = "write"
	flagPrintVertSpace   = "print-vert-space"
	flagXML              = "xml"
	flagXSD              = "xsd"
	flagProbeTimeout     = "probe-timeout"
	flagFetchRetries     = "fetch-retries"
	flagFetchTimeout     = "fetch-timeout"
	flagStatusFile       = "status-file"
	flagMetricsFile      = "metrics-file"
)

// newViper creates a viper instance reading CSW_HARVESTER_* variables
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// addHarvestFlags registers the harvest flags. Defaults are applied through viper.
func addHarvestFlags(flags *pflag.FlagSet) {
	flags.String(flagConfig, "", "Path to a YAML configuration file")
	flags.String(flagURL, "", "URL of the spreadsheet to download")
	flags.String(flagSpreadsheets, "", "Path of a local spreadsheet (.ods)")
	flags.String(flagSheet, "", "Name of the data sheet (default: first sheet)")
	flags.String(flagLevel, config.LevelAll,
		"Category filter value, or All. Compared against the themes column unless --filter-field says otherwise")
	flags.String(flagFilterField, config.FilterFieldThemes, "Row field compared against --level (themes or governmental_level)")
	flags.String(flagSeparator, config.DefaultSeparator, "Separator between the entry name and the URL when printing")
	flags.Bool(flagActiveService, false, "Only keep services answering the CSW GetCapabilities request")
	flags.Bool(flagNotActiveService, false, "Only keep services failing the CSW GetCapabilities request")
	flags.Bool(flagValidService, false, "Only keep syntactically valid URLs")
	flags.Bool(flagNotValidService, false, "Only keep syntactically invalid URLs")
	flags.Bool(flagWrite, false, "Append new entries to the registry instead of printing them")
	flags.Bool(flagPrintVertSpace, false, "Print a blank line after each entry")
	flags.String(flagXML, "", "Path of the CSW connection registry (required with --write)")
	flags.String(flagXSD, "", "Path of the registry schema (required with --write)")
	flags.Duration(flagProbeTimeout, config.DefaultProbeTimeout, "Timeout of each CSW GetCapabilities request")
	flags.Int(flagFetchRetries, config.DefaultFetchRetries, "Extra download attempts after a network failure")
	flags.Duration(flagFetchTimeout, 0, "Overall download timeout, 0 for none")
	flags.String(flagStatusFile, "", "Write a JSON run summary to this path")
	flags.String(flagMetricsFile, "", "Write run metrics in Prometheus text format to this path")
}

// loadOptions merges, by precedence, flags, environment, the optional YAML file and built-in defaults
func loadOptions(v *viper.Viper, flags *pflag.FlagSet) (config.Options, error) {
	if err := v.BindPFlags(flags); err != nil {
		return config.Options{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	base := config.DefaultOptions()
	if path := v.GetString(flagConfig); path != "" {
		fileOpts, err := config.LoadFile(config.WithConfigPath(path))
		if err != nil {
			return config.Options{}, fmt.Errorf("failed to load configuration file: %w", err)
		}
		base = *fileOpts
	}
	setDefaults(v, base)

	return config.Options{
		URL:              v.GetString(flagURL),
		Spreadsheets:     v.GetString(flagSpreadsheets),
		Sheet:            v.GetString(flagSheet),
		Level:            v.GetString(flagLevel),
		FilterField:      v.GetString(flagFilterField),
		Separator:        v.GetString(flagSeparator),
		ActiveService:    v.GetBool(flagActiveService),
		NotActiveService: v.GetBool(flagNotActiveService),
		ValidService:     v.GetBool(flagValidService),
		NotValidService:  v.GetBool(flagNotValidService),
		Write:            v.GetBool(flagWrite),
		PrintVertSpace:   v.GetBool(flagPrintVertSpace),
		XML:              v.GetString(flagXML),
		XSD:              v.GetString(flagXSD),
		ProbeTimeout:     v.GetString(flagProbeTimeout),
		FetchRetries:     v.GetInt(flagFetchRetries),
		FetchTimeout:     durationString(v.GetString(flagFetchTimeout)),
		StatusFile:       v.GetString(flagStatusFile),
		MetricsFile:      v.GetString(flagMetricsFile),
	}, nil
}

// setDefaults makes base the fallback for keys not set by a flag or the environment
func setDefaults(v *viper.Viper, base config.Options) {
	v.SetDefault(flagURL, base.URL)
	v.SetDefault(flagSpreadsheets, base.Spreadsheets)
	v.SetDefault(flagSheet, base.Sheet)
	v.SetDefault(flagLevel, base.Level)
	v.SetDefault(flagFilterField, base.FilterField)
	v.SetDefault(flagSeparator, base.Separator)
	v.SetDefault(flagActiveService, base.ActiveService)
	v.SetDefault(flagNotActiveService, base.NotActiveService)
	v.SetDefault(flagValidService, base.ValidService)
	v.SetDefault(flagNotValidService, base.NotValidService)
	v.SetDefault(flagWrite, base.Write)
	v.SetDefault(flagPrintVertSpace, base.PrintVertSpace)
	v.SetDefault(flagXML, base.XML)
	v.SetDefault(flagXSD, base.XSD)
	v.SetDefault(flagProbeTimeout, base.ProbeTimeout)
	v.SetDefault(flagFetchRetries, base.FetchRetries)
	v.SetDefault(flagFetchTimeout, base.FetchTimeout)
	v.SetDefault(flagStatusFile, base.StatusFile)
	v.SetDefault(flagMetricsFile, base.MetricsFile)
}

// durationString maps the zero duration rendered by pflag to the empty "unset" value
func durationString(s string) string {
	if s == "0s" {
		return ""
	}
	return s
}
