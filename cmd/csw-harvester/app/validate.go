package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/csw-harvester/internal/config"
	"github.com/stacklok/csw-harvester/internal/registry"
)

func newValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a CSW connection registry against its schema",
		Long: `Validate checks the --xml registry against the --xsd schema and lists its
entries as "{name}{separator}{url}".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := newViper()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			xmlPath := v.GetString(flagXML)
			xsdPath := v.GetString(flagXSD)

			var errs []error
			if err := config.CheckFile(xmlPath, config.RegistryExtension); err != nil {
				errs = append(errs, &config.FieldError{Field: "xml", Value: xmlPath, Reason: "invalid registry file", Err: err})
			}
			if err := config.CheckFile(xsdPath, config.SchemaExtension); err != nil {
				errs = append(errs, &config.FieldError{Field: "xsd", Value: xsdPath, Reason: "invalid schema file", Err: err})
			}
			if len(errs) > 0 {
				return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
			}

			ctx := cmd.Context()
			store, err := registry.Open(ctx, xmlPath, xsdPath)
			if err != nil {
				return err
			}
			entries, err := store.Entries(ctx)
			if err != nil {
				return err
			}

			separator := v.GetString(flagSeparator)
			for _, entry := range entries {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), entry.Name+separator+entry.URL); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}
			slog.InfoContext(ctx, "Registry is valid", "path", xmlPath, "entries", len(entries))
			return nil
		},
	}
	validateCmd.Flags().String(flagXML, "", "Path of the CSW connection registry")
	validateCmd.Flags().String(flagXSD, "", "Path of the registry schema")
	validateCmd.Flags().String(flagSeparator, config.DefaultSeparator, "Separator between the entry name and the URL")
	return validateCmd
}
