package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/salesmcp/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the server configuration",
	}
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report which integrations have enough configuration to start",
		Long: `Check the settings file and the environment without contacting any
provider. Exits non-zero when no integration is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := loadSettings(false)
			if err != nil {
				return err
			}

			report := settings.Validate()
			out := cmd.OutOrStdout()

			if asJSON {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Settings file: %s\n", settings.SettingsFile)
				fmt.Fprintf(out, "Configured tools (%d/%d):\n", len(report.ConfiguredTools), report.TotalTools)
				for _, name := range report.ConfiguredTools {
					fmt.Fprintf(out, "  + %s\n", name)
				}
				for _, name := range report.MissingTools {
					fmt.Fprintf(out, "  - %s\n", name)
				}
				if providers := configuredProviders(settings); len(providers) > 0 {
					fmt.Fprintf(out, "Refreshable credentials: %v\n", providers)
				}
				for _, w := range report.Warnings {
					fmt.Fprintf(out, "Warning: %s\n", w)
				}
			}

			if !report.Valid {
				return fmt.Errorf("no integration is configured")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

// configuredProviders lists the credentials the refresh command can renew.
func configuredProviders(s *config.Settings) []string {
	var out []string
	if s.HasGoogleClientSecrets() {
		out = append(out, refreshGoogle)
	}
	if s.CalendlyClientID != "" && s.CalendlyClientSecret != "" {
		out = append(out, refreshCalendly)
	}
	return out
}
