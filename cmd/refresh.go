package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/tools/calendly"
)

const (
	refreshGoogle   = "google"
	refreshCalendly = "calendly"
	refreshAll      = "all"
)

func newRefreshCmd() *cobra.Command {
	var debugMode bool

	cmd := &cobra.Command{
		Use:   "refresh [google|calendly|all]",
		Short: "Refresh and persist stored OAuth2 credentials",
		Long: `Exchange the stored refresh token for a new access token and write the
result back to the token file. The running server does this in the
background; this command is for cron jobs and for checking that a refresh
token still works.`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{refreshGoogle, refreshCalendly, refreshAll},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := refreshAll
			if len(args) == 1 {
				target = args[0]
			}

			settings, logger, err := loadSettings(debugMode)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			var errs []error

			if target == refreshGoogle || target == refreshAll {
				auth := google.NewAuth(settings, google.Options{Logger: logger})
				err := auth.Refresh(ctx)
				if err == nil {
					reportRefresh(out, refreshGoogle, settings.GoogleTokenPath, auth.Store().Credential().Expiry)
				}
				auth.Cleanup(context.WithoutCancel(ctx))
				errs = append(errs, refreshFailed(refreshGoogle, err))
			}

			if target == refreshCalendly || target == refreshAll {
				c, err := calendly.New(tools.Deps{Logger: logger}).Refresh(ctx, settings)
				if err == nil {
					reportRefresh(out, refreshCalendly, settings.CalendlyTokenPath, c.Expiry)
				}
				errs = append(errs, refreshFailed(refreshCalendly, err))
			}

			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	return cmd
}

func refreshFailed(provider string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s refresh failed: %w", provider, err)
}

func reportRefresh(w io.Writer, provider, path string, expiry time.Time) {
	fmt.Fprintf(w, "%s: refreshed, saved to %s", provider, path)
	if !expiry.IsZero() {
		fmt.Fprintf(w, ", expires %s (in %s)", expiry.Local().Format(time.RFC3339), time.Until(expiry).Round(time.Minute))
	}
	fmt.Fprintln(w)
}
