package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teemow/salesmcp/internal/credential"
	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/tools/calendly"
)

func newAuthorizeCmd() *cobra.Command {
	var (
		debugMode bool
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "authorize <google|calendly>",
		Short: "Authorize an account and write its token file",
		Long: `Run the OAuth2 consent flow for Google or Calendly.

The command prints a URL to open in a browser and waits for the provider to
redirect back to a local listener, by default http://localhost:<MCP_SERVER_PORT>/.
For Calendly that address must be a redirect URI registered for the OAuth
application. The resulting token file is what serve and refresh use.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{refreshGoogle, refreshCalendly},
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := loadSettings(debugMode)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = fmt.Sprintf("localhost:%d", settings.ServerPort)
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			open := printConsentURL(out, args[0])

			var (
				c    credential.Credential
				path string
			)
			switch args[0] {
			case refreshGoogle:
				c, err = google.Authorize(ctx, settings, addr, open)
				path = settings.GoogleTokenPath
			default:
				c, err = calendly.New(tools.Deps{Logger: logger}).Authorize(ctx, settings, addr, open)
				path = settings.CalendlyTokenPath
			}
			if err != nil {
				return fmt.Errorf("%s authorization failed: %w", args[0], err)
			}

			if !c.CanRefresh() {
				fmt.Fprintln(out, "Warning: the provider returned no refresh token; the token cannot be renewed.")
			}
			reportAuthorized(out, args[0], path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address of the OAuth redirect handler (default localhost:MCP_SERVER_PORT)")
	return cmd
}

func printConsentURL(w io.Writer, provider string) func(string) {
	return func(authURL string) {
		fmt.Fprintf(w, "To authorize %s access:\n\n", provider)
		fmt.Fprintf(w, "1. Visit this URL in your browser:\n   %s\n\n", authURL)
		fmt.Fprintln(w, "2. Sign in and grant access")
		fmt.Fprintln(w, "3. Wait here until the browser shows \"Authorization complete\"")
		fmt.Fprintln(w)
	}
}

func reportAuthorized(w io.Writer, provider, path string) {
	fmt.Fprintf(w, "%s: authorized, token saved to %s\n", provider, path)
}
