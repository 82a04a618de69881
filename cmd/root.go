package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the salesmcp application
var rootCmd = &cobra.Command{
	Use:   "salesmcp",
	Short: "MCP server for sales and productivity services",
	Long: `salesmcp exposes Calendly, Google Calendar, Gmail and Google Drive as
tools for AI assistants over the Model Context Protocol.

It keeps the OAuth2 credentials of every integration fresh in the
background and can also be used from the command line:
  - serve:     run the MCP server (stdio or streamable HTTP)
  - tools:     list the tools or call one directly
  - authorize: run the OAuth2 consent flow and write a token file
  - refresh:   refresh and persist stored OAuth2 credentials
  - config:    check which integrations are configured`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// settingsPath is the --settings persistent flag.
var settingsPath string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "salesmcp version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Settings file (YAML or JSON). Defaults to SETTINGS_FILE, then settings.json")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newAuthorizeCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
