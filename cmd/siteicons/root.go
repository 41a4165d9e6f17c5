package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Run without a subcommand it
// discovers the icons of the sites given as arguments.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "siteicons [url...]",
		Short: "Find the icons of a website",
		Long: `siteicons finds every icon a website offers and lists them best first.

It looks at the web app manifest, the <link> tags in the page head, the
default /favicon.ico and /favicon.svg locations, and the logo shown in the
page body. Each icon is printed as "<url> <kind> <format and size>".

Examples:
  # List every icon of a site
  siteicons example.com

  # Stop at the first authoritative answer
  siteicons --fast https://example.com/blog/

  # Several sites at once, as JSON
  siteicons --json github.com golang.org

  # Markdown report written to a file, and stored in the history
  siteicons -m -o report.md --save example.com`,
		Version:       getVersion(),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDiscoverCmd,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	addDiscoverFlags(cmd)

	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
