// Command relgraph serves graph queries over a relational database and
// talks to a running server from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/persistorai/relgraph/client"
	"github.com/persistorai/relgraph/internal/config"
)

const defaultURL = "http://localhost:3040"

var (
	apiClient *client.Client
	flagURL   string
	flagFmt   string
)

func versionString() string {
	return fmt.Sprintf("relgraph version %s", config.Version)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "relgraph",
		Short:   "relgraph: graph queries over relational tables",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveURL()
			apiClient = client.New(flagURL, client.WithRequestID(uuid.NewString))
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "relgraph server URL (env: RELGRAPH_URL)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table")

	// serve and check never talk to a remote server.
	serveCmd := newServeCmd()
	serveCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {}
	checkCmd := newCheckCmd()
	checkCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newGraphCmd())
	rootCmd.AddCommand(newMappingCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveURL lets RELGRAPH_URL stand in for an unset --url flag.
func resolveURL() {
	if flagURL == defaultURL {
		if v := os.Getenv("RELGRAPH_URL"); v != "" {
			flagURL = v
		}
	}
}
