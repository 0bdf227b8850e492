// Package commands holds the CLI commands talking to a running review
// server through the API client.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deepcritic/deepcritic/pkg/api/v1/client"
)

// flag names
const (
	flagServerAddress = "server-address"
)

// environment variable names
const (
	envServerAddress = "DEEPCRITIC_SERVER_ADDRESS"
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string
)

// initClient initializes the API client
func initClient() error {
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress

	var err error
	apiClient, err = client.New(opts)
	return err
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", client.DefaultBaseURL,
		"Address of the review API server (env: DEEPCRITIC_SERVER_ADDRESS)")

	RootCmd.AddCommand(GetSubmitCmd())
	RootCmd.AddCommand(GetStatusCmd())
	RootCmd.AddCommand(GetResultsCmd())
	RootCmd.AddCommand(GetAgentsCmd())
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "deepcritic",
	Short: "DeepCritic CLI - submit documents for review and track their progress",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if !cmd.Flags().Changed(flagServerAddress) {
			if envAddr := os.Getenv(envServerAddress); envAddr != "" {
				serverAddress = envAddr
			}
		}
		return initClient()
	},
}
