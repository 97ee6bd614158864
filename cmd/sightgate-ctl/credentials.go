package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// credentialsCmd is the parent command for credential operations
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Inspect resolved credentials",
	Long:  `Commands for inspecting the credentials the gateway resolves from its secret store.`,
}

// credentialsCheckCmd resolves credentials without submitting anything
var credentialsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check which credential roles resolve",
	Long: `Resolve credentials from the gateway's secret store without submitting a
sighting. Reports whether the primary API key and the proxy password resolve,
along with any malformed secrets encountered.`,
	Example: `  # Check credentials
  sightgate-ctl credentials check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		resp, err := apiClient.CredentialsCheck(ctx)
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return printJSON(resp)
		}

		fmt.Printf("%s\n", Bold("Credentials"))
		fmt.Printf("  Primary API key: %s\n", formatResolved(resp.Primary))
		fmt.Printf("  Proxy password:  %s\n", formatResolved(resp.Proxy))

		if len(resp.Errors) > 0 {
			fmt.Println()
			fmt.Printf("%s\n", Bold("Errors"))
			for _, e := range resp.Errors {
				fmt.Printf("  %s %s\n", Red("✗"), e)
			}
		}

		return nil
	},
}

func formatResolved(ok bool) string {
	if ok {
		return Green("resolved")
	}
	return Red("missing")
}

func init() {
	credentialsCmd.AddCommand(credentialsCheckCmd)
}
