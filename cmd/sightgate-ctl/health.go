package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// healthCmd checks gateway health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check gateway health",
	Long:  `Check the gateway's liveness and readiness probes.`,
	Example: `  # Check health
  sightgate-ctl health`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		live, liveErr := apiClient.Health(ctx)
		ready, readyErr := apiClient.Ready(ctx)

		if outputFormat == "json" {
			out := map[string]interface{}{
				"live":  liveErr == nil && probeOK(live),
				"ready": readyErr == nil && probeOK(ready),
			}
			if liveErr != nil {
				out["live_error"] = liveErr.Error()
			}
			if readyErr != nil {
				out["ready_error"] = readyErr.Error()
			}
			if err := printJSON(out); err != nil {
				return err
			}
		} else {
			fmt.Printf("%s\n", Bold("Gateway"))
			fmt.Printf("  Live:  %s\n", formatProbe(live, liveErr))
			fmt.Printf("  Ready: %s\n", formatProbe(ready, readyErr))
		}

		if liveErr != nil {
			return liveErr
		}
		if readyErr != nil {
			return readyErr
		}
		return nil
	},
}

func probeOK(resp *HealthResponse) bool {
	return resp != nil && (resp.Status == "ok" || resp.Status == "ready")
}

func formatProbe(resp *HealthResponse, err error) string {
	if err != nil {
		return Red("unreachable") + " " + Dim("("+err.Error()+")")
	}
	if probeOK(resp) {
		return Green(resp.Status)
	}
	if resp.Error != "" {
		return Red(resp.Status) + " " + Dim("("+resp.Error+")")
	}
	return Red(resp.Status)
}
