package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// Submit command flags
var (
	submitValue      string
	submitDesc       string
	submitTitle      string
	submitTags       string
	submitConfidence string
	submitType       string
	submitIndex      string
	submitHost       string
	submitSource     string
	submitSourcetype string
	submitTime       string
	submitField      string
)

// submitCmd submits a sighting to the gateway
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a sighting",
	Long: `Submit a sighting to the intelligence platform through the gateway.

The gateway resolves stored credentials, composes the sighting payload, and
delivers the entity document upstream. The outcome is journaled either way.`,
	Example: `  # Submit an IP sighting
  sightgate-ctl submit --value 1.2.3.4 --type ip --title "Sighting of 1.2.3.4"

  # Submit a domain sighting with confidence and tags
  sightgate-ctl submit --value evil.example.com --type domain \
    --confidence high --tags perimeter`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if submitValue == "" {
			return fmt.Errorf("--value is required")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()

		resp, err := apiClient.Submit(ctx, SubmitRequest{
			SightingValue:   submitValue,
			SightingDesc:    submitDesc,
			SightingTitle:   submitTitle,
			SightingTags:    submitTags,
			ConfidenceLevel: submitConfidence,
			SightingType:    submitType,
			Index:           submitIndex,
			Host:            submitHost,
			Source:          submitSource,
			Sourcetype:      submitSourcetype,
			Time:            submitTime,
			Field:           submitField,
		})
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return printJSON(resp)
		}

		Success(resp.Message)
		fmt.Printf("  Submission: %s\n", resp.SubmissionID)
		if resp.EntityID != "" {
			fmt.Printf("  Entity:     %s\n", resp.EntityID)
		}
		if resp.EntityURL != "" {
			fmt.Printf("  URL:        %s\n", resp.EntityURL)
		}

		return nil
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitValue, "value", "", "Observed value (required)")
	submitCmd.Flags().StringVar(&submitDesc, "description", "", "Sighting description")
	submitCmd.Flags().StringVar(&submitTitle, "title", "", "Sighting title")
	submitCmd.Flags().StringVar(&submitTags, "tags", "", "Sighting tag")
	submitCmd.Flags().StringVar(&submitConfidence, "confidence", "", "Confidence level (low, medium, high)")
	submitCmd.Flags().StringVar(&submitType, "type", "", "Observable type (ip, domain, url, email, hash)")
	submitCmd.Flags().StringVar(&submitIndex, "index", "", "Context: source index")
	submitCmd.Flags().StringVar(&submitHost, "host", "", "Context: source host")
	submitCmd.Flags().StringVar(&submitSource, "source", "", "Context: event source")
	submitCmd.Flags().StringVar(&submitSourcetype, "sourcetype", "", "Context: event sourcetype")
	submitCmd.Flags().StringVar(&submitTime, "time", "", "Context: event time")
	submitCmd.Flags().StringVar(&submitField, "field", "", "Context: field the value was observed in")
}
