package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var journalLimit int

// journalCmd is the parent command for journal operations
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Browse the submission journal",
	Long:  `Commands for browsing recorded sighting submissions and their outcomes.`,
}

// journalListCmd lists recent submissions
var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent submissions",
	Long:  `List recent sighting submissions, newest first.`,
	Example: `  # List the 50 most recent submissions
  sightgate-ctl journal list

  # List the last 10 as JSON
  sightgate-ctl journal list --limit 10 -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		resp, err := apiClient.JournalList(ctx, journalLimit)
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return printJSON(resp)
		}

		if len(resp.Entries) == 0 {
			fmt.Println(Dim("No submissions recorded."))
			return nil
		}

		headers := []string{"ID", "VALUE", "TYPE", "OUTCOME", "STATUS", "ENTITY", "CREATED"}
		rows := make([][]string, 0, len(resp.Entries))
		for _, e := range resp.Entries {
			status := "-"
			if e.UpstreamStatus > 0 {
				status = strconv.Itoa(e.UpstreamStatus)
			}
			entity := e.EntityID
			if entity == "" {
				entity = "-"
			}
			rows = append(rows, []string{
				truncate(e.ID, 12),
				truncate(e.SightingValue, 30),
				e.SightingType,
				formatOutcome(e.Outcome),
				status,
				truncate(entity, 12),
				formatTimestamp(e.CreatedAt),
			})
		}
		printTable(headers, rows)

		return nil
	},
}

// journalGetCmd shows a single journal entry
var journalGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a submission",
	Long:  `Display the full journal entry for a single submission.`,
	Example: `  # Show a submission by ID
  sightgate-ctl journal get 4f6b2c1e-...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		entry, err := apiClient.JournalGet(ctx, args[0])
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return printJSON(entry)
		}

		fmt.Printf("%s\n", Bold("Submission "+entry.ID))
		fmt.Printf("  Value:    %s\n", entry.SightingValue)
		if entry.SightingTitle != "" {
			fmt.Printf("  Title:    %s\n", entry.SightingTitle)
		}
		if entry.SightingType != "" {
			fmt.Printf("  Type:     %s\n", entry.SightingType)
		}
		fmt.Printf("  Outcome:  %s\n", formatOutcome(entry.Outcome))
		if entry.UpstreamStatus > 0 {
			fmt.Printf("  Upstream: %d\n", entry.UpstreamStatus)
		}
		if entry.EntityID != "" {
			fmt.Printf("  Entity:   %s\n", entry.EntityID)
		}
		if entry.Error != "" {
			fmt.Printf("  Error:    %s\n", Red(entry.Error))
		}
		fmt.Printf("  Duration: %s\n", time.Duration(entry.Duration))
		fmt.Printf("  Created:  %s\n", formatTimestamp(entry.CreatedAt))

		return nil
	},
}

// journalDocumentCmd returns a download link for the archived entity document
var journalDocumentCmd = &cobra.Command{
	Use:   "document <id>",
	Short: "Get a download link for the archived entity document",
	Long: `Return a time-limited download link for the entity document that was
delivered upstream for the given submission. Requires the archive to be
enabled on the gateway.`,
	Example: `  # Get a download link
  sightgate-ctl journal document 4f6b2c1e-...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		url, err := apiClient.JournalDocument(ctx, args[0])
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return printJSON(map[string]string{"url": url})
		}

		fmt.Println(url)
		return nil
	},
}

func init() {
	journalListCmd.Flags().IntVar(&journalLimit, "limit", 0, "Maximum number of entries to return (default: 50)")

	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalGetCmd)
	journalCmd.AddCommand(journalDocumentCmd)
}
