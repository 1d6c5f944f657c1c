package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// NewSuggestCmd creates the suggest command group.
func NewSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Scan decision history for proactive suggestions",
	}

	cmd.AddCommand(newSuggestScanCmd(), newSuggestRecentCmd())
	return cmd
}

func newSuggestScanCmd() *cobra.Command {
	var (
		entityName string
		category   string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the trigger detectors over one entity's history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			var cat *compliance.TaskCategory
			if category != "" {
				parsed, err := compliance.ParseTaskCategory(category)
				if err != nil {
					return err
				}
				cat = &parsed
			}

			result, err := cliCtx.Client.Suggestions().Scan(cmd.Context(), entityName, cat)
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanned %d records for %s\n", result.RecordsSeen, result.EntityName)
			if len(result.Suggestions) == 0 {
				fmt.Fprintln(out, "No suggestions raised.")
				return nil
			}
			fmt.Fprintln(out)
			for _, s := range result.Suggestions {
				fmt.Fprintf(out, "[%s] %s\n", s.Priority, s.Title)
				fmt.Fprintf(out, "  %s\n", s.Message)
				if s.ActionLabel != "" {
					fmt.Fprintf(out, "  Action: %s\n", s.ActionLabel)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entityName, "entity", "", "entity name (required)")
	cmd.Flags().StringVar(&category, "category", "", "restrict detectors to one task category")
	cmd.MarkFlagRequired("entity")
	return cmd
}

func newSuggestRecentCmd() *cobra.Command {
	var (
		entityName string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently raised suggestions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			list, err := cliCtx.Client.Suggestions().Recent(cmd.Context(), entityName, limit)
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), list)
			}

			rows := make([][]string, 0, len(list.Suggestions))
			for _, s := range list.Suggestions {
				rows = append(rows, []string{
					s.ID,
					s.RaisedAt.Format(time.RFC3339),
					s.Suggestion.Priority,
					s.Suggestion.TriggerName,
					s.Suggestion.Title,
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"ID", "Raised", "Priority", "Trigger", "Title"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&entityName, "entity", "", "entity name (required)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum suggestions to return")
	cmd.MarkFlagRequired("entity")
	return cmd
}
