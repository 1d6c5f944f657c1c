package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/CompliSense/pkg/client"
)

// NewReportCmd creates the report command group.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate, list and download compliance reports",
	}

	cmd.AddCommand(newReportGenerateCmd(), newReportListCmd(), newReportDownloadCmd())
	return cmd
}

func newReportGenerateCmd() *cobra.Command {
	var (
		entityName string
		from       string
		to         string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Aggregate one entity's decisions into an archived report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			req := client.GenerateReportRequest{EntityName: entityName}
			if req.From, err = parseDateFlag("from", from); err != nil {
				return err
			}
			if req.To, err = parseDateFlag("to", to); err != nil {
				return err
			}

			generated, err := cliCtx.Client.Reports().Generate(cmd.Context(), req)
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), generated)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Report archived: %s (%d bytes)\n", generated.Key, generated.Size)
			if r := generated.Report; r != nil {
				fmt.Fprintf(out, "\n%s — %d decisions, avg risk %.2f, max %.2f\n",
					r.EntityName, r.TotalDecisions, r.AverageRiskScore, r.MaxRiskScore)
				if len(r.ByDecision) > 0 {
					fmt.Fprintln(out, "\nBy decision:")
					for decision, count := range r.ByDecision {
						fmt.Fprintf(out, "  %-18s %d\n", decision, count)
					}
				}
				if len(r.HighRiskCases) > 0 {
					fmt.Fprintln(out, "\nHigh-risk cases:")
					rows := make([][]string, 0, len(r.HighRiskCases))
					for _, c := range r.HighRiskCases {
						rows = append(rows, []string{
							c.AnalysisID,
							fmt.Sprintf("%.2f", c.RiskScore),
							colorDecision(c.Decision),
							c.AnalyzedAt.Format("2006-01-02"),
						})
					}
					renderTable(out, []string{"ID", "Score", "Decision", "Analyzed"}, rows)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entityName, "entity", "", "entity name (required)")
	cmd.Flags().StringVar(&from, "from", "", "window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "window end (YYYY-MM-DD)")
	cmd.MarkFlagRequired("entity")
	return cmd
}

func newReportListCmd() *cobra.Command {
	var (
		entityName string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived reports for one entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			list, err := cliCtx.Client.Reports().List(cmd.Context(), entityName, limit)
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), list)
			}

			rows := make([][]string, 0, len(list.Reports))
			for _, r := range list.Reports {
				rows = append(rows, []string{
					r.Key,
					fmt.Sprintf("%d", r.Size),
					r.ContentType,
					r.LastModified.Format(time.RFC3339),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"Key", "Size", "Type", "Modified"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&entityName, "entity", "", "entity name (required)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum reports to return")
	cmd.MarkFlagRequired("entity")
	return cmd
}

func newReportDownloadCmd() *cobra.Command {
	var (
		key  string
		file string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download one archived report document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			download, err := cliCtx.Client.Reports().Download(cmd.Context(), key)
			if err != nil {
				return err
			}

			if file == "" {
				_, err = cmd.OutOrStdout().Write(download.Data)
				return err
			}
			if err := os.WriteFile(file, download.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", file, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(download.Data), file)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "report storage key (required)")
	cmd.Flags().StringVar(&file, "file", "", "write the document to this path instead of stdout")
	cmd.MarkFlagRequired("key")
	return cmd
}
