package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/CompliSense/pkg/client"
)

// NewSearchCmd creates the decision-history search command.
func NewSearchCmd() *cobra.Command {
	var (
		entityName   string
		category     string
		decision     string
		riskLevel    string
		jurisdiction string
		minScore     float64
		maxScore     float64
		after        string
		before       string
		page         int
		pageSize     int
		sortBy       string
		order        string
		facets       bool
	)

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search the decision history index",
		Long:  "Full-text search over recorded decisions with filters, facets and relevance ranking. Positional arguments form the query string.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			if order != "asc" && order != "desc" {
				return fmt.Errorf("invalid order %q (must be asc or desc)", order)
			}

			req := client.DecisionSearchRequest{
				Query:        strings.Join(args, " "),
				EntityName:   entityName,
				Category:     strings.ToUpper(category),
				Decision:     strings.ToUpper(decision),
				RiskLevel:    strings.ToUpper(riskLevel),
				Jurisdiction: strings.ToUpper(jurisdiction),
				Page:         page,
				PageSize:     pageSize,
				SortBy:       sortBy,
				SortAsc:      order == "asc",
				WithFacets:   facets,
			}
			if cmd.Flags().Changed("min-score") {
				req.MinRiskScore = &minScore
			}
			if cmd.Flags().Changed("max-score") {
				req.MaxRiskScore = &maxScore
			}
			if req.AnalyzedAfter, err = parseDateFlag("after", after); err != nil {
				return err
			}
			if req.AnalyzedBefore, err = parseDateFlag("before", before); err != nil {
				return err
			}

			result, err := cliCtx.Client.Decisions().Search(cmd.Context(), req)
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d decisions matched\n\n", result.Total)

			rows := make([][]string, 0, len(result.Hits))
			for _, hit := range result.Hits {
				rows = append(rows, []string{
					hit.AnalysisID,
					hit.EntityName,
					hit.Category,
					fmt.Sprintf("%.2f", hit.RiskScore),
					colorRiskLevel(hit.RiskLevel),
					colorDecision(hit.Decision),
					hit.AnalyzedAt.Format("2006-01-02"),
				})
			}
			renderTable(out, []string{"ID", "Entity", "Category", "Score", "Risk", "Decision", "Analyzed"}, rows)

			if len(result.Facets) > 0 {
				fmt.Fprintln(out, "\nFacets:")
				for facet, buckets := range result.Facets {
					parts := make([]string, 0, len(buckets))
					for _, b := range buckets {
						parts = append(parts, fmt.Sprintf("%s (%d)", b.Key, b.Count))
					}
					fmt.Fprintf(out, "  %s: %s\n", facet, strings.Join(parts, ", "))
				}
			}

			if cliCtx.Verbose {
				fmt.Fprintf(out, "\nSearch took %s\n", result.Took.Round(time.Millisecond))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&entityName, "entity", "", "filter by entity name")
	f.StringVar(&category, "category", "", "filter by task category")
	f.StringVar(&decision, "decision", "", "filter by decision (AUTONOMOUS, REVIEW_REQUIRED, ESCALATE)")
	f.StringVar(&riskLevel, "risk-level", "", "filter by risk level (LOW, MEDIUM, HIGH)")
	f.StringVar(&jurisdiction, "jurisdiction", "", "filter by jurisdiction")
	f.Float64Var(&minScore, "min-score", 0, "minimum risk score")
	f.Float64Var(&maxScore, "max-score", 0, "maximum risk score")
	f.StringVar(&after, "after", "", "decisions analyzed after (YYYY-MM-DD)")
	f.StringVar(&before, "before", "", "decisions analyzed before (YYYY-MM-DD)")
	f.IntVar(&page, "page", 1, "page number")
	f.IntVar(&pageSize, "page-size", 20, "page size")
	f.StringVar(&sortBy, "sort", "", "sort field (risk_score, analyzed_at; default relevance)")
	f.StringVar(&order, "order", "desc", "sort order (asc, desc)")
	f.BoolVar(&facets, "facets", false, "include facet counts")

	return cmd
}
