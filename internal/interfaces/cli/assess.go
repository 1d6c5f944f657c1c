package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/CompliSense/pkg/client"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// NewAssessCmd creates the assess command group.
func NewAssessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Run and inspect compliance risk assessments",
		Long:  "Evaluate a compliance task across the weighted risk dimensions, or fetch and list previously recorded analyses.",
	}

	cmd.AddCommand(newAssessRunCmd(), newAssessGetCmd(), newAssessListCmd())
	return cmd
}

func newAssessRunCmd() *cobra.Command {
	var (
		entityName    string
		entityType    string
		industry      string
		jurisdictions []string
		employees     int
		revenue       float64
		personalData  bool
		regulated     bool
		violations    int

		taskDescription string
		category        string
		impact          string
		affectsPersonal bool
		affectsFinance  bool
		crossBorder     bool
		deadline        string
		stakeholders    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Assess one compliance task",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			req, err := buildAssessmentRequest(cmd, assessRunInputs{
				entityName: entityName, entityType: entityType, industry: industry,
				jurisdictions: jurisdictions, employees: employees, revenue: revenue,
				personalData: personalData, regulated: regulated, violations: violations,
				taskDescription: taskDescription, category: category, impact: impact,
				affectsPersonal: affectsPersonal, affectsFinance: affectsFinance,
				crossBorder: crossBorder, deadline: deadline, stakeholders: stakeholders,
			})
			if err != nil {
				return err
			}

			dto, err := cliCtx.Client.Assessments().Create(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("assessment failed: %w", err)
			}

			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), dto)
			}
			renderAssessment(cmd, dto)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&entityName, "entity", "", "entity name (required)")
	f.StringVar(&entityType, "entity-type", "CORPORATION", "entity type (CORPORATION, LLC, FINANCIAL_INSTITUTION, ...)")
	f.StringVar(&industry, "industry", "OTHER", "industry (FINANCIAL_SERVICES, HEALTHCARE, TECHNOLOGY, ...)")
	f.StringSliceVar(&jurisdictions, "jurisdiction", nil, "operating jurisdiction, repeatable (EU, UK, US_FEDERAL, ...)")
	f.IntVar(&employees, "employees", 0, "employee count")
	f.Float64Var(&revenue, "revenue", 0, "annual revenue")
	f.BoolVar(&personalData, "personal-data", false, "entity processes personal data")
	f.BoolVar(&regulated, "regulated", false, "entity operates in a regulated sector")
	f.IntVar(&violations, "violations", 0, "previous compliance violations")

	f.StringVar(&taskDescription, "task", "", "task description (required)")
	f.StringVar(&category, "category", "GENERAL_INQUIRY", "task category (DATA_PRIVACY, REGULATORY_FILING, ...)")
	f.StringVar(&impact, "impact", "MEDIUM", "potential impact (LOW, MEDIUM, HIGH, CRITICAL)")
	f.BoolVar(&affectsPersonal, "affects-personal-data", false, "task touches personal data")
	f.BoolVar(&affectsFinance, "affects-financial-data", false, "task touches financial data")
	f.BoolVar(&crossBorder, "cross-border", false, "task moves data across borders")
	f.StringVar(&deadline, "deadline", "", "regulatory deadline (YYYY-MM-DD)")
	f.IntVar(&stakeholders, "stakeholders", 0, "affected stakeholder count")

	cmd.MarkFlagRequired("entity")
	cmd.MarkFlagRequired("task")

	return cmd
}

type assessRunInputs struct {
	entityName    string
	entityType    string
	industry      string
	jurisdictions []string
	employees     int
	revenue       float64
	personalData  bool
	regulated     bool
	violations    int

	taskDescription string
	category        string
	impact          string
	affectsPersonal bool
	affectsFinance  bool
	crossBorder     bool
	deadline        string
	stakeholders    int
}

func buildAssessmentRequest(cmd *cobra.Command, in assessRunInputs) (compliance.AssessmentRequest, error) {
	var req compliance.AssessmentRequest

	et, err := compliance.ParseEntityType(in.entityType)
	if err != nil {
		return req, err
	}
	ind, err := compliance.ParseIndustry(in.industry)
	if err != nil {
		return req, err
	}
	cat, err := compliance.ParseTaskCategory(in.category)
	if err != nil {
		return req, err
	}
	imp, err := compliance.ParsePotentialImpact(in.impact)
	if err != nil {
		return req, err
	}

	var jds []compliance.Jurisdiction
	for _, j := range in.jurisdictions {
		jd, err := compliance.ParseJurisdiction(j)
		if err != nil {
			return req, err
		}
		jds = append(jds, jd)
	}

	req.Entity = compliance.EntityContext{
		Name:               in.entityName,
		EntityType:         et,
		Industry:           ind,
		Jurisdictions:      jds,
		HasPersonalData:    in.personalData,
		IsRegulated:        in.regulated,
		PreviousViolations: in.violations,
	}
	if cmd.Flags().Changed("employees") {
		req.Entity.EmployeeCount = &in.employees
	}
	if cmd.Flags().Changed("revenue") {
		req.Entity.AnnualRevenue = &in.revenue
	}

	req.Task = compliance.TaskContext{
		Description:          in.taskDescription,
		Category:             cat,
		AffectsPersonalData:  in.affectsPersonal,
		AffectsFinancialData: in.affectsFinance,
		InvolvesCrossBorder:  in.crossBorder,
		PotentialImpact:      imp,
	}
	if dl, err := parseDateFlag("deadline", in.deadline); err != nil {
		return req, err
	} else if dl != nil {
		req.Task.RegulatoryDeadline = dl
	}
	if cmd.Flags().Changed("stakeholders") {
		req.Task.StakeholderCount = &in.stakeholders
	}

	return req, nil
}

func newAssessGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <analysis-id>",
		Short: "Fetch one recorded analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			dto, err := cliCtx.Client.Assessments().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), dto)
			}
			renderAssessment(cmd, dto)
			return nil
		},
	}
	return cmd
}

func newAssessListCmd() *cobra.Command {
	var (
		entityName string
		page       int
		pageSize   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded analyses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			result, err := cliCtx.Client.Assessments().List(cmd.Context(), client.ListOptions{
				EntityName: entityName,
				Page:       page,
				PageSize:   pageSize,
			})
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}

			rows := make([][]string, 0, len(result.Assessments))
			for _, a := range result.Assessments {
				rows = append(rows, []string{
					string(a.ID),
					a.Entity.Name,
					string(a.Task.Category),
					fmt.Sprintf("%.2f", a.OverallScore),
					colorRiskLevel(string(a.RiskLevel)),
					colorDecision(string(a.Decision)),
					time.Time(a.AnalyzedAt).Format("2006-01-02 15:04"),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"ID", "Entity", "Category", "Score", "Risk", "Decision", "Analyzed"}, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d of %d (%d total)\n", result.Page, result.TotalPages, result.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&entityName, "entity", "", "filter by entity name")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "page size")
	return cmd
}

func renderAssessment(cmd *cobra.Command, dto *compliance.AssessmentDTO) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Analysis %s — %s / %s\n", dto.ID, dto.Entity.Name, dto.Task.Category)
	fmt.Fprintf(out, "  Score:      %.2f\n", dto.OverallScore)
	fmt.Fprintf(out, "  Risk:       %s\n", colorRiskLevel(string(dto.RiskLevel)))
	fmt.Fprintf(out, "  Decision:   %s\n", colorDecision(string(dto.Decision)))
	fmt.Fprintf(out, "  Confidence: %.2f\n", dto.Confidence)
	if dto.EscalationReason != "" {
		fmt.Fprintf(out, "  Escalation: %s\n", dto.EscalationReason)
	}

	fmt.Fprintln(out, "\nFactors:")
	for _, row := range factorRows(dto.Factors) {
		fmt.Fprintf(out, "  %-18s %s\n", row[0], row[1])
	}

	if len(dto.Reasoning) > 0 {
		fmt.Fprintln(out, "\nReasoning:")
		for _, r := range dto.Reasoning {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	if len(dto.Recommendations) > 0 {
		fmt.Fprintln(out, "\nRecommendations:")
		for i, r := range dto.Recommendations {
			fmt.Fprintf(out, "  %d. %s\n", i+1, r)
		}
	}
	if len(dto.Regulations) > 0 {
		fmt.Fprintf(out, "\nRegulations: %s\n", strings.Join(dto.Regulations, ", "))
	}
	if len(dto.Suggestions) > 0 {
		fmt.Fprintln(out, "\nSuggestions:")
		for _, s := range dto.Suggestions {
			fmt.Fprintf(out, "  [%s] %s — %s\n", s.Priority, s.Title, s.Message)
		}
	}
}

func factorRows(f compliance.RiskFactorsDTO) [][]string {
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return [][]string{
		{"Jurisdiction", format(f.JurisdictionRisk)},
		{"Entity", format(f.EntityRisk)},
		{"Task", format(f.TaskRisk)},
		{"Data sensitivity", format(f.DataSensitivityRisk)},
		{"Regulatory", format(f.RegulatoryRisk)},
		{"Impact", format(f.ImpactRisk)},
	}
}
