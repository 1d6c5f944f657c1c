package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// NewWhatIfCmd creates the whatif command group.
func NewWhatIfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whatif",
		Short: "Project hypothetical changes against a recorded analysis",
		Long:  "Evaluate factor overrides against a stored baseline analysis without modifying it, either one change at a time or as a ranked comparison of named scenarios.",
	}

	cmd.AddCommand(newWhatIfEvalCmd(), newWhatIfCompareCmd())
	return cmd
}

// factorFlagNames maps the eval factor flags to their scenario keys.
var factorFlagNames = []string{"jurisdiction", "entity", "task", "data", "regulatory", "impact"}

func newWhatIfEvalCmd() *cobra.Command {
	var baselineID string
	factors := make(map[string]*float64, len(factorFlagNames))

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate one hypothetical change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			var change compliance.ScenarioChange
			changed := false
			for _, name := range factorFlagNames {
				if !cmd.Flags().Changed(name) {
					continue
				}
				if err := applyFactor(&change, name, *factors[name]); err != nil {
					return err
				}
				changed = true
			}
			if !changed {
				return fmt.Errorf("at least one factor override is required (e.g. --jurisdiction 0.9)")
			}

			result, err := cliCtx.Client.Scenarios().Evaluate(cmd.Context(), baselineID, change)
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}
			renderWhatIfResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&baselineID, "baseline", "", "baseline analysis ID (required)")
	for _, name := range factorFlagNames {
		factors[name] = cmd.Flags().Float64(name, 0, fmt.Sprintf("override the %s risk factor (0..1)", name))
	}
	cmd.MarkFlagRequired("baseline")

	return cmd
}

func newWhatIfCompareCmd() *cobra.Command {
	var (
		baselineID string
		specs      []string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare several named scenarios against one baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			scenarios := make([]compliance.NamedScenario, 0, len(specs))
			for _, spec := range specs {
				sc, err := parseScenarioSpec(spec)
				if err != nil {
					return err
				}
				scenarios = append(scenarios, sc)
			}

			comparison, err := cliCtx.Client.Scenarios().Compare(cmd.Context(), baselineID, scenarios)
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), comparison)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Baseline: score %.2f, risk %s, decision %s\n\n",
				comparison.BaselineScore,
				colorRiskLevel(string(comparison.BaselineLevel)),
				colorDecision(string(comparison.BaselineDecision)))

			rows := make([][]string, 0, len(comparison.Scenarios))
			for _, sc := range comparison.Scenarios {
				rows = append(rows, []string{
					sc.Name,
					fmt.Sprintf("%.2f", sc.Result.NewScore),
					fmt.Sprintf("%+.2f", sc.Result.ScoreDelta),
					colorRiskLevel(string(sc.Result.NewLevel)),
					colorDecision(string(sc.Result.NewDecision)),
				})
			}
			renderTable(out, []string{"Scenario", "Score", "Delta", "Risk", "Decision"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&baselineID, "baseline", "", "baseline analysis ID (required)")
	cmd.Flags().StringArrayVar(&specs, "scenario", nil,
		`scenario spec "name:factor=value[,factor=value]", repeatable (factors: jurisdiction, entity, task, data, regulatory, impact)`)
	cmd.MarkFlagRequired("baseline")
	cmd.MarkFlagRequired("scenario")

	return cmd
}

// parseScenarioSpec parses "name:factor=value[,factor=value]".
func parseScenarioSpec(spec string) (compliance.NamedScenario, error) {
	var sc compliance.NamedScenario

	name, rest, ok := strings.Cut(spec, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.TrimSpace(rest) == "" {
		return sc, fmt.Errorf("invalid scenario spec %q (expected \"name:factor=value[,factor=value]\")", spec)
	}
	sc.Name = name

	for _, pair := range strings.Split(rest, ",") {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return sc, fmt.Errorf("invalid factor assignment %q in scenario %q", pair, name)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return sc, fmt.Errorf("invalid factor value %q in scenario %q", raw, name)
		}
		if err := applyFactor(&sc.Change, strings.TrimSpace(key), value); err != nil {
			return sc, fmt.Errorf("scenario %q: %w", name, err)
		}
	}
	return sc, nil
}

func applyFactor(change *compliance.ScenarioChange, name string, value float64) error {
	v := value
	switch strings.ToLower(name) {
	case "jurisdiction":
		change.JurisdictionRisk = &v
	case "entity":
		change.EntityRisk = &v
	case "task":
		change.TaskRisk = &v
	case "data":
		change.DataSensitivityRisk = &v
	case "regulatory":
		change.RegulatoryRisk = &v
	case "impact":
		change.ImpactRisk = &v
	default:
		return fmt.Errorf("unknown factor %q (must be jurisdiction, entity, task, data, regulatory or impact)", name)
	}
	return nil
}

func renderWhatIfResult(cmd *cobra.Command, result *compliance.WhatIfResultDTO) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Score:    %.2f -> %.2f (%+.2f)\n", result.BaselineScore, result.NewScore, result.ScoreDelta)
	fmt.Fprintf(out, "Risk:     %s -> %s\n", colorRiskLevel(string(result.BaselineLevel)), colorRiskLevel(string(result.NewLevel)))
	fmt.Fprintf(out, "Decision: %s -> %s\n", colorDecision(string(result.BaselineDecision)), colorDecision(string(result.NewDecision)))

	if result.DecisionChange.Changed {
		fmt.Fprintf(out, "\nDecision change: %s (%s)\n", result.DecisionChange.Impact, result.DecisionChange.Severity)
	}

	if len(result.FactorDeltas) > 0 {
		fmt.Fprintln(out, "\nFactor deltas:")
		rows := make([][]string, 0, len(result.FactorDeltas))
		for _, fd := range result.FactorDeltas {
			rows = append(rows, []string{
				fd.Factor,
				fmt.Sprintf("%.2f", fd.Baseline),
				fmt.Sprintf("%.2f", fd.Modified),
				fmt.Sprintf("%+.2f", fd.Delta),
				fmt.Sprintf("%+.3f", fd.WeightedDelta),
			})
		}
		renderTable(out, []string{"Factor", "Baseline", "Modified", "Delta", "Weighted"}, rows)
	}

	if len(result.Explanation) > 0 {
		fmt.Fprintln(out, "\nExplanation:")
		for _, line := range result.Explanation {
			fmt.Fprintf(out, "  - %s\n", line)
		}
	}
}
