package cli

import (
	"github.com/spf13/cobra"
)

// NewRegulationsCmd creates the regulation catalog command.
func NewRegulationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regulations",
		Short: "List the regulation catalog",
		Long:  "Print the static catalog of regulations the jurisdiction analyzer can cite, with the jurisdiction and applicability condition of each.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			regs, err := cliCtx.Client.Regulations(cmd.Context())
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), regs)
			}

			rows := make([][]string, 0, len(regs))
			for _, reg := range regs {
				condition := reg.Condition
				if condition == "" {
					condition = "always"
				}
				rows = append(rows, []string{reg.Name, string(reg.Jurisdiction), condition})
			}
			renderTable(cmd.OutOrStdout(), []string{"Regulation", "Jurisdiction", "Applies when"}, rows)
			return nil
		},
	}
	return cmd
}
