package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docinsight/internal/common"
	"github.com/joseph-ayodele/docinsight/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the Gemini models usable with the configured key and show which one is selected",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if !a.cfg.LLM.Enabled() {
			return common.NewAppError(common.CodeConfig, "GEMINI_API_KEY or GOOGLE_API_KEY is required", common.ErrUnauthorized)
		}

		models, err := a.client.ListCapableModels(cmd.Context(), a.cfg.LLM.APIKey)
		if err != nil {
			return err
		}
		selected, ok := llm.SelectModel(models, a.cfg.LLM.ModelPreferences, a.cfg.LLM.VendorMarker)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MODEL\tDISPLAY NAME\tSELECTED")
		for _, m := range models {
			mark := ""
			if ok && m.Name == selected {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, m.DisplayName, mark)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if !ok {
			return common.NewAppError(common.CodeNoCapableModel, "no model matches the configured preferences", nil)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
