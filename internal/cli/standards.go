package cli

import (
	"github.com/spf13/cobra"

	"github.com/llm-d/isocal/internal/report"
)

func newStandardsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "standards",
		Short: "List the known reference materials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var files []string
			if a.cfg.StandardsFile != "" {
				files = append(files, a.cfg.StandardsFile)
			}
			c, err := loadCatalog(files...)
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), report.Catalog(c, a.cfg.Decimals))
		},
	}
}
