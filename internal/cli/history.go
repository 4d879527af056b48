package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/KaifAhmad1/repo-analyzer/internal/config"
	"github.com/KaifAhmad1/repo-analyzer/pkg/progress"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently completed analysis runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if !cfg.History.Enabled {
			return fmt.Errorf("run history is disabled in configuration")
		}

		hist, err := progress.OpenHistory(cfg.History.Path, zerolog.Nop())
		if err != nil {
			return err
		}
		defer hist.Close()

		runs, err := hist.Recent(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("%s  %-16s %6.1f%%  %s  (%s)\n",
				r.CompletedAt.Format("2006-01-02 15:04:05"),
				r.Kind, r.Overall,
				progress.FormatDuration(r.Duration()),
				r.ID)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "maximum runs to list")
	rootCmd.AddCommand(historyCmd)
}
