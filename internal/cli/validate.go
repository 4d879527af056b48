package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaifAhmad1/repo-analyzer/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("Configuration OK: %d workers, %d stages\n", len(cfg.Workers), len(cfg.Stages))
		for _, w := range cfg.Workers {
			fmt.Printf("  %-24s %s (%d operations)\n", w.Name, w.Command, len(w.Operations))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
