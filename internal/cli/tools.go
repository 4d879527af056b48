package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaifAhmad1/repo-analyzer/pkg/progress"
	"github.com/KaifAhmad1/repo-analyzer/pkg/toolinfo"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List known tools and analysis ETAs",
	Run: func(cmd *cobra.Command, args []string) {
		reg := toolinfo.DefaultRegistry()

		kinds := []toolinfo.AnalysisKind{
			toolinfo.AnalysisUltraFast,
			toolinfo.AnalysisQuickOverview,
			toolinfo.AnalysisSmartSummary,
			toolinfo.AnalysisSecurity,
			toolinfo.AnalysisCodeQuality,
			toolinfo.AnalysisVisualizations,
			toolinfo.AnalysisComprehensive,
		}

		fmt.Println("Analysis kinds:")
		for _, kind := range kinds {
			tools := reg.ExpectedTools(kind)
			fmt.Printf("  %-16s eta %-8s %d tools\n", kind,
				progress.FormatDuration(reg.Estimate(kind)), len(tools))
		}

		fmt.Println("\nTools:")
		var names []string
		for _, kind := range kinds {
			names = append(names, reg.ExpectedTools(kind)...)
		}
		sort.Strings(names)
		seen := make(map[string]bool)
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			if t, ok := reg.Tool(name); ok {
				fmt.Printf("  %-48s %-8s %s\n", t.Name, t.Complexity,
					progress.FormatDuration(t.TypicalDuration))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
