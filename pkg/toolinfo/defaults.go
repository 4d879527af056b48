package toolinfo

import "time"

// DefaultRegistry returns the registry for the stock analyzer workers:
// file_content, repository_structure, commit_history, and code_search.
// Durations are observed averages against medium-sized repositories.
func DefaultRegistry() *Registry {
	tools := []ToolMetadata{
		{Name: "file_content.get_file_content", Worker: "file_content", TypicalDuration: 2 * time.Second, Complexity: ComplexityLow},
		{Name: "file_content.list_directory", Worker: "file_content", TypicalDuration: 1500 * time.Millisecond, Complexity: ComplexityLow},
		{Name: "file_content.get_readme_content", Worker: "file_content", TypicalDuration: 1 * time.Second, Complexity: ComplexityLow},
		{Name: "file_content.analyze_file_content", Worker: "file_content", TypicalDuration: 5 * time.Second, Complexity: ComplexityMedium},

		{Name: "repository_structure.get_file_structure", Worker: "repository_structure", TypicalDuration: 3 * time.Second, Complexity: ComplexityMedium},
		{Name: "repository_structure.analyze_project_structure", Worker: "repository_structure", TypicalDuration: 8 * time.Second, Complexity: ComplexityHigh},

		{Name: "commit_history.get_recent_commits", Worker: "commit_history", TypicalDuration: 2500 * time.Millisecond, Complexity: ComplexityLow},
		{Name: "commit_history.get_commit_statistics", Worker: "commit_history", TypicalDuration: 6 * time.Second, Complexity: ComplexityMedium},
		{Name: "commit_history.get_development_patterns", Worker: "commit_history", TypicalDuration: 10 * time.Second, Complexity: ComplexityHigh},

		{Name: "code_search.search_code", Worker: "code_search", TypicalDuration: 4 * time.Second, Complexity: ComplexityMedium},
		{Name: "code_search.find_functions", Worker: "code_search", TypicalDuration: 3 * time.Second, Complexity: ComplexityMedium},
		{Name: "code_search.get_code_metrics", Worker: "code_search", TypicalDuration: 12 * time.Second, Complexity: ComplexityHigh},
		{Name: "code_search.analyze_code_complexity", Worker: "code_search", TypicalDuration: 15 * time.Second, Complexity: ComplexityHigh},
	}

	analyses := map[AnalysisKind][]string{
		AnalysisUltraFast: {
			"file_content.get_readme_content",
			"repository_structure.get_file_structure",
		},
		AnalysisQuickOverview: {
			"file_content.get_readme_content",
			"file_content.list_directory",
			"repository_structure.get_file_structure",
			"commit_history.get_recent_commits",
		},
		AnalysisSmartSummary: {
			"file_content.get_readme_content",
			"file_content.list_directory",
			"repository_structure.get_file_structure",
			"commit_history.get_recent_commits",
			"code_search.search_code",
		},
		AnalysisSecurity: {
			"file_content.list_directory",
			"file_content.analyze_file_content",
			"code_search.search_code",
			"code_search.get_code_metrics",
		},
		AnalysisCodeQuality: {
			"file_content.list_directory",
			"code_search.get_code_metrics",
			"code_search.analyze_code_complexity",
			"repository_structure.analyze_project_structure",
		},
		AnalysisVisualizations: {
			"repository_structure.get_file_structure",
			"repository_structure.analyze_project_structure",
			"commit_history.get_commit_statistics",
			"code_search.get_code_metrics",
		},
		AnalysisComprehensive: {
			"file_content.get_readme_content",
			"file_content.list_directory",
			"file_content.analyze_file_content",
			"repository_structure.get_file_structure",
			"repository_structure.analyze_project_structure",
			"commit_history.get_recent_commits",
			"commit_history.get_commit_statistics",
			"commit_history.get_development_patterns",
			"code_search.search_code",
			"code_search.get_code_metrics",
			"code_search.analyze_code_complexity",
		},
	}

	baseETAs := map[AnalysisKind]time.Duration{
		AnalysisUltraFast:      15 * time.Second,
		AnalysisQuickOverview:  30 * time.Second,
		AnalysisSmartSummary:   45 * time.Second,
		AnalysisSecurity:       60 * time.Second,
		AnalysisCodeQuality:    75 * time.Second,
		AnalysisVisualizations: 90 * time.Second,
		AnalysisComprehensive:  120 * time.Second,
	}

	return NewRegistry(tools, analyses, baseETAs)
}
