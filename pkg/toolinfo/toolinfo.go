// Package toolinfo is the static registry of tool metadata: which worker
// owns each operation, how long it typically takes, and how complex it is.
// The registry feeds ETA estimation only; correctness never depends on it.
package toolinfo

import "time"

// Complexity tiers a tool by its typical cost.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// ToolMetadata describes one operation for ETA purposes.
type ToolMetadata struct {
	// Name is the qualified operation name, "worker.operation".
	Name string

	// Worker owns the operation.
	Worker string

	// TypicalDuration is the observed average runtime.
	TypicalDuration time.Duration

	// Complexity tiers the tool for display.
	Complexity Complexity
}

// AnalysisKind names one composite analysis flavor.
type AnalysisKind string

const (
	AnalysisUltraFast      AnalysisKind = "ultra_fast"
	AnalysisQuickOverview  AnalysisKind = "quick_overview"
	AnalysisSmartSummary   AnalysisKind = "smart_summary"
	AnalysisSecurity       AnalysisKind = "security"
	AnalysisCodeQuality    AnalysisKind = "code_quality"
	AnalysisVisualizations AnalysisKind = "visualizations"
	AnalysisComprehensive  AnalysisKind = "comprehensive"
)

// Registry holds the static tool and analysis metadata.
type Registry struct {
	tools    map[string]ToolMetadata
	analyses map[AnalysisKind][]string
	baseETAs map[AnalysisKind]time.Duration
}

// NewRegistry builds a registry from explicit metadata. Tools absent from
// expected-tool lists are tolerated; ETA lookups for them fall back to zero.
func NewRegistry(tools []ToolMetadata, analyses map[AnalysisKind][]string, baseETAs map[AnalysisKind]time.Duration) *Registry {
	byName := make(map[string]ToolMetadata, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
	}
	return &Registry{tools: byName, analyses: analyses, baseETAs: baseETAs}
}

// Tool looks up metadata by qualified name.
func (r *Registry) Tool(name string) (ToolMetadata, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// ExpectedTools returns the tool list an analysis kind is expected to run.
func (r *Registry) ExpectedTools(kind AnalysisKind) []string {
	return r.analyses[kind]
}

// Estimate sums the typical durations of an analysis kind's expected tools.
// When the kind has a recorded base ETA and it exceeds the sum, the base ETA
// wins; sequential overhead between tools is otherwise invisible.
func (r *Registry) Estimate(kind AnalysisKind) time.Duration {
	var sum time.Duration
	for _, name := range r.analyses[kind] {
		if t, ok := r.tools[name]; ok {
			sum += t.TypicalDuration
		}
	}
	if base, ok := r.baseETAs[kind]; ok && base > sum {
		return base
	}
	return sum
}

// WorkerTools lists the qualified tool names owned by one worker.
func (r *Registry) WorkerTools(worker string) []string {
	var names []string
	for name, t := range r.tools {
		if t.Worker == worker {
			names = append(names, name)
		}
	}
	return names
}
