package mcp

import (
	"fmt"
	"strings"

	"github.com/molsim-ai/molsim/pkg/models"
)

// formatSimulation formats a successful simulation as text.
func formatSimulation(s models.SimulationSuccess) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Molecule:     %s\n", s.MoleculeName)
	fmt.Fprintf(&b, "Exact energy: %.6f Ha\n", s.ExactEnergy)
	fmt.Fprintf(&b, "VQE energy:   %.6f Ha\n", s.VQEEnergy)
	fmt.Fprintf(&b, "Error:        %.2e Ha\n", s.VQEEnergy-s.ExactEnergy)
	fmt.Fprintf(&b, "Qubits:       %d\n", s.QubitCount)
	fmt.Fprintf(&b, "Ansatz:       %s\n", s.AnsatzType)
	fmt.Fprintf(&b, "Backend:      %s\n", s.Backend)
	source := s.Source
	if s.CachedAt != nil {
		source += " (cached at " + *s.CachedAt + ")"
	}
	fmt.Fprintf(&b, "Source:       %s\n", source)

	if len(s.Distances) > 0 {
		b.WriteString("\nEnergy curve\n")
		fmt.Fprintf(&b, "%10s %14s %14s\n", "Distance", "Exact", "VQE")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for i, d := range s.Distances {
			var exact, vqe float64
			if i < len(s.ExactEnergies) {
				exact = s.ExactEnergies[i]
			}
			if i < len(s.VQEEnergies) {
				vqe = s.VQEEnergies[i]
			}
			fmt.Fprintf(&b, "%10.3f %14.6f %14.6f\n", d, exact, vqe)
		}
	}
	return b.String()
}

// formatFailure formats a failure with its suggestion.
func formatFailure(f models.SimulationFailure) string {
	return f.Error + "\nSuggestion: " + f.Suggestion
}

func formatPrediction(p models.PredictionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prediction: %s (confidence %.1f%%)\n", p.Prediction, p.Confidence*100)
	for _, name := range models.FeatureNames {
		fmt.Fprintf(&b, "  %-22s %g\n", name, p.Features[name])
	}
	return b.String()
}

// formatRuns formats run records as a text table.
func formatRuns(runs []models.RunRecord) string {
	if len(runs) == 0 {
		return "No runs found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-12s %-16s %-8s %14s %8s\n",
		"Time", "Molecule", "Backend", "Status", "VQE Energy", "Ms")
	b.WriteString(strings.Repeat("-", 83) + "\n")
	for _, r := range runs {
		energy := "-"
		if r.Status == models.StatusSuccess {
			energy = fmt.Sprintf("%.6f", r.VQEEnergy)
		}
		fmt.Fprintf(&b, "%-20s %-12s %-16s %-8s %14s %8d\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			truncate(r.MoleculeName, 12), r.Backend, r.Status, energy, r.DurationMs)
	}
	return b.String()
}

// formatRunSummary formats per-backend aggregates as a text table.
func formatRunSummary(rows []models.RunSummary) string {
	if len(rows) == 0 {
		return "No run summary available.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %-8s %8s %12s\n", "Backend", "Status", "Runs", "Avg Ms")
	b.WriteString(strings.Repeat("-", 47) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-16s %-8s %8d %12.1f\n", r.Backend, r.Status, r.Runs, r.AvgDurationMs)
	}
	return b.String()
}

// formatBudgetStatus formats budget statuses as a text table.
func formatBudgetStatus(statuses []models.BudgetStatus) string {
	if len(statuses) == 0 {
		return "No budget policies found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %-8s %10s %10s %10s %6s\n",
		"Backend", "Period", "Max Runs", "Used", "Remaining", "Usage%")
	b.WriteString(strings.Repeat("-", 65) + "\n")
	for _, s := range statuses {
		name := s.Policy.Backend
		if name == "" {
			name = "*"
		}
		pct := float64(0)
		if s.Policy.MaxRuns > 0 {
			pct = float64(s.Used) / float64(s.Policy.MaxRuns) * 100
		}
		fmt.Fprintf(&b, "%-16s %-8s %10d %10d %10d %5.1f%%\n",
			name, s.Policy.Period, s.Policy.MaxRuns, s.Used, s.Remaining, pct)
	}
	return b.String()
}

// formatCacheStats formats cache stats as text. Hit counters are only
// reported by in-process stores.
func formatCacheStats(stats models.CacheStats) string {
	var b strings.Builder
	b.WriteString("Cache Statistics\n")
	fmt.Fprintf(&b, "  Entries:  %d\n", stats.Entries)
	if total := stats.Hits + stats.Misses; total > 0 {
		fmt.Fprintf(&b, "  Hits:     %d\n", stats.Hits)
		fmt.Fprintf(&b, "  Misses:   %d\n", stats.Misses)
		fmt.Fprintf(&b, "  Hit Rate: %.1f%%\n", float64(stats.Hits)/float64(total)*100)
	}
	return b.String()
}

func formatCleared(n int64) string {
	if n == 1 {
		return "Cleared 1 cache entry."
	}
	return fmt.Sprintf("Cleared %d cache entries.", n)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
