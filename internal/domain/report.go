package domain

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
)

// DiscoveredResourceSummary is the report-facing projection of a
// DiscoveredResource, just enough to print, without tying the report to
// any agent's concrete resource type.
type DiscoveredResourceSummary struct {
	ResourceType string `json:"resource_type"`
	Name         string `json:"name"`
}

func SummarizeResources(resources []DiscoveredResource) []DiscoveredResourceSummary {
	out := make([]DiscoveredResourceSummary, 0, len(resources))
	for _, r := range resources {
		out = append(out, DiscoveredResourceSummary{ResourceType: r.ResourceType(), Name: r.ResourceName()})
	}
	return out
}

// SkillExecutionRecord is one entry in the executed-skills table.
type SkillExecutionRecord struct {
	SkillName string        `json:"skill_name"`
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// RollbackStepRecord is one entry in the rollback table.
type RollbackStepRecord struct {
	SkillName string        `json:"skill_name"`
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// ExperimentReport is the terminal artifact of a run: everything the
// orchestrator observed, independent of how the caller consumes it (CLI
// text, JSON over HTTP, SSE events).
type ExperimentReport struct {
	ExperimentID        uuid.UUID                   `json:"experiment_id"`
	ExperimentName      string                      `json:"experiment_name"`
	TargetDomain        TargetDomain                `json:"target_domain"`
	Status              ExperimentStatus            `json:"status"`
	StartedAt           *time.Time                  `json:"started_at,omitempty"`
	CompletedAt         *time.Time                  `json:"completed_at,omitempty"`
	SoakDuration        time.Duration               `json:"soak_duration"`
	DiscoveredResources []DiscoveredResourceSummary `json:"discovered_resources"`
	SkillExecutions     []SkillExecutionRecord      `json:"skill_executions"`
	RollbackSteps       []RollbackStepRecord        `json:"rollback_steps"`
}

func (r *ExperimentReport) TotalDuration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

func formatDuration(d time.Duration) string {
	if d >= time.Minute {
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	if d >= time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}

const reportBar = "================================================================"

// String renders the report as a bordered plain-text summary suitable for
// CLI output.
func (r *ExperimentReport) String() string {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, reportBar)
	fmt.Fprintf(&buf, "Name:      %s\n", r.ExperimentName)
	fmt.Fprintf(&buf, "ID:        %s\n", r.ExperimentID)
	fmt.Fprintf(&buf, "Target:    %s\n", r.TargetDomain)
	fmt.Fprintf(&buf, "Status:    %s\n", r.Status)
	if r.Status == ExperimentFailed {
		fmt.Fprintf(&buf, "Duration:  %s\n", formatDuration(r.TotalDuration()))
	}
	fmt.Fprintln(&buf, reportBar)

	fmt.Fprintf(&buf, "\nDISCOVERED RESOURCES (%d)\n", len(r.DiscoveredResources))
	if len(r.DiscoveredResources) > 0 {
		tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tNAME")
		for _, res := range r.DiscoveredResources {
			fmt.Fprintf(tw, "%s\t%s\n", res.ResourceType, res.Name)
		}
		tw.Flush()
	}

	fmt.Fprintf(&buf, "\nSKILLS EXECUTED (%d)\n", len(r.SkillExecutions))
	if len(r.SkillExecutions) > 0 {
		tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tSKILL\tRESULT\tDURATION")
		for i, s := range r.SkillExecutions {
			result := "OK"
			if !s.Success {
				result = "FAILED"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, s.SkillName, result, formatDuration(s.Duration))
			if s.Error != "" {
				fmt.Fprintf(tw, "\t-> %s\t\t\n", s.Error)
			}
		}
		tw.Flush()
	}

	fmt.Fprintf(&buf, "\nROLLBACK (%d steps)\n", len(r.RollbackSteps))
	if len(r.RollbackSteps) > 0 {
		tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tSKILL\tRESULT\tDURATION")
		for i, s := range r.RollbackSteps {
			result := "OK"
			if !s.Success {
				result = "FAILED"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, s.SkillName, result, formatDuration(s.Duration))
			if s.Error != "" {
				fmt.Fprintf(tw, "\t-> %s\t\t\n", s.Error)
			}
		}
		tw.Flush()
	}

	fmt.Fprintln(&buf, "\nTIMELINE")
	if r.StartedAt != nil {
		fmt.Fprintf(&buf, "  Started:   %s\n", r.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	if r.CompletedAt != nil {
		fmt.Fprintf(&buf, "  Completed: %s\n", r.CompletedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Fprintf(&buf, "  Soak time: %s\n", formatDuration(r.SoakDuration))
	fmt.Fprintf(&buf, "  Total:     %s\n", formatDuration(r.TotalDuration()))
	fmt.Fprintln(&buf, reportBar)

	return buf.String()
}
