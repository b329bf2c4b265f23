package reporter

import (
	"fmt"
	"strings"

	"github.com/ethanolivertroy/pinlock/internal/models"
)

// TerminalReporter outputs a human-readable report
type TerminalReporter struct{}

// Report generates terminal output for the given report
func (r *TerminalReporter) Report(report *models.Report) ([]byte, error) {
	var sb strings.Builder

	r.writeIssues(&sb, report.Issues)
	r.writeResults(&sb, report.Results)
	if report.Command == "scan" {
		r.writeFindings(&sb, report.Findings)
	}

	if sb.Len() == 0 {
		sb.WriteString("No problems found.\n")
	}
	return []byte(sb.String()), nil
}

func (r *TerminalReporter) writeIssues(sb *strings.Builder, issues []models.Issue) {
	if len(issues) == 0 {
		return
	}
	errors := 0
	for _, i := range issues {
		if i.Severity == models.SeverityError {
			errors++
		}
	}
	sb.WriteString(fmt.Sprintf("%d issues (%d errors)\n", len(issues), errors))
	for _, i := range issues {
		marker := "⚠️ "
		if i.Severity == models.SeverityError {
			marker = "🔴"
		}
		sb.WriteString(fmt.Sprintf("%s %s:%d [%s] %s\n", marker, i.File, i.Line, i.Code, i.Message))
	}
	sb.WriteString("\n")
}

func (r *TerminalReporter) writeResults(sb *strings.Builder, results []models.VerifyResult) {
	if len(results) == 0 {
		return
	}
	rejected := 0
	for _, v := range results {
		if !v.OK() {
			rejected++
		}
	}

	sb.WriteString(fmt.Sprintf("Verified %d artifacts, %d rejected\n", len(results), rejected))
	for _, v := range results {
		if v.OK() {
			sb.WriteString(fmt.Sprintf("✅ %s (%s==%s, %s)\n", v.Path, v.Name, v.Version, v.Digest))
			continue
		}
		sb.WriteString(fmt.Sprintf("❌ %s [%s]\n", v.Path, v.Outcome))
		if v.Detail != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", v.Detail))
		}
	}
	sb.WriteString("\n")
}

func (r *TerminalReporter) writeFindings(sb *strings.Builder, findings []models.Finding) {
	if len(findings) == 0 {
		sb.WriteString("No KEV vulnerabilities found in dependencies.\n")
		return
	}

	totalKEVs := 0
	ransomwareCount := 0
	for _, f := range findings {
		totalKEVs += len(f.KEVs)
		ransomwareCount += f.RansomwareCount()
	}

	sb.WriteString("⚠️  KEV VULNERABILITIES FOUND\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	sb.WriteString(fmt.Sprintf("Found %d KEV vulnerabilities in %d dependencies\n", totalKEVs, len(findings)))
	if ransomwareCount > 0 {
		sb.WriteString(fmt.Sprintf("🚨 %d vulnerabilities known to be used in ransomware campaigns\n", ransomwareCount))
	}
	sb.WriteString("\n")

	for _, f := range findings {
		sb.WriteString(fmt.Sprintf("📦 %s\n", f.Dependency.String()))
		sb.WriteString(fmt.Sprintf("   Source: %s", f.Dependency.SourceFile))
		if f.Dependency.Line > 0 {
			sb.WriteString(fmt.Sprintf(":%d", f.Dependency.Line))
		}
		sb.WriteString("\n")

		for _, kev := range f.KEVs {
			sb.WriteString(fmt.Sprintf("\n   🔴 %s\n", kev.CVEID))
			sb.WriteString(fmt.Sprintf("      %s - %s\n", kev.VendorProject, kev.Product))
			if kev.VulnerabilityName != "" {
				sb.WriteString(fmt.Sprintf("      %s\n", kev.VulnerabilityName))
			}
			if kev.ShortDescription != "" {
				sb.WriteString(fmt.Sprintf("      %s\n", truncate(kev.ShortDescription, 200)))
			}
			sb.WriteString(fmt.Sprintf("      Added: %s | Due: %s\n",
				kev.DateAdded.Format("2006-01-02"),
				kev.DueDate.Format("2006-01-02")))
			if kev.EPSSScore > 0 {
				sb.WriteString(fmt.Sprintf("      EPSS: %.1f%% (percentile: %.1f%%)\n",
					kev.EPSSScore*100, kev.EPSSPercentile*100))
			}
			if kev.RansomwareUse {
				sb.WriteString("      ⚠️  Known ransomware usage\n")
			}
			if kev.RequiredAction != "" {
				sb.WriteString(fmt.Sprintf("      Required Action: %s\n", truncate(kev.RequiredAction, 100)))
			}
		}
		sb.WriteString("\n" + strings.Repeat("-", 60) + "\n")
	}

	sb.WriteString("\nFor more information, visit: https://www.cisa.gov/known-exploited-vulnerabilities-catalog\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
