package reporter

import (
	"encoding/json"

	"github.com/ethanolivertroy/pinlock/internal/models"
)

// JSONReporter outputs the report in JSON format
type JSONReporter struct{}

type jsonOutput struct {
	RunID    string        `json:"run_id"`
	Command  string        `json:"command"`
	Summary  jsonSummary   `json:"summary"`
	Issues   []jsonIssue   `json:"issues"`
	Results  []jsonResult  `json:"results"`
	Findings []jsonFinding `json:"findings"`
}

type jsonSummary struct {
	Errors            int `json:"errors"`
	Warnings          int `json:"warnings"`
	Verified          int `json:"verified"`
	Rejected          int `json:"rejected"`
	TotalKEVs         int `json:"total_kevs"`
	RansomwareRelated int `json:"ransomware_related"`
	AffectedPackages  int `json:"affected_packages"`
}

type jsonIssue struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Package  string `json:"package,omitempty"`
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

type jsonResult struct {
	Path     string   `json:"path"`
	Package  string   `json:"package,omitempty"`
	Version  string   `json:"version,omitempty"`
	Outcome  string   `json:"outcome"`
	Digest   string   `json:"digest,omitempty"`
	Expected []string `json:"expected,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

type jsonFinding struct {
	Package    jsonPackage `json:"package"`
	SourceFile string      `json:"source_file"`
	Line       int         `json:"line,omitempty"`
	KEVs       []jsonKEV   `json:"kevs"`
}

type jsonPackage struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Ecosystem string `json:"ecosystem"`
}

type jsonKEV struct {
	CVEID             string   `json:"cve_id"`
	VendorProject     string   `json:"vendor_project"`
	Product           string   `json:"product"`
	VulnerabilityName string   `json:"vulnerability_name"`
	Description       string   `json:"description"`
	DateAdded         string   `json:"date_added"`
	DueDate           string   `json:"due_date"`
	RequiredAction    string   `json:"required_action"`
	RansomwareUse     bool     `json:"ransomware_use"`
	CWEs              []string `json:"cwes,omitempty"`
	EPSSScore         float64  `json:"epss_score,omitempty"`
	EPSSPercentile    float64  `json:"epss_percentile,omitempty"`
}

// Report generates JSON output for the given report
func (r *JSONReporter) Report(report *models.Report) ([]byte, error) {
	output := jsonOutput{
		RunID:    report.RunID,
		Command:  report.Command,
		Issues:   make([]jsonIssue, 0, len(report.Issues)),
		Results:  make([]jsonResult, 0, len(report.Results)),
		Findings: make([]jsonFinding, 0, len(report.Findings)),
	}
	output.Summary.AffectedPackages = len(report.Findings)

	for _, i := range report.Issues {
		if i.Severity == models.SeverityError {
			output.Summary.Errors++
		} else {
			output.Summary.Warnings++
		}
		output.Issues = append(output.Issues, jsonIssue{
			Severity: string(i.Severity),
			Code:     i.Code,
			Package:  i.Name,
			File:     i.File,
			Line:     i.Line,
			Message:  i.Message,
		})
	}

	for _, v := range report.Results {
		if v.OK() {
			output.Summary.Verified++
		} else {
			output.Summary.Rejected++
		}
		jr := jsonResult{
			Path:    v.Path,
			Package: v.Name,
			Version: v.Version,
			Outcome: string(v.Outcome),
			Detail:  v.Detail,
		}
		if v.Digest.Hex != "" {
			jr.Digest = v.Digest.String()
		}
		for _, d := range v.Expected {
			jr.Expected = append(jr.Expected, d.String())
		}
		output.Results = append(output.Results, jr)
	}

	for _, f := range report.Findings {
		jf := jsonFinding{
			Package: jsonPackage{
				Name:      f.Dependency.Name,
				Version:   f.Dependency.Version,
				Ecosystem: string(f.Dependency.Ecosystem),
			},
			SourceFile: f.Dependency.SourceFile,
			Line:       f.Dependency.Line,
			KEVs:       make([]jsonKEV, 0, len(f.KEVs)),
		}

		output.Summary.TotalKEVs += len(f.KEVs)
		output.Summary.RansomwareRelated += f.RansomwareCount()
		for _, kev := range f.KEVs {
			jf.KEVs = append(jf.KEVs, jsonKEV{
				CVEID:             kev.CVEID,
				VendorProject:     kev.VendorProject,
				Product:           kev.Product,
				VulnerabilityName: kev.VulnerabilityName,
				Description:       kev.ShortDescription,
				DateAdded:         kev.DateAdded.Format("2006-01-02"),
				DueDate:           kev.DueDate.Format("2006-01-02"),
				RequiredAction:    kev.RequiredAction,
				RansomwareUse:     kev.RansomwareUse,
				CWEs:              kev.CWEs,
				EPSSScore:         kev.EPSSScore,
				EPSSPercentile:    kev.EPSSPercentile,
			})
		}

		output.Findings = append(output.Findings, jf)
	}

	return json.MarshalIndent(output, "", "  ")
}
