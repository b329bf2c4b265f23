package reporter

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethanolivertroy/pinlock/internal/models"
	"github.com/google/uuid"
)

// SARIFReporter outputs findings in SARIF format for GitHub Code Scanning
type SARIFReporter struct{}

// SARIF structures
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool              `json:"tool"`
	AutomationDetails sarifAutomationDetails `json:"automationDetails"`
	Results           []sarifResult          `json:"results"`
}

type sarifAutomationDetails struct {
	ID   string `json:"id"`
	GUID string `json:"guid"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	ShortDescription sarifText       `json:"shortDescription"`
	FullDescription  sarifText       `json:"fullDescription"`
	Help             sarifText       `json:"help"`
	HelpURI          string          `json:"helpUri,omitempty"`
	DefaultConfig    sarifRuleConfig `json:"defaultConfiguration"`
	Properties       sarifProperties `json:"properties"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifProperties struct {
	Tags             []string `json:"tags"`
	SecuritySeverity string   `json:"security-severity,omitempty"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifText         `json:"message"`
	Locations           []sarifLocation   `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           *sarifRegion  `json:"region,omitempty"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

// ruleSet accumulates rules and hands out stable indexes
type ruleSet struct {
	rules map[string]sarifRule
	index map[string]int
}

func (rs *ruleSet) add(rule sarifRule) {
	if _, ok := rs.rules[rule.ID]; !ok {
		rs.rules[rule.ID] = rule
	}
}

func (rs *ruleSet) finalize() []sarifRule {
	ids := make([]string, 0, len(rs.rules))
	for id := range rs.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]sarifRule, 0, len(ids))
	for _, id := range ids {
		rs.index[id] = len(out)
		out = append(out, rs.rules[id])
	}
	return out
}

// Report generates SARIF output for the given report
func (r *SARIFReporter) Report(report *models.Report) ([]byte, error) {
	rs := &ruleSet{rules: make(map[string]sarifRule), index: make(map[string]int)}

	for _, i := range report.Issues {
		rs.add(issueRule(i))
	}
	for _, v := range report.Results {
		if !v.OK() {
			rs.add(outcomeRule(v.Outcome))
		}
	}
	for _, f := range report.Findings {
		for _, kev := range f.KEVs {
			rs.add(kevRule(kev))
		}
	}
	rules := rs.finalize()

	var results []sarifResult
	results = append(results, r.issueResults(report.Issues, rs.index)...)
	results = append(results, r.verifyResults(report.Results, rs.index)...)
	results = append(results, r.kevResults(report.Findings, rs.index)...)
	if results == nil {
		results = []sarifResult{}
	}

	guid := report.RunID
	if guid == "" {
		guid = uuid.NewString()
	}

	out := sarifReport{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           "pinlock",
					Version:        "1.0.0",
					InformationURI: "https://github.com/ethanolivertroy/pinlock",
					Rules:          rules,
				},
			},
			AutomationDetails: sarifAutomationDetails{
				ID:   "pinlock/" + report.Command + "/",
				GUID: guid,
			},
			Results: results,
		}},
	}

	return json.MarshalIndent(out, "", "  ")
}

func issueRule(i models.Issue) sarifRule {
	return sarifRule{
		ID:               "PIN-" + i.Code,
		Name:             i.Code,
		ShortDescription: sarifText{Text: "Manifest policy: " + i.Code},
		FullDescription:  sarifText{Text: "A requirements record violates the pinned-manifest policy (" + i.Code + ")."},
		Help:             sarifText{Text: "Every record must be pinned with == and carry at least one --hash entry."},
		DefaultConfig:    sarifRuleConfig{Level: sarifLevel(i.Severity)},
		Properties:       sarifProperties{Tags: []string{"supply-chain", "lockfile"}},
	}
}

func outcomeRule(o models.Outcome) sarifRule {
	return sarifRule{
		ID:               "ART-" + string(o),
		Name:             string(o),
		ShortDescription: sarifText{Text: "Artifact rejected: " + string(o)},
		FullDescription:  sarifText{Text: "An artifact did not match the bytes approved in the manifest."},
		Help:             sarifText{Text: "Do not install the artifact. Re-download it or re-pin the record after review."},
		DefaultConfig:    sarifRuleConfig{Level: "error"},
		Properties: sarifProperties{
			Tags:             []string{"security", "supply-chain", "integrity"},
			SecuritySeverity: "9.0",
		},
	}
}

func kevRule(kev models.KEVInfo) sarifRule {
	severity := "8.0" // High severity for all KEVs
	tags := []string{"security", "vulnerability", "kev", "cisa"}
	if kev.RansomwareUse {
		severity = "9.5"
		tags = append(tags, "ransomware")
	}

	return sarifRule{
		ID:               kev.CVEID,
		Name:             kev.VulnerabilityName,
		ShortDescription: sarifText{Text: fmt.Sprintf("KEV: %s - %s", kev.CVEID, kev.VulnerabilityName)},
		FullDescription:  sarifText{Text: kev.ShortDescription},
		Help: sarifText{Text: fmt.Sprintf("Required Action: %s\n\nDue Date: %s\n\nThis vulnerability is in the CISA Known Exploited Vulnerabilities catalog.",
			kev.RequiredAction, kev.DueDate.Format("2006-01-02"))},
		HelpURI:       fmt.Sprintf("https://nvd.nist.gov/vuln/detail/%s", kev.CVEID),
		DefaultConfig: sarifRuleConfig{Level: "error"},
		Properties:    sarifProperties{Tags: tags, SecuritySeverity: severity},
	}
}

func sarifLevel(s models.Severity) string {
	if s == models.SeverityError {
		return "error"
	}
	return "warning"
}

func location(uri string, line int) sarifLocation {
	loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{ArtifactLocation: sarifArtifact{URI: uri}}}
	if line > 0 {
		loc.PhysicalLocation.Region = &sarifRegion{StartLine: line}
	}
	return loc
}

func (r *SARIFReporter) issueResults(issues []models.Issue, index map[string]int) []sarifResult {
	var results []sarifResult
	for _, i := range issues {
		id := "PIN-" + i.Code
		results = append(results, sarifResult{
			RuleID:    id,
			RuleIndex: index[id],
			Level:     sarifLevel(i.Severity),
			Message:   sarifText{Text: i.Message},
			Locations: []sarifLocation{location(i.File, i.Line)},
			PartialFingerprints: map[string]string{
				"primaryLocationLineHash": fmt.Sprintf("%s:%s:%s", i.File, i.Name, i.Code),
			},
		})
	}
	return results
}

func (r *SARIFReporter) verifyResults(vrs []models.VerifyResult, index map[string]int) []sarifResult {
	var results []sarifResult
	for _, v := range vrs {
		if v.OK() {
			continue
		}
		id := "ART-" + string(v.Outcome)
		results = append(results, sarifResult{
			RuleID:    id,
			RuleIndex: index[id],
			Level:     "error",
			Message:   sarifText{Text: fmt.Sprintf("%s rejected: %s", v.Path, v.Detail)},
			Locations: []sarifLocation{location(v.Path, 0)},
			PartialFingerprints: map[string]string{
				"primaryLocationLineHash": fmt.Sprintf("%s:%s", v.Path, v.Outcome),
			},
		})
	}
	return results
}

func (r *SARIFReporter) kevResults(findings []models.Finding, index map[string]int) []sarifResult {
	var results []sarifResult
	for _, f := range findings {
		for _, kev := range f.KEVs {
			msg := fmt.Sprintf("Dependency %s has known exploited vulnerability %s: %s",
				f.Dependency.String(), kev.CVEID, kev.VulnerabilityName)
			if kev.EPSSScore > 0 {
				msg += fmt.Sprintf(" (EPSS: %.1f%%)", kev.EPSSScore*100)
			}
			if kev.RansomwareUse {
				msg += " [Known ransomware usage]"
			}

			results = append(results, sarifResult{
				RuleID:    kev.CVEID,
				RuleIndex: index[kev.CVEID],
				Level:     "error",
				Message:   sarifText{Text: msg},
				Locations: []sarifLocation{location(f.Dependency.SourceFile, f.Dependency.Line)},
				PartialFingerprints: map[string]string{
					"primaryLocationLineHash": fmt.Sprintf("%s:%s:%s",
						f.Dependency.Name, f.Dependency.Version, kev.CVEID),
				},
			})
		}
	}
	return results
}
