package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/certificate"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func validateOutputFormat(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("invalid output format: %s (must be 'table', 'json' or 'yaml')", format)
}

type verificationReport struct {
	CertificateID string              `json:"certificateId" yaml:"certificateId"`
	Status        verification.Status `json:"status" yaml:"status"`
	FinalStep     *reportFinalStep    `json:"finalStep,omitempty" yaml:"finalStep,omitempty"`
	Steps         []reportStep        `json:"steps" yaml:"steps"`
}

type reportFinalStep struct {
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	LinkText    string `json:"linkText,omitempty" yaml:"linkText,omitempty"`
}

type reportStep struct {
	Code        string              `json:"code" yaml:"code"`
	Label       string              `json:"label" yaml:"label"`
	Status      verification.Status `json:"status" yaml:"status"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	SubSteps    []reportStep        `json:"subSteps,omitempty" yaml:"subSteps,omitempty"`
}

func newVerificationReport(st certificate.State) verificationReport {
	r := verificationReport{
		CertificateID: certificate.CertificateID(st),
		Status:        certificate.VerificationStatus(st),
		Steps:         []reportStep{},
	}
	if fs, ok := certificate.FinalStep(st); ok {
		r.FinalStep = &reportFinalStep{Label: fs.Label, Description: fs.Description, LinkText: fs.LinkText}
	}
	for _, g := range certificate.VerifiedStepGroups(st) {
		group := toReportStep(g.StepView)
		for _, s := range g.SubSteps {
			group.SubSteps = append(group.SubSteps, toReportStep(s))
		}
		r.Steps = append(r.Steps, group)
	}
	return r
}

func toReportStep(v certificate.StepView) reportStep {
	return reportStep{Code: v.Code, Label: v.Label, Status: v.Status, Description: v.Description}
}

func printReport(w io.Writer, format string, r verificationReport) error {
	switch format {
	case outputJSON:
		return printJSON(w, r)
	case outputYAML:
		return printYAML(w, r)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Footer = text.FormatDefault
	tw.SetTitle("Certificate " + r.CertificateID)
	tw.AppendHeader(table.Row{"Step", "Status"})
	for _, g := range r.Steps {
		tw.AppendRow(table.Row{g.Label, g.Status})
		for _, s := range g.SubSteps {
			tw.AppendRow(table.Row{"  " + s.Label, s.Status})
		}
	}
	if r.FinalStep != nil {
		tw.AppendFooter(table.Row{r.FinalStep.Label, r.FinalStep.Description})
	}
	tw.Render()
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
