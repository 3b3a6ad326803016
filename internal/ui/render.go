package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mohsinsiddi/w3studio/internal/audit"
	"github.com/Mohsinsiddi/w3studio/internal/studio"
	"github.com/Mohsinsiddi/w3studio/internal/units"
)

func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 80:
		return StyleSuccess
	case score >= 50:
		return StyleWarning
	default:
		return StyleError
	}
}

func severityStyle(s audit.Severity) lipgloss.Style {
	switch s {
	case audit.Critical, audit.High:
		return StyleError
	case audit.Medium:
		return StyleWarning
	case audit.Low:
		return StyleInfo
	default:
		return StyleMeta
	}
}

// SessionSummary is the header printed after a load.
func SessionSummary(sess *studio.Session) string {
	name := ""
	source := ""
	if sess.Descriptor != nil {
		name = sess.Descriptor.Name
		source = sess.Descriptor.Source
	}
	if name == "" {
		name = "(unnamed)"
	}
	pairs := [][2]string{
		{"Contract", name},
		{"Address", sess.Address},
		{"Chain", fmt.Sprintf("%s (%d)", sess.Chain.Name, sess.Chain.ChainID)},
		{"ABI source", source},
	}
	if sess.Input != "" && !strings.EqualFold(sess.Input, sess.Address) {
		pairs = append(pairs, [2]string{"Resolved from", sess.Input})
	}
	if sess.Proxy.IsProxy {
		pairs = append(pairs,
			[2]string{"Proxy", string(sess.Proxy.Pattern)},
			[2]string{"Implementation", sess.Proxy.Implementation})
	}
	if sess.Decimals != nil {
		pairs = append(pairs, [2]string{"Decimals", fmt.Sprint(*sess.Decimals)})
	}
	pairs = append(pairs,
		[2]string{"Functions", fmt.Sprintf("%d read · %d write", len(sess.Functions.Read), len(sess.Functions.Write))},
		[2]string{"Risk score", fmt.Sprintf("%d/100 (%s)", sess.Audit.Score, sess.Audit.TrustModel)})

	var sb strings.Builder
	sb.WriteString(KeyValueBlock("Contract loaded", pairs) + "\n")
	for _, w := range sess.Warnings {
		sb.WriteString(Warn(w) + "\n")
	}
	if len(sess.KeyReads) > 0 {
		t := NewTable([]Column{{Title: "Read", Width: 28}, {Title: "Value", Width: 48}})
		for _, kr := range sess.KeyReads {
			val := strings.Join(kr.Values, ", ")
			if kr.Error != "" {
				val = StyleError.Render(kr.Error)
			}
			t.AddRow(Row{kr.Signature, val})
		}
		sb.WriteString(t.Render())
	}
	return sb.String()
}

// FunctionTable lists the read and write functions of a session.
func FunctionTable(sess *studio.Session) string {
	t := NewTable([]Column{
		{Title: "Selector", Width: 10},
		{Title: "Kind", Width: 6},
		{Title: "Signature", Width: 52},
		{Title: "Flags", Width: 12},
	})
	for _, f := range sess.Functions.Read {
		t.AddRow(Row{f.Selector, "read", f.Signature, ""})
	}
	for _, f := range sess.Functions.Write {
		var flags []string
		if f.Dangerous {
			flags = append(flags, StyleError.Render("danger"))
		}
		if f.Entry.IsPayable() {
			flags = append(flags, "payable")
		}
		t.AddRow(Row{f.Selector, StyleWarning.Render("write"), f.Signature, strings.Join(flags, " ")})
	}
	return t.Render()
}

// AuditReport renders a scan report.
func AuditReport(r audit.Report) string {
	var sb strings.Builder
	pairs := [][2]string{
		{"Purpose", string(r.Purpose)},
		{"Trust model", string(r.TrustModel)},
		{"Score", fmt.Sprintf("%d/100", r.Score)},
	}
	if r.Institutional {
		pairs = append(pairs, [2]string{"Issuer", "institutional policy applied"})
	}
	if len(r.Markers) > 0 {
		pairs = append(pairs, [2]string{"Markers", strings.Join(r.Markers, ", ")})
	}
	sb.WriteString(KeyValueBlock("Risk report", pairs) + "\n")
	sb.WriteString(findings(r.Findings))
	return sb.String()
}

// DeepAuditReport renders the external reviewer's answer.
func DeepAuditReport(r *audit.DeepReport) string {
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(fmt.Sprintf("Deep review  %s", scoreStyle(r.Score).Render(fmt.Sprintf("%d/100", r.Score)))) + "\n")
	if r.Summary != "" {
		sb.WriteString("  " + r.Summary + "\n\n")
	}
	sb.WriteString(findings(r.Findings))
	return sb.String()
}

func findings(fs []audit.Finding) string {
	if len(fs) == 0 {
		return Success("No findings.") + "\n"
	}
	var sb strings.Builder
	for _, f := range fs {
		sev := severityStyle(f.Severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(string(f.Severity))))
		sb.WriteString(fmt.Sprintf("%s %s\n", sev, StyleValue.Render(f.Title)))
		if f.Description != "" {
			sb.WriteString("    " + f.Description + "\n")
		}
		if len(f.Functions) > 0 {
			sb.WriteString(Meta("    functions: "+strings.Join(f.Functions, ", ")) + "\n")
		}
		if f.Remediation != "" {
			sb.WriteString(Meta("    fix: "+f.Remediation) + "\n")
		}
	}
	return sb.String()
}

// SimulationResult renders a dry run.
func SimulationResult(r *studio.SimulationResult) string {
	pairs := [][2]string{
		{"Function", r.Function},
		{"Calldata", r.Calldata},
	}
	if r.GasEstimate > 0 {
		pairs = append(pairs, [2]string{"Gas estimate", fmt.Sprint(r.GasEstimate)})
	}
	if r.Success {
		for i, o := range r.Outputs {
			pairs = append(pairs, [2]string{fmt.Sprintf("Output %d", i), o})
		}
		return KeyValueBlock("Simulation succeeded", pairs) + "\n"
	}
	reason := r.RevertReason
	if reason == "" {
		reason = "reverted without reason"
	}
	pairs = append(pairs, [2]string{"Revert", reason})
	return KeyValueBlock("Simulation reverted", pairs) + "\n" + Err("The transaction would fail: "+reason) + "\n"
}

// SendResult renders a mined transaction.
func SendResult(r *studio.SendResult) string {
	pairs := [][2]string{
		{"Function", r.Function},
		{"From", r.From},
		{"Hash", r.Hash},
	}
	if r.Receipt != nil {
		pairs = append(pairs,
			[2]string{"Block", fmt.Sprint(r.Receipt.BlockNumber)},
			[2]string{"Gas used", fmt.Sprint(r.Receipt.GasUsed)})
	}
	if r.URL != "" {
		pairs = append(pairs, [2]string{"Explorer", r.URL})
	}
	if r.Success {
		return KeyValueBlock("Transaction confirmed", pairs) + "\n"
	}
	return KeyValueBlock("Transaction reverted", pairs) + "\n"
}

// ParamHint renders a single inferred hint.
func ParamHint(h units.ParamHint) string {
	pairs := [][2]string{
		{"Parameter", h.Name},
		{"Type", h.Type},
		{"Category", string(h.Category)},
		{"Label", h.Label},
	}
	if h.Example != "" {
		pairs = append(pairs, [2]string{"Example", h.Example})
	}
	if h.Decimals != nil {
		pairs = append(pairs, [2]string{"Decimals", fmt.Sprint(*h.Decimals)})
	}
	if us := h.Units(); len(us) > 0 {
		names := make([]string, len(us))
		for i, u := range us {
			names[i] = string(u)
		}
		pairs = append(pairs, [2]string{"Units", strings.Join(names, ", ")})
	}
	out := KeyValueBlock("Parameter hint", pairs)
	if h.Description != "" {
		out += "\n" + Meta(h.Description)
	}
	return out + "\n"
}
