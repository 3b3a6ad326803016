// Package audit produces a static risk report from a contract ABI.
//
// The scan is name-based: it sees what functions are called, not what they
// do. It runs without network access.
package audit

import (
	"sort"

	"github.com/Mohsinsiddi/w3studio/internal/contract"
	"github.com/Mohsinsiddi/w3studio/internal/match"
)

// Severity of a finding.
type Severity string

const (
	Critical Severity = "critical"
	High     Severity = "high"
	Medium   Severity = "medium"
	Low      Severity = "low"
	Info     Severity = "info"
)

var penalty = map[Severity]int{Critical: 25, High: 15, Medium: 8, Low: 3, Info: 0}

var rank = map[Severity]int{Critical: 0, High: 1, Medium: 2, Low: 3, Info: 4}

// Purpose is the probable role of a contract.
type Purpose string

const (
	PurposeToken      Purpose = "token"
	PurposeNFT        Purpose = "nft"
	PurposeGovernance Purpose = "governance"
	PurposeProxy      Purpose = "proxy"
	PurposeDeFi       Purpose = "defi"
	PurposeUnknown    Purpose = "unknown"
)

// TrustModel describes how much control privileged accounts retain.
type TrustModel string

const (
	Centralized   TrustModel = "centralized"
	Hybrid        TrustModel = "hybrid"
	Decentralized TrustModel = "decentralized"
)

// Finding is one consolidated row of the report.
type Finding struct {
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Remediation string   `json:"remediation,omitempty"`
	Functions   []string `json:"functions,omitempty"`
}

// Report is the result of a scan.
type Report struct {
	Name          string     `json:"name,omitempty"`
	Purpose       Purpose    `json:"purpose"`
	TrustModel    TrustModel `json:"trust_model"`
	Institutional bool       `json:"institutional"`
	Markers       []string   `json:"markers,omitempty"`
	Score         int        `json:"score"`
	Findings      []Finding  `json:"findings"`
}

// Scanner runs the pattern table under a policy.
type Scanner struct {
	policy *Policy
}

// NewScanner returns a Scanner. A nil policy uses the embedded default.
func NewScanner(p *Policy) *Scanner {
	if p == nil {
		p = DefaultPolicy()
	}
	return &Scanner{policy: p}
}

// Scan is shorthand for NewScanner(nil).Scan.
func Scan(abi []contract.ABIEntry, name string) Report {
	return NewScanner(nil).Scan(abi, name)
}

// Scan builds the report for abi. name may be empty. Context detection looks
// at every function; the pattern scan only at state-changing ones.
func (s *Scanner) Scan(abi []contract.ABIEntry, name string) Report {
	names := functionNames(abi, false)
	writes := functionNames(abi, true)
	institutional := s.policy.IsInstitutional(name)

	r := Report{
		Name:          name,
		Purpose:       detectPurpose(names),
		Institutional: institutional,
	}
	r.Markers, r.TrustModel = trustModel(names)
	if institutional {
		r.TrustModel = Centralized
	}

	// Patterns match writes only, so a paused() or owner() getter alone
	// raises no finding.
	for _, p := range patterns {
		var hits []string
		for _, n := range writes {
			if p.matcher.Match(n) {
				hits = append(hits, n)
			}
		}
		if len(hits) == 0 {
			continue
		}
		f := Finding{
			Severity:    p.severity,
			Category:    p.category,
			Title:       p.title,
			Description: p.description,
			Remediation: p.remediation,
			Functions:   hits,
		}
		if institutional && p.altSeverity != "" {
			f.Severity = p.altSeverity
			if p.altRemediation != "" {
				f.Remediation = p.altRemediation
			}
		}
		r.Findings = append(r.Findings, f)
	}

	sort.SliceStable(r.Findings, func(i, j int) bool {
		return rank[r.Findings[i].Severity] < rank[r.Findings[j].Severity]
	})
	r.Score = score(r.Findings)
	return r
}

func score(findings []Finding) int {
	s := 100
	for _, f := range findings {
		s -= penalty[f.Severity]
	}
	if s < 0 {
		return 0
	}
	return s
}

// functionNames returns unique function names in ABI order, optionally only
// state-changing ones.
func functionNames(abi []contract.ABIEntry, writesOnly bool) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range abi {
		if e.Type != "function" || seen[e.Name] {
			continue
		}
		if writesOnly && !e.IsWriteFunction() {
			continue
		}
		seen[e.Name] = true
		out = append(out, e.Name)
	}
	return out
}

func has(names []string, m *match.Matcher) bool {
	for _, n := range names {
		if m.Match(n) {
			return true
		}
	}
	return false
}

func hasAll(names []string, required ...string) bool {
	set := map[string]bool{}
	for _, n := range names {
		set[match.Normalize(n)] = true
	}
	for _, r := range required {
		if !set[match.Normalize(r)] {
			return false
		}
	}
	return true
}

var (
	governanceFns = match.New(match.Exact, "propose", "castvote", "castvotewithreason", "queue", "quorum")
	defiFns       = match.New(match.Prefix, "swap", "addliquidity", "removeliquidity", "borrow", "repay", "liquidate", "stake", "flashloan")
	proxyFns      = match.New(match.Exact, "upgradeto", "upgradetoandcall", "implementation", "admin", "changeadmin")
)

func detectPurpose(names []string) Purpose {
	switch {
	case hasAll(names, "propose", "castVote") || (hasAll(names, "propose", "execute") && has(names, governanceFns)):
		return PurposeGovernance
	case hasAll(names, "ownerOf", "tokenURI") || hasAll(names, "ownerOf", "safeTransferFrom"):
		return PurposeNFT
	case hasAll(names, "transfer", "approve", "balanceOf"):
		return PurposeToken
	case has(names, defiFns) || hasAll(names, "deposit", "withdraw"):
		return PurposeDeFi
	case has(names, proxyFns):
		return PurposeProxy
	}
	return PurposeUnknown
}

// Capability markers counted for the trust model.
var markers = []struct {
	name    string
	matcher *match.Matcher
}{
	{"ownership", match.New(match.Prefix, "owner", "transferownership", "renounceownership", "setowner")},
	{"pause", match.New(match.Prefix, "pause", "unpause")},
	{"upgrade", match.New(match.Prefix, "upgradeto", "setimplementation")},
	{"blacklist", match.New(match.Prefix, "blacklist", "blocklist", "denylist", "unblacklist", "isblacklisted", "freeze")},
}

func trustModel(names []string) ([]string, TrustModel) {
	var found []string
	for _, m := range markers {
		if has(names, m.matcher) {
			found = append(found, m.name)
		}
	}
	switch {
	case len(found) >= 3:
		return found, Centralized
	case len(found) >= 1:
		return found, Hybrid
	}
	return found, Decentralized
}
