package audit

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Mohsinsiddi/w3studio/internal/match"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Policy is the externally maintained part of the scanner.
type Policy struct {
	Issuers []string `yaml:"issuers"`

	issuers *match.Matcher
}

// DefaultPolicy returns the embedded policy.
func DefaultPolicy() *Policy {
	p, err := ParsePolicy(defaultPolicy)
	if err != nil {
		panic("audit: embedded policy: " + err.Error())
	}
	return p
}

// LoadPolicy reads a policy file. An empty path returns the default.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading audit policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing audit policy: %w", err)
	}
	p.issuers = match.New(match.Contains, p.Issuers...)
	return &p, nil
}

// IsInstitutional reports whether name carries an issuer keyword.
func (p *Policy) IsInstitutional(name string) bool {
	if p == nil || p.issuers == nil {
		return false
	}
	return p.issuers.Match(name)
}
