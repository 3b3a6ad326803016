package source

import (
	"strings"

	"github.com/Mohsinsiddi/w3studio/internal/contract"
)

// ManualSource marks a descriptor built from a user-supplied ABI.
const ManualSource = "manual"

// ContractDescriptor is the resolved view of one (chain, address) pair.
// Values are never mutated after construction.
type ContractDescriptor struct {
	Address        string              `json:"address"`
	ChainID        int64               `json:"chain_id"`
	ABI            []contract.ABIEntry `json:"abi"`
	Name           string              `json:"name,omitempty"`
	Verified       bool                `json:"verified"`
	IsProxy        bool                `json:"is_proxy"`
	Implementation string              `json:"implementation,omitempty"`
	// Source names the provider that produced the ABI.
	Source     string `json:"source"`
	SourceCode string `json:"source_code,omitempty"`

	// ReportedProxy is the provider's own proxy flag (explicit flag or
	// implementation field), without the ABI heuristic.
	ReportedProxy bool `json:"reported_proxy,omitempty"`

	// ImplementationABI is true once the implementation's ABI has been
	// substituted for the proxy's own.
	ImplementationABI bool `json:"implementation_abi,omitempty"`
}

// WithImplementation returns a copy using impl's ABI. The proxy's address,
// chain and name are kept; the implementation's name is appended.
func (d *ContractDescriptor) WithImplementation(impl *ContractDescriptor, implAddress string) *ContractDescriptor {
	out := *d
	out.ABI = append([]contract.ABIEntry(nil), impl.ABI...)
	out.Implementation = implAddress
	out.IsProxy = true
	out.ImplementationABI = true
	if impl.Name != "" {
		if out.Name == "" {
			out.Name = impl.Name
		} else {
			out.Name = out.Name + " → " + impl.Name
		}
	}
	if impl.SourceCode != "" {
		out.SourceCode = impl.SourceCode
	}
	return &out
}

// proxyHint derives the proxy flag from record fields and the ABI itself.
func proxyHint(flag bool, implementation string, abi []contract.ABIEntry) bool {
	if flag || strings.TrimSpace(implementation) != "" {
		return true
	}
	return contract.HasFunction(abi, "implementation") || contract.HasFunction(abi, "upgradeTo")
}
