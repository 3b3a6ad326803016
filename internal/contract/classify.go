package contract

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Mohsinsiddi/w3studio/internal/match"
	"golang.org/x/crypto/sha3"
)

var (
	ErrFunctionNotFound = errors.New("function not found in ABI")
	ErrAmbiguous        = errors.New("function name is overloaded; use the full signature")
)

// ParsedFunction is a function entry annotated for display and invocation.
type ParsedFunction struct {
	Entry       ABIEntry `json:"entry"`
	Signature   string   `json:"signature"`
	DisplayName string   `json:"display_name"`
	Selector    string   `json:"selector"`
	Dangerous   bool     `json:"dangerous"`
	// GroupKey is the shared name of an overload set; empty when the name
	// is unique in the ABI.
	GroupKey string `json:"group_key,omitempty"`
}

// Classified is an ABI split into read and write functions.
type Classified struct {
	Read  []ParsedFunction `json:"read"`
	Write []ParsedFunction `json:"write"`
	// Groups maps each overloaded name to its signatures.
	Groups map[string][]string `json:"groups,omitempty"`
}

// dangerFragments are normalized (lowercase, no underscores) name fragments
// of privileged operations. A function is flagged when its normalized name
// equals a fragment or starts with one.
//
// This is a name heuristic: a dangerous function under an innocuous name is
// missed, and a benign name that happens to start with a fragment is
// flagged. "pause" is deliberately absent so isPaused, pauser and unpause
// stay unflagged.
var dangerFragments = match.New(match.Prefix,
	// ownership
	"transferownership", "renounceownership", "acceptownership", "setowner",
	// upgrades
	"upgradeto", "upgrade", "setimplementation", "changeimplementation",
	// guardian / treasury
	"setguardian", "changeguardian", "settreasury", "changetreasury",
	// emergency
	"emergencywithdraw", "emergencyexit", "rescuefunds",
	// destructive
	"selfdestruct", "destroy", "kill",
	// re-initialization
	"initialize", "reinitialize",
	// admin
	"changeadmin", "setadmin", "transferadmin", "setpendingadmin",
)

// IsDangerous reports whether a function name matches the danger policy.
func IsDangerous(name string) bool {
	return dangerFragments.Match(name)
}

// keyReadNames is the auto-preview allow-list.
var keyReadNames = map[string]bool{
	"name": true, "symbol": true, "decimals": true, "totalSupply": true,
	"owner": true, "paused": true, "version": true, "balanceOf": true,
	"allowance": true,
}

// Classify partitions abi into read and write functions.
func Classify(abi []ABIEntry) Classified {
	counts := map[string]int{}
	for _, e := range abi {
		if e.Type == "function" {
			counts[e.Name]++
		}
	}

	c := Classified{Groups: map[string][]string{}}
	for _, e := range abi {
		if e.Type != "function" {
			continue
		}
		pf := Parse(e)
		if counts[e.Name] > 1 {
			pf.GroupKey = e.Name
			c.Groups[e.Name] = append(c.Groups[e.Name], pf.Signature)
		}
		if e.IsReadFunction() {
			c.Read = append(c.Read, pf)
		} else {
			c.Write = append(c.Write, pf)
		}
	}
	for _, sigs := range c.Groups {
		sort.Strings(sigs)
	}
	return c
}

// Parse annotates a single function entry.
func Parse(e ABIEntry) ParsedFunction {
	sig := e.Signature()
	display := e.Name
	if len(e.Inputs) > 0 {
		display = sig
	}
	return ParsedFunction{
		Entry:       e,
		Signature:   sig,
		DisplayName: display,
		Selector:    Selector(sig),
		Dangerous:   IsDangerous(e.Name),
	}
}

// All returns read functions followed by write functions.
func (c Classified) All() []ParsedFunction {
	out := make([]ParsedFunction, 0, len(c.Read)+len(c.Write))
	out = append(out, c.Read...)
	return append(out, c.Write...)
}

// Find looks a function up by full signature, or by bare name when the name
// is not overloaded.
func (c Classified) Find(sigOrName string) (*ParsedFunction, error) {
	sigOrName = strings.ReplaceAll(strings.TrimSpace(sigOrName), " ", "")
	all := c.All()
	for i := range all {
		if all[i].Signature == sigOrName {
			return &all[i], nil
		}
	}
	if _, overloaded := c.Groups[sigOrName]; overloaded {
		return nil, fmt.Errorf("%w: %s has %s", ErrAmbiguous, sigOrName, strings.Join(c.Groups[sigOrName], ", "))
	}
	for i := range all {
		if all[i].Entry.Name == sigOrName {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, sigOrName)
}

// KeyReads selects the cheap, argument-light read functions suitable for an
// automatic preview.
func KeyReads(read []ParsedFunction) []ParsedFunction {
	var out []ParsedFunction
	for _, f := range read {
		if !keyReadNames[f.Entry.Name] || len(f.Entry.Inputs) > 2 {
			continue
		}
		ok := true
		for _, in := range f.Entry.Inputs {
			if in.Type != "address" && in.Type != "uint256" {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, f)
		}
	}
	return out
}

// Selector computes the 4-byte selector of a canonical signature.
func Selector(signature string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return "0x" + hex.EncodeToString(h.Sum(nil)[:4])
}
