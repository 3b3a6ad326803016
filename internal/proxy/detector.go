// Package proxy detects delegating proxy contracts by reading the well-known
// implementation storage slots.
package proxy

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Pattern tags how a proxy was recognised.
type Pattern string

const (
	PatternStandardSlot Pattern = "standard-storage-slot"
	PatternUUPSSlot     Pattern = "uups-storage-slot"
	PatternLegacySlot   Pattern = "legacy-vendor-slot"
	PatternBeaconSlot   Pattern = "beacon-slot"
	PatternViaCall      Pattern = "unknown-via-call"
)

// Storage slots, checked in this order.
const (
	// EIP-1967: bytes32(uint256(keccak256("eip1967.proxy.implementation")) - 1)
	SlotEIP1967Implementation = "0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc"
	// EIP-1822: keccak256("PROXIABLE")
	SlotEIP1822Proxiable = "0xc5f16f0fcc639fa48a6947836d9850f504798523bf8c9a3a87d5876cf622bcf7"
	// OpenZeppelin pre-1967: keccak256("org.zeppelinos.proxy.implementation")
	SlotZeppelinOSImplementation = "0x7050c9e0f4ca769c69bd3a8ef740bc37934f8e2c036e5a723fd8ee048ed3f8c3"
	// EIP-1967: bytes32(uint256(keccak256("eip1967.proxy.beacon")) - 1)
	SlotEIP1967Beacon = "0xa3f0ad74e5423aebfd80d3ef4346578335a9a72aeaee59ff6cb3582b35133d50"
)

// SelectorImplementation is implementation().
const SelectorImplementation = "0x5c60da1b"

// Info is the result of a detection.
type Info struct {
	IsProxy        bool    `json:"is_proxy"`
	Implementation string  `json:"implementation,omitempty"`
	Pattern        Pattern `json:"pattern,omitempty"`
}

// Reader is the chain capability the detector needs.
type Reader interface {
	GetStorageAt(ctx context.Context, address, slot string) (string, error)
	CallContract(ctx context.Context, to, calldata string) (string, error)
}

var slots = []struct {
	slot    string
	pattern Pattern
}{
	{SlotEIP1967Implementation, PatternStandardSlot},
	{SlotEIP1822Proxiable, PatternUUPSSlot},
	{SlotZeppelinOSImplementation, PatternLegacySlot},
	{SlotEIP1967Beacon, PatternBeaconSlot},
}

// Detector checks addresses for proxy patterns.
type Detector struct {
	reader Reader
	log    logrus.FieldLogger
}

// NewDetector returns a Detector reading through r.
func NewDetector(r Reader, log logrus.FieldLogger) *Detector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Detector{reader: r, log: log.WithField("module", "proxy")}
}

// Detect returns the first matching pattern. Read failures count as an empty
// slot, so an unreachable chain yields IsProxy=false rather than an error.
//
// A beacon-slot match carries the beacon address, not the implementation;
// use ResolveBeacon to follow it.
func (d *Detector) Detect(ctx context.Context, address string) Info {
	for _, s := range slots {
		word, err := d.reader.GetStorageAt(ctx, address, s.slot)
		if err != nil {
			d.log.WithError(err).WithField("slot", s.pattern).Debug("slot read failed")
			continue
		}
		if impl := addressFromWord(word); impl != "" {
			return Info{IsProxy: true, Implementation: impl, Pattern: s.pattern}
		}
	}

	out, err := d.reader.CallContract(ctx, address, SelectorImplementation)
	if err != nil {
		d.log.WithError(err).Debug("implementation() call failed")
		return Info{}
	}
	if impl := addressFromWord(out); impl != "" {
		return Info{IsProxy: true, Implementation: impl, Pattern: PatternViaCall}
	}
	return Info{}
}

// ResolveBeacon calls implementation() on a beacon. It returns "" when the
// beacon does not answer with a non-zero address.
func (d *Detector) ResolveBeacon(ctx context.Context, beacon string) string {
	out, err := d.reader.CallContract(ctx, beacon, SelectorImplementation)
	if err != nil {
		d.log.WithError(err).WithField("beacon", beacon).Debug("beacon implementation() failed")
		return ""
	}
	return addressFromWord(out)
}

// addressFromWord reads the low 20 bytes of a 32-byte word. Zero, short or
// malformed words yield "".
func addressFromWord(word string) string {
	h := strings.TrimPrefix(strings.TrimPrefix(word, "0x"), "0X")
	if len(h) < 64 {
		return ""
	}
	h = h[:64]
	b := common.FromHex(h)
	if len(b) != 32 {
		return ""
	}
	addr := common.BytesToAddress(b[12:])
	if addr == (common.Address{}) {
		return ""
	}
	return addr.Hex()
}
