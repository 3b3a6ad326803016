package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3studio/internal/contract"
)

// SourcifyRepository is the public Sourcify repository.
const SourcifyRepository = "https://repo.sourcify.dev"

// errNotFound means a provider has no record; the resolver may fall back.
var errNotFound = errors.New("not found")

// Sourcify reads verified metadata from the keyless Sourcify repository.
type Sourcify struct {
	base    string
	fetcher Fetcher
}

// NewSourcify returns a Sourcify provider. An empty base uses the public
// repository.
func NewSourcify(base string, f Fetcher) *Sourcify {
	if base == "" {
		base = SourcifyRepository
	}
	return &Sourcify{base: strings.TrimRight(base, "/"), fetcher: f}
}

func (s *Sourcify) Name() string { return "sourcify" }

// Host returns the repository host, for proxy allow-lists.
func (s *Sourcify) Host() string {
	h := strings.TrimPrefix(strings.TrimPrefix(s.base, "https://"), "http://")
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	return h
}

type sourcifyMetadata struct {
	Output struct {
		ABI json.RawMessage `json:"abi"`
	} `json:"output"`
	Settings struct {
		CompilationTarget map[string]string `json:"compilationTarget"`
	} `json:"settings"`
}

// Fetch tries the full match first, then the partial match.
func (s *Sourcify) Fetch(ctx context.Context, req Request) (*ContractDescriptor, error) {
	addr := common.HexToAddress(req.Address).Hex()
	for _, kind := range []string{"full_match", "partial_match"} {
		target := fmt.Sprintf("%s/contracts/%s/%d/%s/metadata.json", s.base, kind, req.ChainID, addr)
		resp, err := s.fetcher.Get(ctx, target)
		if err != nil {
			return nil, newError(KindProviderUnavailable, s.Name(), "", err)
		}
		if msg, ok := resp.ProxyRejection(); ok {
			return nil, newError(KindUnknown, s.Name(), "fetch proxy refused the request: "+msg, nil)
		}
		if resp.Status == http.StatusNotFound {
			continue
		}
		if resp.Status != http.StatusOK {
			return nil, newError(KindProviderUnavailable, s.Name(), fmt.Sprintf("HTTP %d", resp.Status), nil)
		}

		var meta sourcifyMetadata
		if err := json.Unmarshal(resp.Body, &meta); err != nil {
			return nil, newError(KindProviderUnavailable, s.Name(), "response is not JSON", err)
		}
		abi, err := contract.ParseABI(meta.Output.ABI)
		if err != nil || len(abi) == 0 {
			return nil, newError(KindUnknown, s.Name(), "metadata has no ABI", err)
		}
		var name string
		for _, n := range meta.Settings.CompilationTarget {
			name = n
		}
		return &ContractDescriptor{
			Address:  req.Address,
			ChainID:  req.ChainID,
			ABI:      abi,
			Name:     name,
			Verified: true,
			IsProxy:  proxyHint(false, "", abi),
			Source:   s.Name(),
		}, nil
	}
	return nil, errNotFound
}
