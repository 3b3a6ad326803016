package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/contract"
	"github.com/Mohsinsiddi/w3studio/internal/match"
)

// explorerResponse is the Etherscan-compatible envelope. Result is kept raw:
// it may be a string, an array or an object.
type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Message fragments used to classify status "0" responses.
var (
	credentialMessages  = match.New(match.Contains, "api key", "apikey", "missing/invalid", "invalid key")
	unavailableMessages = match.New(match.Contains, "rate limit", "maintenance", "temporarily unavailable", "timeout")
	notVerifiedMessages = match.New(match.Contains, "not verified", "source code not found")
)

// Explorer queries the Etherscan-family getsourcecode action.
type Explorer struct {
	chains  *chain.Registry
	fetcher Fetcher
}

// NewExplorer returns an Explorer provider resolving API endpoints from chains.
func NewExplorer(chains *chain.Registry, f Fetcher) *Explorer {
	return &Explorer{chains: chains, fetcher: f}
}

func (e *Explorer) Name() string { return "explorer" }

// SourceURL builds the getsourcecode request for req.
func (e *Explorer) SourceURL(req Request) (string, error) {
	c, err := e.chains.Get(req.ChainID)
	if err != nil {
		return "", fmt.Errorf("chain %d: %w", req.ChainID, err)
	}
	if c.ExplorerAPIURL == "" {
		return "", fmt.Errorf("chain %s has no explorer API", c.Name)
	}
	q := url.Values{}
	q.Set("chainid", strconv.FormatInt(req.ChainID, 10))
	q.Set("module", "contract")
	q.Set("action", "getsourcecode")
	q.Set("address", req.Address)
	if req.APIKey != "" {
		q.Set("apikey", req.APIKey)
	}
	return c.ExplorerAPIURL + "?" + q.Encode(), nil
}

// Fetch runs one explorer call and classifies every failure.
func (e *Explorer) Fetch(ctx context.Context, req Request) (*ContractDescriptor, error) {
	rec, err := e.FetchRecord(ctx, req)
	if err != nil {
		return nil, err
	}
	if !rec.HasABI() {
		return nil, e.unverified(ctx, req, rec.ABI)
	}

	abi, err := contract.ParseABI([]byte(rec.ABI))
	if err != nil {
		return nil, newError(KindUnknown, e.Name(), "malformed ABI", err)
	}
	return &ContractDescriptor{
		Address:        req.Address,
		ChainID:        req.ChainID,
		ABI:            abi,
		Name:           rec.ContractName,
		Verified:       true,
		IsProxy:        proxyHint(rec.Proxy, rec.Implementation, abi),
		ReportedProxy:  rec.Proxy || rec.Implementation != "",
		Implementation: rec.Implementation,
		Source:         e.Name(),
		SourceCode:     rec.SourceCode,
	}, nil
}

// FetchRecord issues the request and normalizes the result. A status "0"
// response that says "not verified" yields an empty record rather than an
// error so the caller can run the bytecode check.
func (e *Explorer) FetchRecord(ctx context.Context, req Request) (Record, error) {
	target, err := e.SourceURL(req)
	if err != nil {
		return Record{}, newError(KindUnknown, e.Name(), "", err)
	}

	resp, err := e.fetcher.Get(ctx, target)
	if err != nil {
		return Record{}, newError(KindProviderUnavailable, e.Name(), "", err)
	}
	if msg, ok := resp.ProxyRejection(); ok {
		return Record{}, newError(KindUnknown, e.Name(), "fetch proxy refused the request: "+msg, nil)
	}
	if resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden {
		return Record{}, newError(KindCredentialRequired, e.Name(), fmt.Sprintf("HTTP %d", resp.Status), nil)
	}
	if resp.Status != http.StatusOK {
		return Record{}, newError(KindProviderUnavailable, e.Name(), fmt.Sprintf("HTTP %d", resp.Status), nil)
	}
	if !resp.IsJSON() {
		return Record{}, newError(KindProviderUnavailable, e.Name(),
			fmt.Sprintf("expected JSON, got %q", resp.ContentType), nil)
	}

	var env explorerResponse
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return Record{}, newError(KindProviderUnavailable, e.Name(), "malformed JSON body", err)
	}

	if env.Status != "1" {
		detail := env.Message
		var text string
		if json.Unmarshal(env.Result, &text) == nil && text != "" {
			detail = strings.TrimSpace(env.Message + ": " + text)
		}
		switch {
		case credentialMessages.Match(detail):
			return Record{}, newError(KindCredentialRequired, e.Name(), detail, nil)
		case notVerifiedMessages.Match(detail):
			return Record{ABI: NotVerifiedSentinel}, nil
		case unavailableMessages.Match(detail):
			return Record{}, newError(KindProviderUnavailable, e.Name(), detail, nil)
		default:
			return Record{}, newError(KindUnknown, e.Name(), detail, nil)
		}
	}

	rec, err := Normalize(env.Result)
	if err != nil {
		return Record{}, newError(KindUnknown, e.Name(), "unrecognised result", err)
	}
	return rec, nil
}

// unverified tells an empty address apart from unverified bytecode.
func (e *Explorer) unverified(ctx context.Context, req Request, abiField string) error {
	if req.Code == nil {
		return newError(KindNotVerified, e.Name(), abiField, nil)
	}
	code, err := req.Code.GetCode(ctx, req.Address)
	if err != nil {
		return newError(KindNotVerified, e.Name(), "bytecode check failed", err)
	}
	if strings.TrimPrefix(strings.TrimSpace(code), "0x") == "" {
		return newError(KindNoContract, e.Name(), "", nil)
	}
	return newError(KindNotVerified, e.Name(), "", nil)
}
