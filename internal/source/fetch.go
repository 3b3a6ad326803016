package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBody caps upstream bodies; verified sources with many files can be large.
const maxBody = 16 << 20

// Response is an upstream HTTP response, fully read.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// IsJSON reports whether the upstream declared a JSON body.
func (r *Response) IsJSON() bool {
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// proxyErrorPrefix starts the status of the fetch proxy's own error
// envelope. Explorer envelopes use "0" and "1".
const proxyErrorPrefix = "ERROR: "

// ProxyRejection returns the message when the fetch proxy itself refused
// the request (host not allowed, rate limited), as opposed to relaying an
// upstream answer.
func (r *Response) ProxyRejection() (string, bool) {
	if r.Status == http.StatusOK {
		return "", false
	}
	var env struct {
		Status string `json:"status"`
	}
	if json.Unmarshal(r.Body, &env) != nil || !strings.HasPrefix(env.Status, proxyErrorPrefix) {
		return "", false
	}
	return strings.TrimPrefix(env.Status, proxyErrorPrefix), true
}

// Fetcher performs GET requests for the providers.
type Fetcher interface {
	Get(ctx context.Context, target string) (*Response, error)
}

// InjectCredential adds apikey=key to an explorer-style URL (one carrying a
// module parameter) that does not already have one.
func InjectCredential(target, key string) string {
	if key == "" {
		return target
	}
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	if q.Get("module") == "" || q.Get("apikey") != "" {
		return target
	}
	q.Set("apikey", key)
	u.RawQuery = q.Encode()
	return u.String()
}

// DirectFetcher calls providers directly. Credential, when set, is injected
// into explorer requests that carry no key of their own.
type DirectFetcher struct {
	Client     *http.Client
	Credential string
}

// NewDirectFetcher returns a DirectFetcher with a 15s timeout.
func NewDirectFetcher(credential string) *DirectFetcher {
	return &DirectFetcher{
		Client:     &http.Client{Timeout: 15 * time.Second},
		Credential: credential,
	}
}

func (f *DirectFetcher) Get(ctx context.Context, target string) (*Response, error) {
	return get(ctx, f.Client, InjectCredential(target, f.Credential))
}

// ProxyFetcher routes every request through a same-origin fetch proxy
// (GET {Base}/api/proxy?url=...), which holds the credential.
type ProxyFetcher struct {
	Base   string
	Client *http.Client
}

// NewProxyFetcher returns a ProxyFetcher for the proxy served at base.
func NewProxyFetcher(base string) *ProxyFetcher {
	return &ProxyFetcher{
		Base:   strings.TrimRight(base, "/"),
		Client: &http.Client{Timeout: 20 * time.Second},
	}
}

func (f *ProxyFetcher) Get(ctx context.Context, target string) (*Response, error) {
	return get(ctx, f.Client, f.Base+"/api/proxy?url="+url.QueryEscape(target))
}

func get(ctx context.Context, client *http.Client, target string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
