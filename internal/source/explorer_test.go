package source

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
)

const testAddr = "0x6B175474E89094C44Da98b954EedeAC495271d0F"

// fetchFunc adapts a function to Fetcher and records requested URLs.
type fetchFunc struct {
	fn   func(target string) (*Response, error)
	urls []string
}

func (f *fetchFunc) Get(_ context.Context, target string) (*Response, error) {
	f.urls = append(f.urls, target)
	return f.fn(target)
}

func jsonResponse(body string) *Response {
	return &Response{Status: 200, ContentType: "application/json; charset=utf-8", Body: []byte(body)}
}

type codeStub struct {
	code string
	err  error
}

func (c codeStub) GetCode(context.Context, string) (string, error) { return c.code, c.err }

func newExplorer(fn func(string) (*Response, error)) (*Explorer, *fetchFunc) {
	f := &fetchFunc{fn: fn}
	return NewExplorer(chain.NewRegistry(), f), f
}

func TestExplorerSuccess(t *testing.T) {
	e, f := newExplorer(func(string) (*Response, error) {
		return jsonResponse(`{"status":"1","message":"OK","result":[{"ABI":` + quote(sampleABI) + `,"ContractName":"Dai","SourceCode":"contract Dai {}","Proxy":"0","Implementation":""}]}`), nil
	})
	d, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr})
	require.NoError(t, err)
	assert.Equal(t, "Dai", d.Name)
	assert.True(t, d.Verified)
	assert.False(t, d.IsProxy)
	assert.Equal(t, "explorer", d.Source)
	require.Len(t, d.ABI, 1)

	u, err := url.Parse(f.urls[0])
	require.NoError(t, err)
	assert.Equal(t, "api.etherscan.io", u.Host)
	q := u.Query()
	assert.Equal(t, "1", q.Get("chainid"))
	assert.Equal(t, "contract", q.Get("module"))
	assert.Equal(t, "getsourcecode", q.Get("action"))
	assert.Equal(t, testAddr, q.Get("address"))
	assert.False(t, q.Has("apikey"))
}

func TestExplorerPassesCallerKey(t *testing.T) {
	e, f := newExplorer(func(string) (*Response, error) {
		return jsonResponse(`{"status":"1","message":"OK","result":[{"ABI":` + quote(sampleABI) + `}]}`), nil
	})
	_, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr, APIKey: "mine"})
	require.NoError(t, err)
	assert.Contains(t, f.urls[0], "apikey=mine")
}

func TestExplorerProxyHint(t *testing.T) {
	e, _ := newExplorer(func(string) (*Response, error) {
		return jsonResponse(`{"status":"1","message":"OK","result":[{"ABI":` + quote(sampleABI) + `,"ContractName":"FiatTokenProxy","Proxy":"1","Implementation":"0x43506849d7c04f9138d1a2050bbf3a0c054402dd"}]}`), nil
	})
	d, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr})
	require.NoError(t, err)
	assert.True(t, d.IsProxy)
	assert.True(t, d.ReportedProxy)
	assert.Equal(t, "0x43506849d7c04f9138d1a2050bbf3a0c054402dd", d.Implementation)
}

func TestExplorerProxyHintFromABI(t *testing.T) {
	abi := `[{"type":"function","name":"upgradeTo","inputs":[{"name":"impl","type":"address"}],"outputs":[],"stateMutability":"nonpayable"}]`
	e, _ := newExplorer(func(string) (*Response, error) {
		return jsonResponse(`{"status":"1","message":"OK","result":{"ABI":` + quote(abi) + `,"ContractName":"Token"}}`), nil
	})
	d, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr})
	require.NoError(t, err)
	assert.True(t, d.IsProxy)
	assert.False(t, d.ReportedProxy)
}

func TestExplorerNoContract(t *testing.T) {
	e, _ := newExplorer(func(string) (*Response, error) {
		return jsonResponse(`{"status":"1","message":"OK","result":[{"ABI":"Contract source code not verified","ContractName":""}]}`), nil
	})
	_, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr, Code: codeStub{code: "0x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoContract)
	assert.Equal(t, KindNoContract, KindOf(err))
}

func TestExplorerNotVerified(t *testing.T) {
	e, _ := newExplorer(func(string) (*Response, error) {
		return jsonResponse(`{"status":"1","message":"OK","result":[{"ABI":"Contract source code not verified","ContractName":""}]}`), nil
	})
	_, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr, Code: codeStub{code: "0x6080604052"}})
	assert.ErrorIs(t, err, ErrNotVerified)
	assert.NotErrorIs(t, err, ErrNoContract)
}

func TestExplorerNotVerifiedStatusZero(t *testing.T) {
	e, _ := newExplorer(func(string) (*Response, error) {
		return jsonResponse(`{"status":"0","message":"NOTOK","result":"Contract source code not verified"}`), nil
	})
	_, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr, Code: codeStub{code: "0x60"}})
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestExplorerBytecodeCheckFailureIsNotVerified(t *testing.T) {
	e, _ := newExplorer(func(string) (*Response, error) {
		return jsonResponse(`{"status":"1","message":"OK","result":[{"ABI":"","ContractName":""}]}`), nil
	})
	_, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr, Code: codeStub{err: errors.New("dial tcp")}})
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestExplorerCredentialRequired(t *testing.T) {
	e, _ := newExplorer(func(string) (*Response, error) {
		return jsonResponse(`{"status":"0","message":"NOTOK","result":"Missing/Invalid API Key"}`), nil
	})
	_, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr})
	assert.ErrorIs(t, err, ErrCredentialRequired)
	assert.Contains(t, UserMessage(err), "API key")
}

func TestExplorerProxyRefusalIsNotCredentialError(t *testing.T) {
	for _, status := range []int{400, 403} {
		e, _ := newExplorer(func(string) (*Response, error) {
			return &Response{Status: status, ContentType: "application/json",
				Body: []byte(`{"status":"ERROR: host api.etherscan.io is not allowed"}`)}, nil
		})
		_, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr})
		assert.NotErrorIs(t, err, ErrCredentialRequired)
		assert.ErrorIs(t, err, ErrUnknownProvider)
		assert.Contains(t, UserMessage(err), "is not allowed")
		assert.NotContains(t, UserMessage(err), "API key")
	}
}

func TestExplorerForbiddenWithoutProxyEnvelope(t *testing.T) {
	e, _ := newExplorer(func(string) (*Response, error) {
		return &Response{Status: 403, ContentType: "application/json", Body: []byte(`{"status":"0","message":"NOTOK"}`)}, nil
	})
	_, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr})
	assert.ErrorIs(t, err, ErrCredentialRequired)
}

func TestExplorerHTMLMaintenancePage(t *testing.T) {
	e, _ := newExplorer(func(string) (*Response, error) {
		return &Response{Status: 200, ContentType: "text/html", Body: []byte("<html>maintenance</html>")}, nil
	})
	_, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestExplorerNon200(t *testing.T) {
	e, _ := newExplorer(func(string) (*Response, error) {
		return &Response{Status: 503, ContentType: "application/json", Body: []byte(`{}`)}, nil
	})
	_, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestExplorerRateLimited(t *testing.T) {
	e, _ := newExplorer(func(string) (*Response, error) {
		return jsonResponse(`{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`), nil
	})
	_, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestExplorerUnknownErrorKeepsRaw(t *testing.T) {
	e, _ := newExplorer(func(string) (*Response, error) {
		return jsonResponse(`{"status":"0","message":"NOTOK","result":"Invalid Address format"}`), nil
	})
	_, err := e.Fetch(context.Background(), Request{ChainID: 1, Address: testAddr})
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindUnknown, se.Kind)
	assert.Contains(t, se.Raw, "Invalid Address format")
	assert.Contains(t, UserMessage(err), "Invalid Address format")
}

func TestExplorerUnknownChain(t *testing.T) {
	e, f := newExplorer(func(string) (*Response, error) { return nil, errors.New("unreachable") })
	_, err := e.Fetch(context.Background(), Request{ChainID: 999999, Address: testAddr})
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Empty(t, f.urls)
}

func TestUserMessagesDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range []Kind{KindNoContract, KindNotVerified, KindCredentialRequired, KindProviderUnavailable, KindUnknown} {
		msg := UserMessage(newError(k, "explorer", "boom", nil))
		assert.False(t, seen[msg], "duplicate message for %s", k)
		assert.False(t, strings.TrimSpace(msg) == "")
		seen[msg] = true
	}
}
