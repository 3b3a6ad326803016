package source

import (
	"errors"
	"fmt"
)

// Kind classifies a resolution failure.
type Kind string

const (
	KindNoContract          Kind = "no-contract"
	KindNotVerified         Kind = "not-verified"
	KindCredentialRequired  Kind = "credential-required"
	KindProviderUnavailable Kind = "provider-unavailable"
	KindUnknown             Kind = "unknown"
)

// Sentinels for errors.Is. *Error matches the sentinel of its Kind.
var (
	ErrNoContract          = errors.New("no contract at address")
	ErrNotVerified         = errors.New("contract not verified")
	ErrCredentialRequired  = errors.New("provider credential required")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrUnknownProvider     = errors.New("provider error")
)

var kindSentinel = map[Kind]error{
	KindNoContract:          ErrNoContract,
	KindNotVerified:         ErrNotVerified,
	KindCredentialRequired:  ErrCredentialRequired,
	KindProviderUnavailable: ErrProviderUnavailable,
	KindUnknown:             ErrUnknownProvider,
}

// Error is a classified resolution failure. Raw carries the provider's own
// message, if any.
type Error struct {
	Kind     Kind
	Provider string
	Raw      string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, kindSentinel[e.Kind])
	if e.Raw != "" {
		msg += ": " + e.Raw
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinel[e.Kind] == target
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, provider, raw string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Raw: raw, Err: err}
}

// KindOf returns the kind of a resolution error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage renders an actionable message for err.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case KindNoContract:
		return "No contract is deployed at this address on the selected chain. Check the address and the network."
	case KindNotVerified:
		return "The contract exists but its source is not verified. Verify it on the explorer or supply the ABI yourself (--abi file.json or --abi erc20)."
	case KindCredentialRequired:
		return "The explorer rejected the request for lack of a valid API key. Add one with `w3studio config set-key`."
	case KindProviderUnavailable:
		return fmt.Sprintf("%s is unavailable right now (maintenance page or network failure). Try again later.", e.Provider)
	default:
		if e.Raw != "" {
			return fmt.Sprintf("%s returned an error: %s", e.Provider, e.Raw)
		}
		return fmt.Sprintf("%s returned an unexpected error: %v", e.Provider, e.Err)
	}
}
