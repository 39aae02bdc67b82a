// Package fetcherr defines the error taxonomy shared by all source clients.
// Every network or parse failure crossing the sync boundary is one of these;
// sync jobs never see a raw transport error or a panic.
package fetcherr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Unreachable Kind = iota
	RateLimited
	AuthFailure
	MalformedResponse
	// Blocked is scraping-specific: a CAPTCHA, rate-limit page, or
	// empty-but-200 response. Distinct from "provider has no records".
	Blocked
)

func (k Kind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case RateLimited:
		return "rate_limited"
	case AuthFailure:
		return "auth_failure"
	case MalformedResponse:
		return "malformed_response"
	case Blocked:
		return "blocked"
	}
	return "unknown"
}

type Error struct {
	Provider string
	Kind     Kind
	Status   int
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (%d): %s", e.Provider, e.Kind, e.Status, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(provider string, kind Kind, msg string) *Error {
	return &Error{Provider: provider, Kind: kind, Msg: msg}
}

func Wrap(provider string, kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Provider: provider, Kind: kind, Msg: err.Error(), Err: err}
}

// FromStatus classifies a non-2xx HTTP response.
func FromStatus(provider string, status int, body string) *Error {
	kind := Unreachable
	switch {
	case status == http.StatusTooManyRequests:
		kind = RateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = AuthFailure
	}
	if len(body) > 256 {
		body = body[:256]
	}
	return &Error{Provider: provider, Kind: kind, Status: status, Msg: body}
}

// KindOf reports the taxonomy kind of err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

func IsBlocked(err error) bool {
	k, ok := KindOf(err)
	return ok && k == Blocked
}
