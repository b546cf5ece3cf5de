package adminsession

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/dailykart/dailykart/services/storefront/backend"
)

// Kind is the user-facing class of an admin authentication failure.
type Kind string

const (
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindConnectivityIssue  Kind = "CONNECTIVITY_ISSUE"
	KindSystemError        Kind = "SYSTEM_ERROR"
)

const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgConnectivityIssue  = "Unable to connect to the system. Please check your connection and try again."
	MsgSystemError        = "A system error occurred. Please try again later."
	MsgUnexpectedError    = "An unexpected error occurred. Please try again."
)

// Error is a classified backend failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the failure says nothing about the credential itself.
func (e *Error) Transient() bool { return e.Kind == KindConnectivityIssue }

// Envelopes wrapped around the backend's message by transport layers. Matching
// is best effort and needs revisiting whenever the backend changes how it
// wraps errors.
var envelopes = []*regexp.Regexp{
	regexp.MustCompile(`(?s)upstream error: status=\d+ body=(.*)`),
	regexp.MustCompile(`(?s)Reject text:\s*(.*)`),
	regexp.MustCompile(`(?s)trapped explicitly:\s*(.*)`),
	regexp.MustCompile(`(?s)trapped:\s*(.*)`),
	regexp.MustCompile(`(?s)rpc error: code = \w+ desc = (.*)`),
}

// unwrapMessage peels known envelopes off msg, innermost message last.
func unwrapMessage(msg string) string {
	for depth := 0; depth < 4; depth++ {
		inner, ok := peel(msg)
		if !ok || inner == msg {
			break
		}
		msg = inner
	}
	return strings.TrimSpace(msg)
}

func peel(msg string) (string, bool) {
	for _, re := range envelopes {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		inner := strings.TrimSpace(m[1])
		if text, ok := jsonMessage(inner); ok {
			inner = text
		}
		return inner, true
	}
	return msg, false
}

// jsonMessage extracts {"error": "..."} or {"message": "..."} bodies.
func jsonMessage(body string) (string, bool) {
	if !strings.HasPrefix(body, "{") {
		return "", false
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return "", false
	}
	if payload.Error != "" {
		return payload.Error, true
	}
	if payload.Message != "" {
		return payload.Message, true
	}
	return "", false
}

type rule struct {
	kind    Kind
	message string
	match   func(err error, text string) bool
}

func containsAny(keywords ...string) func(error, string) bool {
	return func(_ error, text string) bool {
		for _, k := range keywords {
			if strings.Contains(text, k) {
				return true
			}
		}
		return false
	}
}

func transportFailure(err error, _ string) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func gatewayStatus(err error, _ string) bool {
	var se *backend.StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// rules are evaluated in order; the first match decides.
var rules = []rule{
	{KindConnectivityIssue, MsgConnectivityIssue, transportFailure},
	{KindConnectivityIssue, MsgConnectivityIssue, gatewayStatus},
	{KindInvalidCredentials, MsgInvalidCredentials, containsAny("invalid credentials", "invalid username", "invalid password")},
	{KindConnectivityIssue, MsgConnectivityIssue, containsAny(
		"actor not available", "actor not initialized", "network", "connection", "fetch", "timeout", "unavailable",
	)},
}

// Classify maps any backend failure onto exactly one Kind.
func Classify(err error) *Error {
	if err == nil {
		return &Error{Kind: KindSystemError, Message: MsgUnexpectedError}
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	raw := err.Error()
	text := strings.ToLower(raw + "\n" + unwrapMessage(raw))
	for _, r := range rules {
		if r.match(err, text) {
			return &Error{Kind: r.kind, Message: r.message, Err: err}
		}
	}
	return &Error{Kind: KindSystemError, Message: MsgSystemError, Err: err}
}

// IsTransient reports whether err is a connectivity problem.
func IsTransient(err error) bool {
	return err != nil && Classify(err).Transient()
}
