package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"google.golang.org/genai"

	errx "github.com/autoimport-pro/server/internal/core/error"
)

// Sentinels for oracle clients that do not speak genai.
var (
	ErrRateLimited = errors.New("rate limited")
	ErrConnection  = errors.New("connection failed")
	ErrTimeout     = errors.New("timed out")
	ErrAuth        = errors.New("authentication failed")
	ErrUpstream    = errors.New("upstream error")
)

// Classify converts any oracle failure into the errx taxonomy.
// Errors already classified are returned unchanged.
func Classify(err error) *errx.Error {
	if err == nil {
		return nil
	}
	var e *errx.Error
	if errors.As(err, &e) {
		return e
	}
	return errx.New(kindOf(err), err)
}

// Retryable reports whether a failure of kind k is worth another attempt.
func Retryable(k errx.Kind) bool {
	switch k {
	case errx.KindRateLimited, errx.KindConnection, errx.KindTimeout:
		return true
	}
	return false
}

func kindOf(err error) errx.Kind {
	switch {
	case errors.Is(err, ErrRateLimited):
		return errx.KindRateLimited
	case errors.Is(err, ErrConnection):
		return errx.KindConnection
	case errors.Is(err, ErrTimeout):
		return errx.KindTimeout
	case errors.Is(err, ErrAuth):
		return errx.KindAuthentication
	case errors.Is(err, ErrUpstream):
		return errx.KindUpstream
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusKind(apiErr.Code, apiErr.Status)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return statusKind(apiErrPtr.Code, apiErrPtr.Status)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errx.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errx.KindTimeout
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	var urlErr *url.Error
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &urlErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return errx.KindConnection
	}

	return textKind(err.Error())
}

func statusKind(code int, status string) errx.Kind {
	switch code {
	case http.StatusTooManyRequests:
		return errx.KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return errx.KindAuthentication
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errx.KindTimeout
	}
	if k := textKind(status); k != errx.KindUnknown {
		return k
	}
	return errx.KindUpstream
}

// textKind is the last resort for providers that flatten errors into strings.
func textKind(s string) errx.Kind {
	s = strings.ToUpper(s)
	switch {
	case strings.Contains(s, "RESOURCE_EXHAUSTED"), strings.Contains(s, "RATE LIMIT"):
		return errx.KindRateLimited
	case strings.Contains(s, "UNAUTHENTICATED"), strings.Contains(s, "PERMISSION_DENIED"), strings.Contains(s, "API KEY NOT VALID"):
		return errx.KindAuthentication
	case strings.Contains(s, "DEADLINE_EXCEEDED"):
		return errx.KindTimeout
	}
	return errx.KindUnknown
}
