package fetcher

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ResponseError is returned when the backend answered with a failure status,
// or with a success status and a body that is not JSON.
type ResponseError struct {
	Method     string
	URL        string
	StatusCode int
	StatusText string // reason phrase sent by the backend
	Detail     any    // decoded JSON body, or the raw text when it is not JSON
	Err        error  // decode failure of a success response
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.StatusText)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResponseError) Unwrap() error { return e.Err }

// newResponseError builds a ResponseError and attaches the body as detail if it decodes.
func newResponseError(method, url string, status int, statusLine string, raw []byte) *ResponseError {
	e := &ResponseError{
		Method:     method,
		URL:        url,
		StatusCode: status,
		StatusText: reasonPhrase(status, statusLine),
	}
	if detail, err := decodeJSONUseNumber(raw); err == nil {
		e.Detail = detail
	}
	return e
}

// newDecodeError reports a success response whose body is not JSON.
func newDecodeError(method, url string, status int, statusLine string, raw []byte, err error) *ResponseError {
	return &ResponseError{
		Method:     method,
		URL:        url,
		StatusCode: status,
		StatusText: reasonPhrase(status, statusLine),
		Detail:     strings.TrimSpace(string(raw)),
		Err:        fmt.Errorf("invalid JSON: %w", err),
	}
}

// reasonPhrase strips the code from a status line such as "599 Backend Exploded".
// Responses without a phrase fall back to the standard text for the code.
func reasonPhrase(status int, statusLine string) string {
	phrase := strings.TrimSpace(strings.TrimPrefix(statusLine, strconv.Itoa(status)))
	if phrase == "" {
		return http.StatusText(status)
	}
	return phrase
}

// IsResponseError reports whether err is, or wraps, a *ResponseError.
func IsResponseError(err error) bool {
	var re *ResponseError
	return errors.As(err, &re)
}
