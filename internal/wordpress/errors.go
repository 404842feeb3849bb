package wordpress

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrFetchStopped is returned by FetchAll when its stop check fires between pages
var ErrFetchStopped = errors.New("fetch stopped")

// RemoteError is a non-2xx answer from the WooCommerce or WordPress REST API
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
	URL        string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote API error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote API error (status %d): %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether the remote rejected the site credentials
func (e *RemoteError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// restErrorBody is the error envelope both REST APIs share
type restErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int `json:"status"`
	} `json:"data"`
}

// newRemoteError builds a RemoteError, preferring the API's JSON error envelope over the raw body
func newRemoteError(statusCode int, url string, body []byte) *RemoteError {
	e := &RemoteError{
		StatusCode: statusCode,
		Body:       string(body),
		URL:        url,
	}

	var envelope restErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		e.Code = envelope.Code
		e.Message = envelope.Message
		return e
	}

	e.Message = http.StatusText(statusCode)
	if len(body) > 0 && len(body) <= 512 {
		e.Message = string(body)
	}
	return e
}

// AsRemoteError unwraps err into a *RemoteError
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
