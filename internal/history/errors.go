package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrInvalidAddress     = errors.New("invalid history server address")
	ErrServiceUnreachable = errors.New("history server unreachable")
	ErrAuthentication     = errors.New("authentication failed")
	// ErrDecode reports a payload that does not match the expected schema,
	// including required fields that are absent.
	ErrDecode = errors.New("unexpected response payload")
)

const maxErrorBody = 4 << 10

// HTTPError is a non-2xx response from the history server.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Exception  string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("GET %s: %s: %s", e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Unwrap lets callers match rejected credentials with errors.Is(err, ErrAuthentication).
func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrAuthentication
	}
	return nil
}

// parseHTTPError reads the body of a failed response. The history server
// reports errors as {"RemoteException": {"exception": ..., "message": ...}};
// anything else is kept verbatim.
func parseHTTPError(resp *http.Response, url string) error {
	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		URL:        url,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		httpErr.Message = fmt.Sprintf("failed to read error response body: %v", err)
		return httpErr
	}

	var remote struct {
		RemoteException struct {
			Exception string `json:"exception"`
			Message   string `json:"message"`
		} `json:"RemoteException"`
	}
	if json.Unmarshal(body, &remote) == nil && remote.RemoteException.Exception != "" {
		httpErr.Exception = remote.RemoteException.Exception
		httpErr.Message = remote.RemoteException.Message
		return httpErr
	}

	httpErr.Message = strings.TrimSpace(string(body))
	return httpErr
}

func missingField(resource Resource, path string) error {
	return fmt.Errorf("%w: %s: missing required field %q", ErrDecode, resource, path)
}
