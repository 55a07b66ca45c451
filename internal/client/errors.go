package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError carries the HTTP status of a failed request along with the
// server-reported message when one was decodable.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// ErrConfirmationUnavailable marks a service without the tool confirmation
// endpoint. Callers degrade to continuing without explicit confirmation.
var ErrConfirmationUnavailable = errors.New("tool confirmation not supported by server")

// IsAbort reports whether err is the result of caller-initiated
// cancellation. Aborts are never surfaced as failures.
func IsAbort(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error string `json:"error"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}
