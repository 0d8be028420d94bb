package client

import (
	"errors"
	"fmt"
)

// ErrRequestInFlight is returned when a control is triggered while its
// previous request has not completed. The caller keeps the control disabled
// until the pending request resolves.
var ErrRequestInFlight = errors.New("a request from this control is already in flight")

// ErrDeleteCancelled is returned when the confirmer declines a role deletion.
// No request was issued and no reload happens; callers must not report the
// role as deleted.
var ErrDeleteCancelled = errors.New("role deletion cancelled")

// ServerRejection is a non-2xx response. Message carries the raw server body
// so it can be surfaced to the user verbatim.
type ServerRejection struct {
	StatusCode int
	Message    string
}

func (e *ServerRejection) Error() string {
	return fmt.Sprintf("server rejected the request (status %d): %s", e.StatusCode, e.Message)
}

// NetworkFailure is a transport-level error with no server response.
type NetworkFailure struct {
	Err error
}

func (e *NetworkFailure) Error() string {
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *NetworkFailure) Unwrap() error {
	return e.Err
}

// CatalogUnavailable reports that the resource list could not be fetched or
// decoded. Role creation stays disabled until a retry succeeds.
type CatalogUnavailable struct {
	Err error
}

func (e *CatalogUnavailable) Error() string {
	return fmt.Sprintf("resource catalog unavailable: %v", e.Err)
}

func (e *CatalogUnavailable) Unwrap() error {
	return e.Err
}

// IsServerRejection reports whether err is a ServerRejection.
func IsServerRejection(err error) bool {
	var rejection *ServerRejection
	return errors.As(err, &rejection)
}

// IsNetworkFailure reports whether err is a NetworkFailure.
func IsNetworkFailure(err error) bool {
	var failure *NetworkFailure
	return errors.As(err, &failure)
}
