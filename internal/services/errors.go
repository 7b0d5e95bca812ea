// Package services defines the business logic for importing meal choices and
// delivering Slack notifications. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import "errors"

var (
	// ErrNoValidRows is returned when an import source yields zero usable
	// rows after filtering. A genuinely empty file and an all-invalid file
	// are indistinguishable here; both surface as this error.
	ErrNoValidRows = errors.New("no valid data found in file")
)
