// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants are mapped to HTTP responses via the fail()
// helper in this package and give clients a stable, machine-readable error
// taxonomy alongside human-readable messages. Generic codes mirror common
// HTTP status semantics; domain-specific codes cover business failures that
// a status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeNotFound      = "not_found"
	ErrCodeUnprocessable = "unprocessable_entity"
	ErrCodeInternal      = "internal_error"

	// Domain-specific:
	ErrCodeImportFailed     = "import_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeDispatchFailed   = "dispatch_failed"
	ErrCodeSendFailed       = "send_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
