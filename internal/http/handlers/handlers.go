// Handler wiring.
//
// Handlers groups the HTTP endpoints for imports, meal choices, and
// notification maintenance. It depends on abstract service interfaces to
// keep transport concerns separate from business logic; read-only endpoints
// go through the thin repo layer directly.
package handlers

import (
	"gorm.io/gorm"
)

// Handlers bundles all endpoint implementations and their dependencies.
type Handlers struct {
	importSvc  ImportService
	notifSvc   NotificationService
	testSender TestSender
	db         *gorm.DB

	maxUploadBytes int64
	pendingLimit   int
}

// Options carries the tunables handlers need from configuration.
type Options struct {
	// MaxUploadBytes caps accepted import files; <= 0 disables the check.
	MaxUploadBytes int64
	// PendingLimit is the default batch size for send-pending.
	PendingLimit int
}

// New constructs a Handlers instance bound to the given services.
func New(importSvc ImportService, notifSvc NotificationService, testSender TestSender, db *gorm.DB, opts Options) *Handlers {
	if opts.PendingLimit < 1 {
		opts.PendingLimit = 50
	}
	return &Handlers{
		importSvc:      importSvc,
		notifSvc:       notifSvc,
		testSender:     testSender,
		db:             db,
		maxUploadBytes: opts.MaxUploadBytes,
		pendingLimit:   opts.PendingLimit,
	}
}
