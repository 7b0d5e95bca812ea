// Import HTTP handler.
//
// This file exposes the upload ingress:
//   - POST /imports (multipart "file": csv/txt, size-capped)
//
// The handler is transport-thin: it validates the upload, parks the payload
// in a temp file, calls the import service, and translates results into HTTP
// responses. Caller-input faults (no usable rows, unreadable source) map to
// 422; anything unexpected maps to 500.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nikola-86/jelovnik/internal/services"
	"github.com/nikola-86/jelovnik/internal/tabular"
)

// ImportService defines the reconciliation operation consumed by the upload
// handler. Implementations must honor the provided context.
type ImportService interface {
	// Import parses the source file and reconciles its rows.
	Import(ctx context.Context, source string) (services.ImportStats, error)
}

// allowedUploadExts lists the file extensions accepted by the upload ingress.
var allowedUploadExts = map[string]bool{
	".csv": true,
	".txt": true,
}

// ImportResponse is the success payload of the upload endpoint.
type ImportResponse struct {
	Message string `json:"message"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Total   int    `json:"total"`
}

// ImportMealChoices handles POST /imports. It accepts a multipart form with
// a single "file" part, stores it in a temp file, and runs the import.
func (h *Handlers) ImportMealChoices(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart field 'file' is required")
		return
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedUploadExts[ext] {
		fail(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable,
			fmt.Sprintf("unsupported file type %q (want .csv or .txt)", ext))
		return
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		fail(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable,
			fmt.Sprintf("file exceeds the %d byte limit", h.maxUploadBytes))
		return
	}

	tmp := filepath.Join(os.TempDir(), "import-"+uuid.NewString()+ext)
	if err := c.SaveUploadedFile(fh, tmp); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to store uploaded file")
		return
	}
	defer os.Remove(tmp)

	stats, err := h.importSvc.Import(c.Request.Context(), tmp)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoValidRows), errors.Is(err, tabular.ErrSourceUnreadable):
			fail(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeImportFailed, "error processing file: "+err.Error())
		}
		return
	}

	ok(c, http.StatusOK, ImportResponse{
		Message: "File processed successfully",
		Created: stats.Created,
		Updated: stats.Updated,
		Total:   stats.Total,
	})
}
