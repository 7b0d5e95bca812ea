package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nikola-86/jelovnik/internal/domain"
	"github.com/nikola-86/jelovnik/internal/notify"
	"github.com/nikola-86/jelovnik/internal/queue"
	"github.com/nikola-86/jelovnik/internal/repo"
	"github.com/nikola-86/jelovnik/internal/services"
	"github.com/nikola-86/jelovnik/internal/tabular"
)

func init() { gin.SetMode(gin.TestMode) }

// recordingDispatcher collects scheduled jobs without running them.
type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []queue.Job
}

func (d *recordingDispatcher) Schedule(job queue.Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

// stubSender implements TestSender with a canned error.
type stubSender struct{ err error }

func (s *stubSender) SendTest(context.Context, string) error { return s.err }

// stubNotifier implements services.MealNotifier; deliveries always succeed.
type stubNotifier struct{}

func (stubNotifier) Notify(context.Context, domain.Employee, domain.MealChoice, bool) error {
	return nil
}

type handlerEnv struct {
	db     *gorm.DB
	disp   *recordingDispatcher
	sender *stubSender
	router *gin.Engine
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("handlers_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	disp := &recordingDispatcher{}
	sender := &stubSender{}
	importSvc := services.NewImportService(db, tabular.NewCSVProvider(), disp)
	notifSvc := services.NewNotificationService(db, stubNotifier{}, disp)
	h := New(importSvc, notifSvc, sender, db, Options{MaxUploadBytes: 1 << 20, PendingLimit: 50})

	r := gin.New()
	r.POST("/imports", h.ImportMealChoices)
	r.GET("/meal-choices", h.ListMealChoices)
	r.GET("/statistics", h.Statistics)
	r.POST("/notifications/send-pending", h.SendPendingNotifications)
	r.POST("/notifications/test", h.TestNotification)
	r.PUT("/employees/:id/slack-id", h.UpdateEmployeeSlackID)

	return &handlerEnv{db: db, disp: disp, sender: sender, router: r}
}

func (e *handlerEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestImportMealChoices_EndToEnd(t *testing.T) {
	env := newHandlerEnv(t)

	csv := "Name,Email,Choice,Date,Slack ID\n" +
		"Alice,alice@corp.test,Pasta,2024-01-15,U1\n" +
		"Bob,bob@corp.test,Salad,01/15/2024\n"
	w := env.do(t, uploadRequest(t, "choices.csv", csv))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}

	resp := decode[ImportResponse](t, w)
	if resp.Created != 2 || resp.Updated != 0 || resp.Total != 2 {
		t.Fatalf("unexpected import response: %+v", resp)
	}
	if resp.Message != "File processed successfully" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if env.disp.count() != 2 {
		t.Fatalf("expected 2 scheduled jobs, got %d", env.disp.count())
	}
}

func TestImportMealChoices_MissingFilePart(t *testing.T) {
	env := newHandlerEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/imports", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")

	w := env.do(t, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Code != ErrCodeBadRequest {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestImportMealChoices_RejectsUnsupportedExtension(t *testing.T) {
	env := newHandlerEnv(t)
	w := env.do(t, uploadRequest(t, "choices.xlsx", "whatever"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestImportMealChoices_NoUsableRowsIs422(t *testing.T) {
	env := newHandlerEnv(t)
	// Header only, zero data rows.
	w := env.do(t, uploadRequest(t, "empty.csv", "Name,Email,Choice,Date\n"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Code != ErrCodeUnprocessable {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestListMealChoices_ReturnsRowsWithStatus(t *testing.T) {
	env := newHandlerEnv(t)
	csv := "Alice,alice@corp.test,Pasta,2024-01-15,U1\n"
	if w := env.do(t, uploadRequest(t, "c.csv", csv)); w.Code != http.StatusOK {
		t.Fatalf("seed import: %d %s", w.Code, w.Body.String())
	}

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/meal-choices", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	items := decode[[]MealChoiceItem](t, w)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	got := items[0]
	if got.Choice != "Pasta" || got.Date != "2024-01-15" {
		t.Fatalf("unexpected item: %+v", got)
	}
	if got.Employee.Email != "alice@corp.test" || got.Employee.SlackID != "U1" {
		t.Fatalf("employee summary: %+v", got.Employee)
	}
	if got.SlackStatus != domain.StatusPending {
		t.Fatalf("fresh import must read pending, got %q", got.SlackStatus)
	}
}

func TestListMealChoices_EmptyDatabase(t *testing.T) {
	env := newHandlerEnv(t)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/meal-choices", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	items := decode[[]MealChoiceItem](t, w)
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %+v", items)
	}
}

func TestStatistics_CountsByReachability(t *testing.T) {
	env := newHandlerEnv(t)
	csv := "Alice,alice@corp.test,Pasta,2024-01-15,U1\n" +
		"Bob,bob@corp.test,Salad,2024-01-15\n"
	if w := env.do(t, uploadRequest(t, "c.csv", csv)); w.Code != http.StatusOK {
		t.Fatalf("seed import: %d", w.Code)
	}

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/statistics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	resp := decode[StatisticsResponse](t, w)
	if resp.Employees.Total != 2 || resp.Employees.WithSlackID != 1 {
		t.Fatalf("employee stats: %+v", resp.Employees)
	}
	if resp.MealChoices.Total != 2 || resp.MealChoices.WithSlackID != 1 {
		t.Fatalf("meal choice stats: %+v", resp.MealChoices)
	}
}

func TestSendPendingNotifications_DispatchesAndReportsCount(t *testing.T) {
	env := newHandlerEnv(t)
	csv := "Alice,alice@corp.test,Pasta,2024-01-15\n"
	if w := env.do(t, uploadRequest(t, "c.csv", csv)); w.Code != http.StatusOK {
		t.Fatalf("seed import: %d", w.Code)
	}
	before := env.disp.count()

	req := httptest.NewRequest(http.MethodPost, "/notifications/send-pending", nil)
	w := env.do(t, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	resp := decode[SendPendingResponse](t, w)
	if resp.Dispatched != 1 {
		t.Fatalf("expected 1 dispatched, got %d", resp.Dispatched)
	}
	if env.disp.count() != before+1 {
		t.Fatalf("dispatcher not called: before=%d after=%d", before, env.disp.count())
	}
}

func TestSendPendingNotifications_BadBody(t *testing.T) {
	env := newHandlerEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/notifications/send-pending", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(t, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTestNotification_Outcomes(t *testing.T) {
	env := newHandlerEnv(t)
	body := func() *strings.Reader { return strings.NewReader(`{"message":"ping"}`) }

	// success -> 204
	req := httptest.NewRequest(http.MethodPost, "/notifications/test", body())
	req.Header.Set("Content-Type", "application/json")
	if w := env.do(t, req); w.Code != http.StatusNoContent {
		t.Fatalf("success: expected 204, got %d", w.Code)
	}

	// not configured -> 500
	env.sender.err = notify.ErrNotConfigured
	req = httptest.NewRequest(http.MethodPost, "/notifications/test", body())
	req.Header.Set("Content-Type", "application/json")
	if w := env.do(t, req); w.Code != http.StatusInternalServerError {
		t.Fatalf("not configured: expected 500, got %d", w.Code)
	}

	// transient -> 502
	env.sender.err = errors.New("slack webhook returned status 500")
	req = httptest.NewRequest(http.MethodPost, "/notifications/test", body())
	req.Header.Set("Content-Type", "application/json")
	if w := env.do(t, req); w.Code != http.StatusBadGateway {
		t.Fatalf("transient: expected 502, got %d", w.Code)
	}

	// missing message -> 400
	req = httptest.NewRequest(http.MethodPost, "/notifications/test", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if w := env.do(t, req); w.Code != http.StatusBadRequest {
		t.Fatalf("missing message: expected 400, got %d", w.Code)
	}
}

func TestUpdateEmployeeSlackID_Lifecycle(t *testing.T) {
	env := newHandlerEnv(t)
	emp, err := repo.CreateEmployee(context.Background(), env.db, "Alice", "alice@corp.test", "")
	if err != nil {
		t.Fatalf("seed employee: %v", err)
	}

	// invalid uuid -> 400
	req := httptest.NewRequest(http.MethodPut, "/employees/not-a-uuid/slack-id", strings.NewReader(`{"slack_id":"U1"}`))
	req.Header.Set("Content-Type", "application/json")
	if w := env.do(t, req); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid id: expected 400, got %d", w.Code)
	}

	// unknown employee -> 404
	req = httptest.NewRequest(http.MethodPut, "/employees/00000000-0000-0000-0000-000000000000/slack-id", strings.NewReader(`{"slack_id":"U1"}`))
	req.Header.Set("Content-Type", "application/json")
	if w := env.do(t, req); w.Code != http.StatusNotFound {
		t.Fatalf("unknown employee: expected 404, got %d", w.Code)
	}

	// success -> 204 and persisted
	req = httptest.NewRequest(http.MethodPut, "/employees/"+emp.ID+"/slack-id", strings.NewReader(`{"slack_id":"U777"}`))
	req.Header.Set("Content-Type", "application/json")
	if w := env.do(t, req); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	got, _ := repo.GetEmployee(context.Background(), env.db, emp.ID)
	if got.SlackID != "U777" {
		t.Fatalf("slack id not persisted: %+v", got)
	}
}
