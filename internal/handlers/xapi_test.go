package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dr-rompecabezas/lms-backend/internal/logger"
	"github.com/dr-rompecabezas/lms-backend/internal/middleware"
	"github.com/dr-rompecabezas/lms-backend/internal/services"
	"github.com/dr-rompecabezas/lms-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

type stubXapiService struct {
	result *services.XapiIngestResult
	err    error
	gotRaw []byte
}

func (s *stubXapiService) Ingest(ctx context.Context, userID, activityID uuid.UUID, raw []byte) (*services.XapiIngestResult, error) {
	s.gotRaw = raw
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubActivityService struct {
	activity *types.H5PActivity
	err      error
}

func (s *stubActivityService) Create(ctx context.Context, title, description, filename string, archive []byte) (*types.H5PActivity, error) {
	return s.activity, s.err
}

func (s *stubActivityService) ReplacePackage(ctx context.Context, id uuid.UUID, filename string, archive []byte) (*types.H5PActivity, error) {
	return s.activity, s.err
}

func (s *stubActivityService) Get(ctx context.Context, id uuid.UUID) (*types.H5PActivity, error) {
	return s.activity, s.err
}

func (s *stubActivityService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func xapiTestRouter(t *testing.T, xapi services.XapiService, activities services.H5PActivityService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewXapiHandler(xapi, activities, testLogger(t))
	r := gin.New()
	user := &types.User{ID: uuid.New(), Email: "learner@example.com"}
	r.POST("/h5p-xapi/:activityID", func(c *gin.Context) {
		middleware.SetCurrentUser(c, user)
		handler.Ingest(c)
	})
	return r
}

func TestXapiIngestResponseBody(t *testing.T) {
	activityID := uuid.New()
	xapi := &stubXapiService{result: &services.XapiIngestResult{
		Attempt:        &types.H5PAttempt{ID: uuid.New()},
		MarkedComplete: true,
	}}
	activities := &stubActivityService{activity: &types.H5PActivity{ID: activityID}}
	r := xapiTestRouter(t, xapi, activities)

	statement := `{"verb":{"id":"http://adlnet.gov/expapi/verbs/completed"}}`
	req := httptest.NewRequest(http.MethodPost, "/h5p-xapi/"+activityID.String(), strings.NewReader(statement))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
	}
	if got := w.Body.String(); got != `{"status":"ok"}` {
		t.Errorf("body = %s, want {\"status\":\"ok\"}", got)
	}
	if string(xapi.gotRaw) != statement {
		t.Errorf("ingested raw = %s, want %s", xapi.gotRaw, statement)
	}
}

func TestXapiIngestValidationError(t *testing.T) {
	activityID := uuid.New()
	xapi := &stubXapiService{err: &services.XapiValidationError{Message: "statement is not valid JSON"}}
	activities := &stubActivityService{activity: &types.H5PActivity{ID: activityID}}
	r := xapiTestRouter(t, xapi, activities)

	req := httptest.NewRequest(http.MethodPost, "/h5p-xapi/"+activityID.String(), strings.NewReader(`{{{`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestXapiIngestUnknownActivity(t *testing.T) {
	xapi := &stubXapiService{}
	activities := &stubActivityService{err: gorm.ErrRecordNotFound}
	r := xapiTestRouter(t, xapi, activities)

	req := httptest.NewRequest(http.MethodPost, "/h5p-xapi/"+uuid.NewString(), strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if len(xapi.gotRaw) != 0 {
		t.Error("statement should not be ingested for a missing activity")
	}
}
