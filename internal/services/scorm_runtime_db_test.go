package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dr-rompecabezas/lms-backend/internal/repos"
	"github.com/dr-rompecabezas/lms-backend/internal/types"
)

func newRuntimeFixture(t *testing.T, gdb *gorm.DB) (ScormRuntimeService, *types.ScormAttempt) {
	t.Helper()
	log := testLogger(t)

	user := &types.User{
		ID:        uuid.New(),
		Email:     "learner@example.com",
		Password:  "x",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
	pkg := &types.ScormPackage{ID: uuid.New(), Title: "Safety", PackageFile: "scorm_packages/safety.zip"}
	if err := gdb.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := gdb.Create(pkg).Error; err != nil {
		t.Fatalf("create package: %v", err)
	}

	attemptRepo := repos.NewScormAttemptRepo(gdb, log)
	attempt, _, err := attemptRepo.GetOrCreate(context.Background(), nil, user.ID, pkg.ID, types.CompletionIncomplete)
	if err != nil {
		t.Fatalf("GetOrCreate attempt: %v", err)
	}

	svc := NewScormRuntimeService(
		gdb,
		attemptRepo,
		repos.NewScormDataRepo(gdb, log),
		repos.NewUserRepo(gdb, log),
		newCompletionService(t, gdb),
		log,
	)
	return svc, attempt
}

func rteCall(t *testing.T, svc ScormRuntimeService, attempt *types.ScormAttempt, method string, params ...string) *RteResponse {
	t.Helper()
	body := fmt.Sprintf(`{"method":%q,"parameters":[`, method)
	for i, p := range params {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf("%q", p)
	}
	body += "]}"
	return svc.Call(context.Background(), attempt, []byte(body))
}

func TestSetValueGetValueRoundTrip(t *testing.T) {
	gdb := testDB(t)
	svc, attempt := newRuntimeFixture(t, gdb)

	tests := []struct {
		key   string
		value string
	}{
		{"cmi.core.lesson_location", "page-3"},
		{"cmi.suspend_data", `{"slide":7}`},
		{"cmi.core.score.raw", "85"},
		{"cmi.interactions.0.id", "q1"},
	}
	for _, tt := range tests {
		if resp := rteCall(t, svc, attempt, "SetValue", tt.key, tt.value); resp.Result != "true" {
			t.Fatalf("SetValue(%q) = {%q, %q}", tt.key, resp.Result, resp.ErrorCode)
		}
	}
	for _, tt := range tests {
		resp := rteCall(t, svc, attempt, "GetValue", tt.key)
		if resp.Result != tt.value || resp.ErrorCode != "0" {
			t.Errorf("GetValue(%q) = {%q, %q}, want {%q, \"0\"}", tt.key, resp.Result, resp.ErrorCode, tt.value)
		}
	}

	// Promoted elements land in the typed attempt columns too.
	reloaded, err := svc.GetAttemptForUser(context.Background(), attempt.ID, attempt.UserID)
	if err != nil {
		t.Fatalf("GetAttemptForUser: %v", err)
	}
	if reloaded.Location != "page-3" {
		t.Errorf("location = %q, want %q", reloaded.Location, "page-3")
	}
	if reloaded.ScoreRaw == nil || *reloaded.ScoreRaw != 85 {
		t.Errorf("score_raw = %v, want 85", reloaded.ScoreRaw)
	}
}

func TestSetValueLessonStatusPromotion(t *testing.T) {
	gdb := testDB(t)
	svc, attempt := newRuntimeFixture(t, gdb)

	if resp := rteCall(t, svc, attempt, "SetValue", "cmi.core.lesson_status", "completed"); resp.Result != "true" {
		t.Fatalf("SetValue = {%q, %q}", resp.Result, resp.ErrorCode)
	}
	reloaded, err := svc.GetAttemptForUser(context.Background(), attempt.ID, attempt.UserID)
	if err != nil {
		t.Fatalf("GetAttemptForUser: %v", err)
	}
	if reloaded.CompletionStatus != types.CompletionCompleted {
		t.Errorf("completion_status = %q, want %q", reloaded.CompletionStatus, types.CompletionCompleted)
	}
	// The raw element read comes from the stored row.
	if resp := rteCall(t, svc, attempt, "GetValue", "cmi.core.lesson_status"); resp.Result != "completed" {
		t.Errorf("GetValue(lesson_status) = %q, want %q", resp.Result, "completed")
	}
}

func TestGetValueDefaultSynthesis(t *testing.T) {
	gdb := testDB(t)
	svc, attempt := newRuntimeFixture(t, gdb)

	tests := []struct {
		key  string
		want string
	}{
		{"cmi.core.student_id", attempt.UserID.String()},
		{"cmi.core.student_name", "Ada Lovelace"},
		{"cmi.core.lesson_status", types.CompletionIncomplete},
		{"cmi.core.credit", "credit"},
		{"cmi.core.entry", "ab-initio"},
		{"cmi.core.lesson_mode", "normal"},
		{"cmi.core.exit", ""},
		{"cmi.core.session_time", ""},
		{"cmi.core.total_time", "0000:00:00.00"},
		{"cmi.core.score.raw", ""},
		{"cmi.nonexistent.element", ""},
	}
	for _, tt := range tests {
		resp := rteCall(t, svc, attempt, "GetValue", tt.key)
		if resp.Result != tt.want || resp.ErrorCode != "0" {
			t.Errorf("GetValue(%q) = {%q, %q}, want {%q, \"0\"}", tt.key, resp.Result, resp.ErrorCode, tt.want)
		}
	}
}

// Status values with underscores come back exactly as stored.
func TestGetValueLessonStatusVerbatim(t *testing.T) {
	gdb := testDB(t)
	svc, attempt := newRuntimeFixture(t, gdb)

	if err := gdb.Model(&types.ScormAttempt{}).Where("id = ?", attempt.ID).
		Update("completion_status", types.CompletionNotAttempted).Error; err != nil {
		t.Fatalf("update attempt: %v", err)
	}
	attempt.CompletionStatus = types.CompletionNotAttempted

	resp := rteCall(t, svc, attempt, "GetValue", "cmi.core.lesson_status")
	if resp.Result != "not_attempted" {
		t.Errorf("GetValue(lesson_status) = %q, want %q", resp.Result, "not_attempted")
	}
}
